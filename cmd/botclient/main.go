// Command botclient drives complete rounds against a running server. It
// prefers the websocket channel and falls back to plain REST submission when
// the socket cannot be established.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"turbowheel/server"
	"turbowheel/server/internal/proof"
	"turbowheel/server/internal/scores"
	"turbowheel/server/internal/sim"
)

func main() {
	var (
		addr     string
		wallet   string
		gameID   string
		rounds   int
		tick     time.Duration
		maxTicks int
		seed     int64
		dataDir  string
	)
	flag.StringVar(&addr, "server", "localhost:8080", "host:port of the score relay server")
	flag.StringVar(&wallet, "wallet", "", "wallet address to play as (empty for anonymous)")
	flag.StringVar(&gameID, "game", server.DefaultGameID, "game id to join")
	flag.IntVar(&rounds, "rounds", 1, "rounds to play")
	flag.DurationVar(&tick, "tick", 16*time.Millisecond, "simulation tick interval")
	flag.IntVar(&maxTicks, "max-ticks", 7200, "give up on a round after this many ticks")
	flag.Int64Var(&seed, "seed", 0, "spawn RNG seed (0 for random)")
	flag.StringVar(&dataDir, "data", "botdata", "directory for the local best-score file")
	flag.Parse()

	best, err := scores.OpenBolt(dataDir, "botclient.db")
	if err != nil {
		log.Fatalf("open best-score store: %v", err)
	}
	defer best.Close()

	player := wallet
	if player == "" {
		player = sim.AnonymousPlayer
	}

	for i := 0; i < rounds; i++ {
		score, err := playRound(addr, wallet, gameID, tick, maxTicks, seed)
		if err != nil {
			log.Printf("round %d: websocket unavailable (%v), falling back to REST", i+1, err)
			score, err = playOffline(addr, player, gameID, tick, maxTicks, seed)
			if err != nil {
				log.Fatalf("round %d failed: %v", i+1, err)
			}
		}

		improved, err := best.UpdateBestScore(player, score)
		if err != nil {
			log.Printf("failed to persist best score: %v", err)
		} else if improved {
			log.Printf("round %d: score %d (new personal best)", i+1, score)
		} else {
			log.Printf("round %d: score %d", i+1, score)
		}
	}
}

type relayEvents struct {
	conn  *websocket.Conn
	fatal bool
}

func (r *relayEvents) ScoreChanged(score int, snapshot sim.StateSnapshot) {
	msg := server.ScoreUpdateMessage{Type: server.TypeScoreUpdate, Score: score, GameState: snapshot}
	if err := r.conn.WriteJSON(msg); err != nil {
		r.fatal = true
	}
}

func (r *relayEvents) RoundEnded(session *sim.GameSession, finalScore int) {}

// playRound runs one round over the websocket channel.
func playRound(addr, wallet, gameID string, tick time.Duration, maxTicks int, seed int64) (int, error) {
	wsURL := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", wsURL.String(), err)
	}
	defer conn.Close()

	// Drain server events so broadcasts never back up the connection.
	go func() {
		for {
			var raw json.RawMessage
			if err := conn.ReadJSON(&raw); err != nil {
				return
			}
		}
	}()

	join := server.JoinGameMessage{Type: server.TypeJoinGame, WalletAddress: wallet, GameID: gameID}
	if err := conn.WriteJSON(join); err != nil {
		return 0, fmt.Errorf("send join: %w", err)
	}

	events := &relayEvents{conn: conn}
	engine := sim.NewEngine(sim.DefaultConfig(), seed, events)
	score := driveRound(engine, wallet, tick, maxTicks, func() bool { return events.fatal })

	envelope := proof.Build(engine.Session(), score, time.Now())
	valid, _ := proof.ValidateScore(score)
	over := server.GameOverMessage{
		Type:    server.TypeGameOver,
		Score:   score,
		Player:  envelope.PlayerHash,
		GameID:  gameID,
		Proof:   &envelope,
		IsValid: valid,
	}
	if err := conn.WriteJSON(over); err != nil {
		return 0, fmt.Errorf("send game-over: %w", err)
	}

	// Give the server a moment to settle and broadcast before closing.
	time.Sleep(100 * time.Millisecond)
	return score, nil
}

// playOffline runs the round locally and submits the terminal score over
// REST. Mid-round updates are lost in this mode; the final result is not.
func playOffline(addr, player, gameID string, tick time.Duration, maxTicks int, seed int64) (int, error) {
	engine := sim.NewEngine(sim.DefaultConfig(), seed, nil)
	score := driveRound(engine, player, tick, maxTicks, nil)

	body, err := json.Marshal(map[string]any{
		"player":    player,
		"score":     score,
		"gameId":    gameID,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		return 0, fmt.Errorf("marshal submission: %w", err)
	}

	resp, err := http.Post(fmt.Sprintf("http://%s/api/scores", addr), "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("submit score: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("submit score: status %d", resp.StatusCode)
	}
	return score, nil
}

// driveRound steers randomly until the round ends or the tick budget runs
// out. The abort check lets the websocket path bail on a dead connection.
func driveRound(engine *sim.Engine, identity string, tick time.Duration, maxTicks int, abort func() bool) int {
	engine.Start(identity)
	cfg := sim.DefaultConfig()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for i := 0; i < maxTicks; i++ {
		<-ticker.C
		if abort != nil && abort() {
			break
		}
		if rand.Float64() < 0.02 {
			engine.SetTarget(rand.Float64() * (cfg.RoadWidth - cfg.CarWidth))
		}
		engine.Step()
		if engine.Phase() == sim.PhaseEnded {
			break
		}
	}
	return engine.Score()
}
