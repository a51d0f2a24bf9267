package net

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	server "turbowheel/server"
	"turbowheel/server/internal/proof"
	"turbowheel/server/internal/scores"
	"turbowheel/server/internal/settle"
)

type HTTPHandlerConfig struct {
	ClientDir string
	Logger    *log.Logger
}

// NewHTTPHandler wires the REST surface and the realtime endpoint around the
// hub. The hub owns all state; handlers only translate.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Status       string                     `json:"status"`
			ServerTime   int64                      `json:"serverTime"`
			UptimeMillis int64                      `json:"uptimeMillis"`
			LiveSessions []server.SessionDescriptor `json:"liveSessions"`
		}{
			Status:       "ok",
			ServerTime:   time.Now().UnixMilli(),
			UptimeMillis: hub.Uptime().Milliseconds(),
			LiveSessions: hub.LiveSessions(),
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/api/scores", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.Method {
		case nethttp.MethodGet:
			handleListScores(w, r, hub)
		case nethttp.MethodPost:
			handleSubmitScore(w, r, hub, logger)
		default:
			writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
		}
	})

	mux.HandleFunc("/api/prize-pool", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
			return
		}
		pool, _, err := hub.Store().PrizePool()
		if err != nil {
			writeError(w, nethttp.StatusInternalServerError, "failed to read prize pool")
			return
		}
		distribution, games, err := hub.Aggregator().PendingSplit()
		if err != nil {
			writeError(w, nethttp.StatusInternalServerError, "failed to compute distribution")
			return
		}
		payload := struct {
			Success      bool                `json:"success"`
			Total        string              `json:"total"`
			Distribution settle.Distribution `json:"distribution"`
			TotalGames   int                 `json:"totalGames"`
		}{
			Success:      true,
			Total:        settle.FormatEther(pool),
			Distribution: distribution,
			TotalGames:   games,
		}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/api/distribute-prizes", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodPost {
			writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
			return
		}
		distribution, err := hub.Aggregator().Distribute(r.Context(), hub.NextSeq())
		if err != nil {
			if errors.Is(err, settle.ErrNotEnoughEntries) {
				writeError(w, nethttp.StatusBadRequest, "at least 3 scores required for distribution")
				return
			}
			logger.Printf("distribution failed: %v", err)
			writeError(w, nethttp.StatusInternalServerError, "distribution failed")
			return
		}
		payload := struct {
			Success      bool                `json:"success"`
			Distribution settle.Distribution `json:"distribution"`
		}{Success: true, Distribution: distribution}
		writeJSON(w, nethttp.StatusOK, payload)
	})

	mux.HandleFunc("/api/stats", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			writeError(w, nethttp.StatusMethodNotAllowed, "method not allowed")
			return
		}
		entries, err := hub.Store().List()
		if err != nil {
			writeError(w, nethttp.StatusInternalServerError, "failed to read scores")
			return
		}
		pool, games, err := hub.Store().PrizePool()
		if err != nil {
			writeError(w, nethttp.StatusInternalServerError, "failed to read prize pool")
			return
		}
		stats := scores.ComputeStats(entries, pool, games, settle.FormatEther)
		writeJSON(w, nethttp.StatusOK, stats)
	})

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	mux.HandleFunc("/ws", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Printf("upgrade failed: %v", err)
			return
		}
		serveChannel(hub, conn, logger)
	})

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func handleListScores(w nethttp.ResponseWriter, r *nethttp.Request, hub *server.Hub) {
	entries, err := hub.Store().List()
	if err != nil {
		writeError(w, nethttp.StatusInternalServerError, "failed to read scores")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			limit = value
		}
	}

	ranked := settle.Rank(entries)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	payload := struct {
		Success bool                    `json:"success"`
		Scores  []scores.HighScoreEntry `json:"scores"`
		Total   int                     `json:"total"`
	}{Success: true, Scores: ranked, Total: len(entries)}
	writeJSON(w, nethttp.StatusOK, payload)
}

type submitScoreRequest struct {
	Player    string   `json:"player"`
	Score     *float64 `json:"score"`
	GameID    string   `json:"gameId"`
	Timestamp int64    `json:"timestamp"`
}

func handleSubmitScore(w nethttp.ResponseWriter, r *nethttp.Request, hub *server.Hub, logger *log.Logger) {
	if r.Body == nil {
		writeError(w, nethttp.StatusBadRequest, "missing body")
		return
	}
	defer r.Body.Close()

	var req submitScoreRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil && err != io.EOF {
		writeError(w, nethttp.StatusBadRequest, "invalid payload")
		return
	}
	if req.Player == "" {
		writeError(w, nethttp.StatusBadRequest, "player is required")
		return
	}
	if req.Score == nil || *req.Score < 0 {
		writeError(w, nethttp.StatusBadRequest, "score must be a non-negative number")
		return
	}

	score := int(*req.Score)
	if valid, reason := proof.ValidateScore(score); !valid {
		writeError(w, nethttp.StatusBadRequest, "score rejected: "+reason)
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}
	gameID := req.GameID
	if gameID == "" {
		gameID = server.DefaultGameID
	}

	entry := scores.HighScoreEntry{
		Player:    req.Player,
		Score:     score,
		Timestamp: timestamp,
		GameID:    gameID,
	}
	if err := hub.Aggregator().Contribute(r.Context(), hub.NextSeq(), entry); err != nil {
		logger.Printf("failed to record score: %v", err)
		writeError(w, nethttp.StatusInternalServerError, "failed to record score")
		return
	}

	payload := struct {
		Success bool                  `json:"success"`
		Score   scores.HighScoreEntry `json:"score"`
		Message string                `json:"message"`
	}{Success: true, Score: entry, Message: "score submitted"}
	writeJSON(w, nethttp.StatusOK, payload)
}

// serveChannel runs one connection's read loop. Messages from a single
// connection are handled in arrival order; disconnect cleans up the channel.
func serveChannel(hub *server.Hub, conn *websocket.Conn, logger *log.Logger) {
	channelID, sub := hub.Register(conn)
	defer hub.Disconnect(channelID)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg server.ClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.Printf("discarding malformed message from %s: %v", channelID, err)
			continue
		}

		switch msg.Type {
		case server.TypeJoinGame:
			descriptor, ok := hub.JoinGame(channelID, msg.WalletAddress, msg.GameID)
			if !ok {
				continue
			}
			joined := server.GameJoinedMessage{Type: server.TypeGameJoined, Session: descriptor}
			data, err := json.Marshal(joined)
			if err != nil {
				logger.Printf("failed to marshal game-joined for %s: %v", channelID, err)
				continue
			}
			if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case server.TypeScoreUpdate:
			hub.ScoreUpdate(channelID, msg.Score, msg.GameState)
		case server.TypeGameOver:
			hub.GameOver(channelID, msg.Score, msg.Proof)
		default:
			logger.Printf("unknown message type %q from %s", msg.Type, channelID)
		}
	}
}

func writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w nethttp.ResponseWriter, status int, message string) {
	writeJSON(w, status, struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{Success: false, Error: message})
}
