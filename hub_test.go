package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"turbowheel/server/internal/proof"
	"turbowheel/server/internal/sim"
)

// wsPair upgrades one connection through a throwaway server and returns both
// ends: the server side goes to the hub, the client side observes broadcasts.
func wsPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}

	var server *websocket.Conn
	select {
	case server = <-serverConns:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for the server side of the connection")
	}

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return server, client
}

func readMessage[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	var msg T
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	return msg
}

func TestJoinGameCreatesSessionAndNotifiesRoom(t *testing.T) {
	hub := NewHub(HubConfig{})

	observerConn, observerClient := wsPair(t)
	hub.Register(observerConn)

	joinerConn, _ := wsPair(t)
	channelID, _ := hub.Register(joinerConn)

	descriptor, ok := hub.JoinGame(channelID, "0xabc", "turbo-wheel")
	if !ok {
		t.Fatalf("expected join to succeed")
	}
	if descriptor.ChannelID != channelID {
		t.Fatalf("expected channel %s, got %s", channelID, descriptor.ChannelID)
	}
	if descriptor.Player != "0xabc" || descriptor.GameID != "turbo-wheel" {
		t.Fatalf("unexpected descriptor: %+v", descriptor)
	}

	if live := hub.LiveSessions(); len(live) != 1 {
		t.Fatalf("expected 1 live session, got %d", len(live))
	}

	joined := readMessage[PlayerJoinedMessage](t, observerClient)
	if joined.Type != TypePlayerJoined || joined.Player != "0xabc" {
		t.Fatalf("unexpected broadcast: %+v", joined)
	}
}

func TestJoinGameDefaultsAnonymousPlayer(t *testing.T) {
	hub := NewHub(HubConfig{})
	conn, _ := wsPair(t)
	channelID, _ := hub.Register(conn)

	descriptor, ok := hub.JoinGame(channelID, "", "")
	if !ok {
		t.Fatalf("expected join to succeed")
	}
	if descriptor.Player != sim.AnonymousPlayer {
		t.Fatalf("expected anonymous player, got %q", descriptor.Player)
	}
	if descriptor.GameID != DefaultGameID {
		t.Fatalf("expected default game id, got %q", descriptor.GameID)
	}
}

func TestJoinGameUnknownChannelIsIgnored(t *testing.T) {
	hub := NewHub(HubConfig{})
	if _, ok := hub.JoinGame("channel-99", "0xabc", ""); ok {
		t.Fatalf("expected join on unregistered channel to fail")
	}
}

func TestScoreUpdateIncrementsNonce(t *testing.T) {
	hub := NewHub(HubConfig{})
	conn, client := wsPair(t)
	channelID, _ := hub.Register(conn)
	hub.JoinGame(channelID, "0xabc", "")

	if !hub.ScoreUpdate(channelID, 10, sim.StateSnapshot{Score: 10}) {
		t.Fatalf("expected update to be accepted")
	}
	if !hub.ScoreUpdate(channelID, 20, sim.StateSnapshot{Score: 20}) {
		t.Fatalf("expected update to be accepted")
	}

	session, ok := hub.Session(channelID)
	if !ok {
		t.Fatalf("expected live session")
	}
	if session.State.Nonce != 2 {
		t.Fatalf("expected nonce 2 after two updates, got %d", session.State.Nonce)
	}
	if session.State.Score != 20 {
		t.Fatalf("expected score 20, got %d", session.State.Score)
	}
	if len(session.State.Actions) != 2 {
		t.Fatalf("expected 2 recorded actions, got %d", len(session.State.Actions))
	}

	first := readMessage[ScoreUpdatedMessage](t, client)
	second := readMessage[ScoreUpdatedMessage](t, client)
	if first.Nonce != 1 || second.Nonce != 2 {
		t.Fatalf("expected nonces 1 and 2, got %d and %d", first.Nonce, second.Nonce)
	}
	if second.Score != 20 {
		t.Fatalf("expected broadcast score 20, got %d", second.Score)
	}
}

func TestScoreUpdateUnknownChannelIsDropped(t *testing.T) {
	hub := NewHub(HubConfig{})
	if hub.ScoreUpdate("channel-99", 10, sim.StateSnapshot{}) {
		t.Fatalf("expected update for unknown channel to be dropped")
	}
}

func TestGameOverSettlesValidScore(t *testing.T) {
	hub := NewHub(HubConfig{})
	conn, client := wsPair(t)
	channelID, _ := hub.Register(conn)
	hub.JoinGame(channelID, "0xabc", "")

	session := sim.NewGameSession("0xabc", time.Now())
	envelope := proof.Build(session, 500, time.Now())

	if !hub.GameOver(channelID, 500, &envelope) {
		t.Fatalf("expected valid game-over to settle")
	}

	if live := hub.LiveSessions(); len(live) != 0 {
		t.Fatalf("expected session removed after game-over, got %d live", len(live))
	}

	entries, err := hub.Store().List()
	if err != nil {
		t.Fatalf("failed to list scores: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 settled entry, got %d", len(entries))
	}
	if entries[0].Player != "0xabc" || entries[0].Score != 500 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[0].Proof == nil || entries[0].Proof.ProofHash != envelope.ProofHash {
		t.Fatalf("expected proof envelope preserved on the entry")
	}

	pool, games, err := hub.Store().PrizePool()
	if err != nil {
		t.Fatalf("failed to read pool: %v", err)
	}
	if pool.Sign() <= 0 || games != 1 {
		t.Fatalf("expected pool contribution, got pool=%s games=%d", pool, games)
	}

	ended := readMessage[GameEndedMessage](t, client)
	if ended.Type != TypeGameEnded || ended.Score != 500 {
		t.Fatalf("unexpected broadcast: %+v", ended)
	}
	if ended.ProofHash != envelope.ProofHash {
		t.Fatalf("expected proof hash in broadcast")
	}
}

func TestGameOverBoundaryScoreSettles(t *testing.T) {
	hub := NewHub(HubConfig{})
	conn, _ := wsPair(t)
	channelID, _ := hub.Register(conn)
	hub.JoinGame(channelID, "0xabc", "")

	if !hub.GameOver(channelID, proof.Ceiling, nil) {
		t.Fatalf("expected ceiling score to be accepted")
	}
	entries, _ := hub.Store().List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 settled entry, got %d", len(entries))
	}
}

func TestGameOverRejectsImplausibleScore(t *testing.T) {
	hub := NewHub(HubConfig{})
	conn, client := wsPair(t)
	channelID, _ := hub.Register(conn)
	hub.JoinGame(channelID, "0xabc", "")

	if hub.GameOver(channelID, proof.Ceiling+1, nil) {
		t.Fatalf("expected implausible score to be rejected")
	}

	// The session is gone either way; nothing settled.
	if live := hub.LiveSessions(); len(live) != 0 {
		t.Fatalf("expected session removed after rejection, got %d live", len(live))
	}
	entries, _ := hub.Store().List()
	if len(entries) != 0 {
		t.Fatalf("expected no settled entries, got %d", len(entries))
	}
	pool, games, _ := hub.Store().PrizePool()
	if pool.Sign() != 0 || games != 0 {
		t.Fatalf("expected untouched pool, got pool=%s games=%d", pool, games)
	}

	// Only the originator hears about the rejection.
	errMsg := readMessage[ErrorMessage](t, client)
	if errMsg.Type != TypeError || !strings.Contains(errMsg.Message, proof.ReasonImplausible) {
		t.Fatalf("unexpected error message: %+v", errMsg)
	}
}

func TestGameOverUnknownChannelIsDropped(t *testing.T) {
	hub := NewHub(HubConfig{})
	if hub.GameOver("channel-99", 500, nil) {
		t.Fatalf("expected game-over for unknown channel to be dropped")
	}
}

func TestDisconnectAbandonsWithoutSettling(t *testing.T) {
	hub := NewHub(HubConfig{})

	observerConn, observerClient := wsPair(t)
	hub.Register(observerConn)

	conn, _ := wsPair(t)
	channelID, _ := hub.Register(conn)
	hub.JoinGame(channelID, "0xabc", "")
	readMessage[PlayerJoinedMessage](t, observerClient)

	hub.ScoreUpdate(channelID, 120, sim.StateSnapshot{Score: 120})
	readMessage[ScoreUpdatedMessage](t, observerClient)

	hub.Disconnect(channelID)

	if live := hub.LiveSessions(); len(live) != 0 {
		t.Fatalf("expected no live sessions after disconnect, got %d", len(live))
	}
	entries, _ := hub.Store().List()
	if len(entries) != 0 {
		t.Fatalf("abandoned round must not settle, got %d entries", len(entries))
	}

	left := readMessage[PlayerLeftMessage](t, observerClient)
	if left.Type != TypePlayerLeft || left.ChannelID != channelID {
		t.Fatalf("unexpected broadcast: %+v", left)
	}
}

func TestDisconnectWithoutSessionIsQuiet(t *testing.T) {
	hub := NewHub(HubConfig{})

	observerConn, observerClient := wsPair(t)
	hub.Register(observerConn)

	conn, _ := wsPair(t)
	channelID, _ := hub.Register(conn)

	// Registered but never joined: no session, so no player-left broadcast.
	hub.Disconnect(channelID)

	observerClient.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg PlayerLeftMessage
	if err := observerClient.ReadJSON(&msg); err == nil {
		t.Fatalf("expected no broadcast, got %+v", msg)
	}
}

func TestSessionReturnsCopy(t *testing.T) {
	hub := NewHub(HubConfig{})
	conn, _ := wsPair(t)
	channelID, _ := hub.Register(conn)
	hub.JoinGame(channelID, "0xabc", "")
	hub.ScoreUpdate(channelID, 10, sim.StateSnapshot{Score: 10})

	copied, ok := hub.Session(channelID)
	if !ok {
		t.Fatalf("expected live session")
	}
	copied.State.Actions[0].Snapshot.Score = 999
	copied.State.Score = 999

	fresh, _ := hub.Session(channelID)
	if fresh.State.Score != 10 || fresh.State.Actions[0].Snapshot.Score != 10 {
		t.Fatalf("session copy leaked mutations back into the registry")
	}
}
