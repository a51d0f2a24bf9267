package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"turbowheel/server/internal/proof"
	"turbowheel/server/internal/scores"
	"turbowheel/server/internal/settle"
	"turbowheel/server/internal/sim"
	"turbowheel/server/logging"
	loggingsession "turbowheel/server/logging/session"
)

// Hub is the session registry: it owns every live channel, relays room
// broadcasts, and hands settled rounds to the aggregator. All registry
// mutation happens under one mutex, applied atomically per incoming message.
type Hub struct {
	mu          sync.Mutex
	sessions    map[string]*ServerSession
	subscribers map[string]*subscriber
	nextID      atomic.Uint64
	seq         atomic.Uint64

	store      scores.Store
	aggregator *settle.Aggregator
	publisher  logging.Publisher
	logger     *log.Logger
	started    time.Time
}

type HubConfig struct {
	Store      scores.Store
	Aggregator *settle.Aggregator
	Publisher  logging.Publisher
	Logger     *log.Logger
}

func NewHub(cfg HubConfig) *Hub {
	store := cfg.Store
	if store == nil {
		store = scores.NewMemoryStore()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	aggregator := cfg.Aggregator
	if aggregator == nil {
		aggregator = settle.NewAggregator(store, nil, settle.Config{
			Contribution: settle.MustParseEther(PrizeContributionEther),
			Publisher:    publisher,
		})
	}
	return &Hub{
		sessions:    make(map[string]*ServerSession),
		subscribers: make(map[string]*subscriber),
		store:       store,
		aggregator:  aggregator,
		publisher:   publisher,
		logger:      logger,
		started:     time.Now(),
	}
}

// Store exposes the owned state object to the HTTP layer.
func (h *Hub) Store() scores.Store { return h.store }

// Aggregator exposes settlement to the HTTP layer.
func (h *Hub) Aggregator() *settle.Aggregator { return h.aggregator }

// NextSeq stamps one processed message; used to correlate log events.
func (h *Hub) NextSeq() uint64 { return h.seq.Add(1) }

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Register assigns a channel id to a fresh connection. The session itself is
// created later by an explicit join-game message.
func (h *Hub) Register(conn *websocket.Conn) (string, *subscriber) {
	id := h.nextID.Add(1)
	channelID := fmt.Sprintf("channel-%d", id)

	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[channelID] = sub
	h.mu.Unlock()

	return channelID, sub
}

// JoinGame creates the channel's live session. Joining again on the same
// channel starts a fresh round; the old session is discarded unsettled.
func (h *Hub) JoinGame(channelID, walletAddress, gameID string) (SessionDescriptor, bool) {
	seq := h.NextSeq()

	player := walletAddress
	if player == "" {
		player = sim.AnonymousPlayer
	}
	if gameID == "" {
		gameID = DefaultGameID
	}

	h.mu.Lock()
	if _, ok := h.subscribers[channelID]; !ok {
		h.mu.Unlock()
		h.logger.Printf("join ignored for unknown channel %s", channelID)
		return SessionDescriptor{}, false
	}
	session := &ServerSession{
		ChannelID: channelID,
		Player:    player,
		GameID:    gameID,
		StartTime: time.Now(),
		State: SessionState{
			Actions:  make([]sim.ActionRecord, 0, 16),
			IsActive: true,
		},
	}
	h.sessions[channelID] = session
	descriptor := session.descriptor()
	h.mu.Unlock()

	loggingsession.ChannelJoined(context.Background(), h.publisher, seq,
		logging.EntityRef{ID: channelID, Kind: logging.EntityKindSession},
		loggingsession.ChannelJoinedPayload{Player: player, GameID: gameID})

	h.broadcast(PlayerJoinedMessage{
		Type:      TypePlayerJoined,
		ChannelID: channelID,
		Player:    player,
		GameID:    gameID,
	}, channelID)

	return descriptor, true
}

// ScoreUpdate mutates the channel's session and relays the new score to the
// room. Updates for unknown channels are logged and dropped. A score below
// the previous one is accepted but flagged; validation stays permissive.
func (h *Hub) ScoreUpdate(channelID string, score int, state sim.StateSnapshot) bool {
	seq := h.NextSeq()

	h.mu.Lock()
	session, ok := h.sessions[channelID]
	if !ok {
		h.mu.Unlock()
		h.logger.Printf("score-update ignored for unknown channel %s", channelID)
		return false
	}
	previous := session.State.Score
	session.State.Nonce++
	session.State.Score = score
	session.State.Actions = append(session.State.Actions, sim.ActionRecord{
		Timestamp: time.Now().UnixMilli(),
		Type:      sim.ActionScoreUpdate,
		Snapshot:  state,
	})
	nonce := session.State.Nonce
	player := session.Player
	h.mu.Unlock()

	if score < previous {
		loggingsession.ScoreRegression(context.Background(), h.publisher, seq,
			logging.EntityRef{ID: channelID, Kind: logging.EntityKindSession},
			loggingsession.ScoreRegressionPayload{Previous: previous, Reported: score})
	}

	h.broadcast(ScoreUpdatedMessage{
		Type:      TypeScoreUpdated,
		ChannelID: channelID,
		Player:    player,
		Score:     score,
		Nonce:     nonce,
	}, "")
	return true
}

// GameOver finalizes the channel's session. A valid score settles: the
// session becomes a high-score entry, the pool grows, and the room learns the
// result. A rejected score also removes the session, but only the originator
// hears about it and nothing settles.
func (h *Hub) GameOver(channelID string, score int, scoreProof *proof.ScoreProof) bool {
	seq := h.NextSeq()

	h.mu.Lock()
	session, ok := h.sessions[channelID]
	if !ok {
		h.mu.Unlock()
		h.logger.Printf("game-over ignored for unknown channel %s", channelID)
		return false
	}
	lastScore := session.State.Score
	session.State.IsActive = false
	delete(h.sessions, channelID)
	sub := h.subscribers[channelID]
	player := session.Player
	gameID := session.GameID
	nonce := session.State.Nonce
	h.mu.Unlock()

	actor := logging.EntityRef{ID: channelID, Kind: logging.EntityKindSession}
	ctx := context.Background()

	if valid, reason := proof.ValidateScore(score); !valid {
		loggingsession.ScoreRejected(ctx, h.publisher, seq, actor,
			loggingsession.ScoreRejectedPayload{Score: score, Reason: reason})
		if sub != nil {
			h.sendTo(channelID, sub, ErrorMessage{Type: TypeError, Message: "score rejected: " + reason})
		}
		return false
	}

	if score < lastScore {
		loggingsession.ScoreRegression(ctx, h.publisher, seq, actor,
			loggingsession.ScoreRegressionPayload{Previous: lastScore, Reported: score})
	}

	proofHash := ""
	if scoreProof != nil {
		proofHash = scoreProof.ProofHash
	}

	entry := scores.HighScoreEntry{
		Player:    player,
		Score:     score,
		Timestamp: time.Now().UnixMilli(),
		ChannelID: channelID,
		GameID:    gameID,
		Proof:     scoreProof,
	}
	if err := h.aggregator.Contribute(ctx, seq, entry); err != nil {
		h.logger.Printf("failed to settle session %s: %v", channelID, err)
	}

	loggingsession.Finalized(ctx, h.publisher, seq, actor, loggingsession.FinalizedPayload{
		Score:     score,
		Nonce:     nonce,
		ProofHash: proofHash,
	})

	h.broadcast(GameEndedMessage{
		Type:      TypeGameEnded,
		ChannelID: channelID,
		Player:    player,
		GameID:    gameID,
		Score:     score,
		ProofHash: proofHash,
	}, "")
	return true
}

// Disconnect removes the channel without settling. Abandoned rounds never
// produce a high-score entry.
func (h *Hub) Disconnect(channelID string) {
	seq := h.NextSeq()

	h.mu.Lock()
	sub, subOK := h.subscribers[channelID]
	if subOK {
		delete(h.subscribers, channelID)
	}
	session, sessionOK := h.sessions[channelID]
	if sessionOK {
		delete(h.sessions, channelID)
	}
	h.mu.Unlock()

	if subOK {
		sub.conn.Close()
	}
	if !sessionOK {
		return
	}

	loggingsession.Abandoned(context.Background(), h.publisher, seq,
		logging.EntityRef{ID: channelID, Kind: logging.EntityKindSession},
		loggingsession.AbandonedPayload{Score: session.State.Score, Nonce: session.State.Nonce})

	h.broadcast(PlayerLeftMessage{
		Type:      TypePlayerLeft,
		ChannelID: channelID,
		Player:    session.Player,
	}, "")
}

// broadcast fans a payload out to every subscriber except exceptID. Failed
// writes disconnect the subscriber; the room hears about it as player-left.
func (h *Hub) broadcast(payload any, exceptID string) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("failed to marshal broadcast: %v", err)
		return
	}

	h.mu.Lock()
	subs := make(map[string]*subscriber, len(h.subscribers))
	for id, sub := range h.subscribers {
		if id == exceptID {
			continue
		}
		subs[id] = sub
	}
	h.mu.Unlock()

	var failed []string
	for id, sub := range subs {
		if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Printf("failed to send update to %s: %v", id, err)
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		h.Disconnect(id)
	}
}

func (h *Hub) sendTo(channelID string, sub *subscriber, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("failed to marshal message for %s: %v", channelID, err)
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Disconnect(channelID)
	}
}

// LiveSessions snapshots the registry for diagnostics.
func (h *Hub) LiveSessions() []SessionDescriptor {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := make([]SessionDescriptor, 0, len(h.sessions))
	for _, session := range h.sessions {
		live = append(live, session.descriptor())
	}
	return live
}

// Session returns a copy of the channel's live session.
func (h *Hub) Session(channelID string) (ServerSession, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	session, ok := h.sessions[channelID]
	if !ok {
		return ServerSession{}, false
	}
	copied := *session
	copied.State.Actions = append([]sim.ActionRecord(nil), session.State.Actions...)
	return copied, true
}

// Uptime reports how long the hub has been serving.
func (h *Hub) Uptime() time.Duration {
	return time.Since(h.started)
}
