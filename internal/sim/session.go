package sim

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnonymousPlayer marks a round started without a connected wallet.
const AnonymousPlayer = "anonymous"

// ActionType tags entries in the tamper-evidence trail.
type ActionType string

const (
	ActionCoinCollected ActionType = "coin_collected"
	// ActionScoreUpdate is appended by the registry for each accepted
	// score-update message; the engine itself never emits it.
	ActionScoreUpdate ActionType = "score_update"
)

// StateSnapshot is the game state captured alongside every action.
type StateSnapshot struct {
	Score      int     `json:"score"`
	SpeedLevel int     `json:"speedLevel"`
	CarX       float64 `json:"carX"`
}

// ActionRecord is a single append-only entry in a session's action log.
// Insertion order is significant.
type ActionRecord struct {
	Timestamp int64          `json:"timestamp"`
	Type      ActionType     `json:"actionType"`
	Data      map[string]any `json:"data,omitempty"`
	Snapshot  StateSnapshot  `json:"gameStateSnapshot"`
}

// GameSession accumulates one round's evidence trail. It is mutated only by
// the engine while the round runs and becomes immutable once the round ends.
type GameSession struct {
	SessionID        string         `json:"sessionId"`
	PlayerHash       string         `json:"playerHash"`
	StartTime        int64          `json:"startTime"`
	Actions          []ActionRecord `json:"actions"`
	CoinsCollected   int            `json:"coinsCollected"`
	ObstaclesAvoided int            `json:"obstaclesAvoided"`
}

// NewGameSession allocates a fresh session for the given identity. An empty
// identity is recorded as anonymous.
func NewGameSession(identity string, now time.Time) *GameSession {
	if identity == "" {
		identity = AnonymousPlayer
	}
	startMillis := now.UnixMilli()
	return &GameSession{
		SessionID:  uuid.NewString(),
		PlayerHash: hashPlayer(identity, startMillis),
		StartTime:  startMillis,
		Actions:    make([]ActionRecord, 0, 16),
	}
}

func (s *GameSession) record(actionType ActionType, data map[string]any, snapshot StateSnapshot, now time.Time) {
	s.Actions = append(s.Actions, ActionRecord{
		Timestamp: now.UnixMilli(),
		Type:      actionType,
		Data:      data,
		Snapshot:  snapshot,
	})
}

func hashPlayer(identity string, startMillis int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d", identity, startMillis)))
	return hex.EncodeToString(sum[:])
}
