package session

import (
	"context"

	"turbowheel/server/logging"
)

const (
	// EventChannelJoined is emitted when a connection opens a game session.
	EventChannelJoined logging.EventType = "session.channel_joined"
	// EventSessionFinalized is emitted when a game-over settles a session.
	EventSessionFinalized logging.EventType = "session.finalized"
	// EventSessionAbandoned is emitted when a connection drops mid-round.
	EventSessionAbandoned logging.EventType = "session.abandoned"
	// EventScoreRejected is emitted when a terminal score fails validation.
	EventScoreRejected logging.EventType = "session.score_rejected"
	// EventScoreRegression is emitted when a score arrives below the previous
	// one on the same channel. Logged only; the update is still accepted.
	EventScoreRegression logging.EventType = "session.score_regression"
)

// ChannelJoinedPayload captures the identity attached to a new session.
type ChannelJoinedPayload struct {
	Player string `json:"player"`
	GameID string `json:"gameId"`
}

// FinalizedPayload captures the settled terminal state.
type FinalizedPayload struct {
	Score     int    `json:"score"`
	Nonce     uint64 `json:"nonce"`
	ProofHash string `json:"proofHash,omitempty"`
}

// AbandonedPayload captures the last known state of a dropped session.
type AbandonedPayload struct {
	Score int    `json:"score"`
	Nonce uint64 `json:"nonce"`
}

// ScoreRejectedPayload captures why a terminal score was refused.
type ScoreRejectedPayload struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// ScoreRegressionPayload captures a non-monotonic score sequence.
type ScoreRegressionPayload struct {
	Previous int `json:"previous"`
	Reported int `json:"reported"`
}

// ChannelJoined publishes a session creation event.
func ChannelJoined(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload ChannelJoinedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventChannelJoined,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

// Finalized publishes a session settlement event.
func Finalized(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload FinalizedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventSessionFinalized,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

// Abandoned publishes a mid-round disconnect event.
func Abandoned(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload AbandonedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventSessionAbandoned,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

// ScoreRejected publishes a validation refusal event.
func ScoreRejected(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload ScoreRejectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventScoreRejected,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

// ScoreRegression publishes a warning for a decreasing score sequence.
func ScoreRegression(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload ScoreRegressionPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventScoreRegression,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}
