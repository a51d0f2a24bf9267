// Package proof builds and checks the score-proof envelope produced at round
// end. The digest is a fixed-point for equality checks, not a cryptographic
// commitment; validation is deliberately permissive.
package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"turbowheel/server/internal/sim"
)

// Ceiling is the only hard validation bound. Scores above it are rejected;
// everything else is accepted regardless of action-log plausibility.
const Ceiling = 10000

const (
	ReasonNegative    = "score_negative"
	ReasonImplausible = "score_implausible"
)

// ScoreProof is the tamper-evidence envelope derived once per round.
type ScoreProof struct {
	SessionID        string             `json:"sessionId"`
	PlayerHash       string             `json:"playerHash"`
	StartTime        int64              `json:"startTime"`
	EndTime          int64              `json:"endTime"`
	Score            int                `json:"score"`
	Actions          []sim.ActionRecord `json:"actions"`
	CoinsCollected   int                `json:"coinsCollected"`
	ObstaclesAvoided int                `json:"obstaclesAvoided"`
	ProofHash        string             `json:"proofHash"`
}

// Build derives the envelope from a finished session. The action log is
// copied so the envelope stays stable even if the caller reuses the session.
func Build(session *sim.GameSession, score int, endTime time.Time) ScoreProof {
	if session == nil {
		session = &sim.GameSession{}
	}
	actions := append([]sim.ActionRecord(nil), session.Actions...)
	return ScoreProof{
		SessionID:        session.SessionID,
		PlayerHash:       session.PlayerHash,
		StartTime:        session.StartTime,
		EndTime:          endTime.UnixMilli(),
		Score:            score,
		Actions:          actions,
		CoinsCollected:   session.CoinsCollected,
		ObstaclesAvoided: session.ObstaclesAvoided,
		ProofHash:        Digest(session.SessionID, score, len(actions), session.CoinsCollected),
	}
}

// Digest computes the deterministic hash over the envelope's identity tuple.
func Digest(sessionID string, score, actionCount, coinsCollected int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d|%d", sessionID, score, actionCount, coinsCollected)))
	return hex.EncodeToString(sum[:])
}

// ValidateScore applies the permissive policy: only negative scores and
// scores beyond the ceiling are refused. The boundary value itself passes.
func ValidateScore(score int) (bool, string) {
	if score < 0 {
		return false, ReasonNegative
	}
	if score > Ceiling {
		return false, ReasonImplausible
	}
	return true, ""
}
