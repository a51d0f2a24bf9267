package proof

import (
	"testing"
	"time"

	"turbowheel/server/internal/sim"
)

func TestBuildCopiesActionLog(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	session := sim.NewGameSession("0xabc", now)
	session.Actions = append(session.Actions, sim.ActionRecord{
		Timestamp: now.UnixMilli(),
		Type:      sim.ActionCoinCollected,
		Snapshot:  sim.StateSnapshot{Score: 10},
	})
	session.CoinsCollected = 1

	end := now.Add(30 * time.Second)
	envelope := Build(session, 10, end)

	if envelope.SessionID != session.SessionID {
		t.Fatalf("expected session id %s, got %s", session.SessionID, envelope.SessionID)
	}
	if envelope.StartTime != session.StartTime || envelope.EndTime != end.UnixMilli() {
		t.Fatalf("timestamps not carried: start=%d end=%d", envelope.StartTime, envelope.EndTime)
	}
	if len(envelope.Actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(envelope.Actions))
	}

	// Mutating the session afterwards must not reach the envelope.
	session.Actions = append(session.Actions, sim.ActionRecord{Type: sim.ActionScoreUpdate})
	if len(envelope.Actions) != 1 {
		t.Fatalf("envelope shares the session's action slice")
	}
}

func TestBuildToleratesNilSession(t *testing.T) {
	envelope := Build(nil, 0, time.UnixMilli(0))
	if envelope.ProofHash == "" {
		t.Fatalf("expected a digest even for an empty session")
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	a := Digest("session-1", 120, 12, 12)
	b := Digest("session-1", 120, 12, 12)
	if a != b {
		t.Fatalf("same inputs produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha-256 digest, got %q", a)
	}
	if Digest("session-1", 121, 12, 12) == a {
		t.Fatalf("score change did not alter the digest")
	}
	if Digest("session-2", 120, 12, 12) == a {
		t.Fatalf("session change did not alter the digest")
	}
}

func TestValidateScore(t *testing.T) {
	cases := []struct {
		score  int
		valid  bool
		reason string
	}{
		{0, true, ""},
		{9999, true, ""},
		{Ceiling, true, ""},
		{Ceiling + 1, false, ReasonImplausible},
		{-1, false, ReasonNegative},
	}

	for _, tc := range cases {
		valid, reason := ValidateScore(tc.score)
		if valid != tc.valid || reason != tc.reason {
			t.Fatalf("ValidateScore(%d) = (%v, %q), want (%v, %q)", tc.score, valid, reason, tc.valid, tc.reason)
		}
	}
}
