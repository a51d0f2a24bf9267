package settle

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
)

var (
	ErrFeeTooLow        = errors.New("settle: submission fee below minimum")
	ErrNotEnoughEntries = errors.New("settle: fewer than three entries")
)

// LedgerEntry is one score submission as the ledger contract sees it.
type LedgerEntry struct {
	ChannelID string
	Player    string
	Score     int
	GameID    string
}

// Ledger is the external settlement contract's observable surface. The
// in-process store remains the source of truth; ledger calls are mirrored
// best-effort after local settlement, so the two can diverge if a call fails.
type Ledger interface {
	// SubmitScore records a score with its fee; the fee grows the ledger's
	// own pool. Fees below the minimum are rejected.
	SubmitScore(ctx context.Context, entry LedgerEntry, fee *big.Int) error
	// TopScores returns up to n entries ranked by score descending, ties in
	// submission order.
	TopScores(ctx context.Context, n int) ([]LedgerEntry, error)
	// DistributePrizes pays 50/30/20 of the ledger pool to the top three and
	// zeroes the pool. Requires at least three entries.
	DistributePrizes(ctx context.Context) ([3]*big.Int, error)
}

// MemoryLedger stands in for the on-chain contract in the demo deployment.
// Ordering and preconditions match the contract so the two views agree.
type MemoryLedger struct {
	mu      sync.Mutex
	entries []LedgerEntry
	pool    *big.Int
	minFee  *big.Int
}

func NewMemoryLedger(minFee *big.Int) *MemoryLedger {
	if minFee == nil {
		minFee = new(big.Int)
	}
	return &MemoryLedger{
		pool:   new(big.Int),
		minFee: new(big.Int).Set(minFee),
	}
}

func (l *MemoryLedger) SubmitScore(ctx context.Context, entry LedgerEntry, fee *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if fee == nil || fee.Cmp(l.minFee) < 0 {
		return ErrFeeTooLow
	}
	l.entries = append(l.entries, entry)
	l.pool.Add(l.pool, fee)
	return nil
}

func (l *MemoryLedger) TopScores(ctx context.Context, n int) ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ranked := make([]LedgerEntry, len(l.entries))
	copy(ranked, l.entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

func (l *MemoryLedger) DistributePrizes(ctx context.Context) ([3]*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) < MinEntries {
		return [3]*big.Int{}, ErrNotEnoughEntries
	}
	shares := SplitPool(l.pool)
	l.pool.SetInt64(0)
	return shares, nil
}

// Pool reports the ledger's accumulated fees.
func (l *MemoryLedger) Pool() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.pool)
}
