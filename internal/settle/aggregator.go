// Package settle ranks settled rounds and splits the accumulated prize pool.
package settle

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"turbowheel/server/internal/scores"
	"turbowheel/server/logging"
	loggingsettlement "turbowheel/server/logging/settlement"
)

// MinEntries is the distribution precondition shared with the ledger.
const MinEntries = 3

// DefaultTopN bounds the leaderboard view when no limit is requested.
const DefaultTopN = 10

// Share is one rank's cut, rendered in ether.
type Share struct {
	Player string `json:"player,omitempty"`
	Amount string `json:"amount"`
}

// Distribution is the 50/30/20 payout for the top three ranks.
type Distribution struct {
	First  Share `json:"first"`
	Second Share `json:"second"`
	Third  Share `json:"third"`
}

// Config tunes the aggregator.
type Config struct {
	TopN         int
	Contribution *big.Int
	Publisher    logging.Publisher
}

// Aggregator owns settlement: pool contributions per finalized round, the
// ranked leaderboard view, and prize distribution. It is handed to request
// handlers explicitly; there is no package-level state.
type Aggregator struct {
	store        scores.Store
	ledger       Ledger
	publisher    logging.Publisher
	topN         int
	contribution *big.Int
}

func NewAggregator(store scores.Store, ledger Ledger, cfg Config) *Aggregator {
	topN := cfg.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	contribution := cfg.Contribution
	if contribution == nil {
		contribution = new(big.Int)
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	return &Aggregator{
		store:        store,
		ledger:       ledger,
		publisher:    publisher,
		topN:         topN,
		contribution: new(big.Int).Set(contribution),
	}
}

// Rank returns the entries sorted by score descending. The sort is stable, so
// ties keep their original submission order.
func Rank(entries []scores.HighScoreEntry) []scores.HighScoreEntry {
	ranked := make([]scores.HighScoreEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Leaderboard returns the top-n view; n<=0 uses the configured default.
func (a *Aggregator) Leaderboard(n int) ([]scores.HighScoreEntry, error) {
	entries, err := a.store.List()
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	ranked := Rank(entries)
	if n <= 0 {
		n = a.topN
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// Contribute settles one accepted submission: appends the entry, grows the
// pool by the fixed per-game increment, and mirrors the score to the ledger.
// A ledger failure is logged and does not undo local state.
func (a *Aggregator) Contribute(ctx context.Context, seq uint64, entry scores.HighScoreEntry) error {
	if err := a.store.Append(entry); err != nil {
		return fmt.Errorf("append score: %w", err)
	}
	total, games, err := a.store.AddContribution(a.contribution)
	if err != nil {
		return fmt.Errorf("add contribution: %w", err)
	}

	actor := logging.EntityRef{ID: entry.Player, Kind: logging.EntityKindPlayer}
	loggingsettlement.PoolContribution(ctx, a.publisher, seq, actor, loggingsettlement.PoolContributionPayload{
		AmountWei:  a.contribution.String(),
		TotalWei:   total.String(),
		TotalGames: games,
	})

	if a.ledger != nil {
		ledgerEntry := LedgerEntry{
			ChannelID: entry.ChannelID,
			Player:    entry.Player,
			Score:     entry.Score,
			GameID:    entry.GameID,
		}
		if err := a.ledger.SubmitScore(ctx, ledgerEntry, a.contribution); err != nil {
			loggingsettlement.LedgerError(ctx, a.publisher, seq, actor, loggingsettlement.LedgerErrorPayload{
				Op:     "submitScore",
				Reason: err.Error(),
			})
		}
	}
	return nil
}

// PendingSplit previews the 50/30/20 shares of the current pool without
// mutating anything.
func (a *Aggregator) PendingSplit() (Distribution, int, error) {
	pool, games, err := a.store.PrizePool()
	if err != nil {
		return Distribution{}, 0, fmt.Errorf("read prize pool: %w", err)
	}
	shares := SplitPool(pool)
	return Distribution{
		First:  Share{Amount: FormatEther(shares[0])},
		Second: Share{Amount: FormatEther(shares[1])},
		Third:  Share{Amount: FormatEther(shares[2])},
	}, games, nil
}

// Distribute pays the current pool to the top three ranks and resets it.
// With fewer than MinEntries settled rounds the pool is left untouched.
func (a *Aggregator) Distribute(ctx context.Context, seq uint64) (Distribution, error) {
	entries, err := a.store.List()
	if err != nil {
		return Distribution{}, fmt.Errorf("list scores: %w", err)
	}
	actor := logging.EntityRef{ID: "aggregator", Kind: logging.EntityKindServer}
	if len(entries) < MinEntries {
		loggingsettlement.DistributionRejected(ctx, a.publisher, seq, actor, loggingsettlement.DistributionRejectedPayload{
			Entries: len(entries),
			Reason:  ErrNotEnoughEntries.Error(),
		})
		return Distribution{}, ErrNotEnoughEntries
	}

	pool, _, err := a.store.PrizePool()
	if err != nil {
		return Distribution{}, fmt.Errorf("read prize pool: %w", err)
	}
	shares := SplitPool(pool)
	ranked := Rank(entries)

	if err := a.store.ResetPrizePool(); err != nil {
		return Distribution{}, fmt.Errorf("reset prize pool: %w", err)
	}

	winners := [3]string{ranked[0].Player, ranked[1].Player, ranked[2].Player}
	loggingsettlement.PrizesDistributed(ctx, a.publisher, seq, actor, loggingsettlement.PrizesDistributedPayload{
		PoolWei: pool.String(),
		Winners: winners,
		Shares:  [3]string{shares[0].String(), shares[1].String(), shares[2].String()},
	})

	if a.ledger != nil {
		if _, err := a.ledger.DistributePrizes(ctx); err != nil {
			loggingsettlement.LedgerError(ctx, a.publisher, seq, actor, loggingsettlement.LedgerErrorPayload{
				Op:     "distributePrizes",
				Reason: err.Error(),
			})
		}
	}

	return Distribution{
		First:  Share{Player: winners[0], Amount: FormatEther(shares[0])},
		Second: Share{Player: winners[1], Amount: FormatEther(shares[1])},
		Third:  Share{Player: winners[2], Amount: FormatEther(shares[2])},
	}, nil
}

// SplitPool cuts the pool 50/30/20. The third share absorbs the remainder so
// the three always sum to the pool exactly.
func SplitPool(pool *big.Int) [3]*big.Int {
	if pool == nil {
		pool = new(big.Int)
	}
	hundred := big.NewInt(100)
	first := new(big.Int).Mul(pool, big.NewInt(50))
	first.Quo(first, hundred)
	second := new(big.Int).Mul(pool, big.NewInt(30))
	second.Quo(second, hundred)
	third := new(big.Int).Sub(pool, first)
	third.Sub(third, second)
	return [3]*big.Int{first, second, third}
}
