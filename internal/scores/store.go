// Package scores owns the durable leaderboard state: the append-only
// high-score list, the prize-pool counters, and per-player best scores.
package scores

import (
	"errors"
	"math/big"

	"turbowheel/server/internal/proof"
)

var ErrClosed = errors.New("scores: store closed")

// HighScoreEntry is one settled round. The list is append-only; ranking is a
// derived view and never mutates the stored order.
type HighScoreEntry struct {
	Player    string            `json:"player"`
	Score     int               `json:"score"`
	Timestamp int64             `json:"timestamp"`
	ChannelID string            `json:"channelId,omitempty"`
	GameID    string            `json:"gameId"`
	Proof     *proof.ScoreProof `json:"proof,omitempty"`
}

// Store abstracts the demo's persistence so handlers receive an owned state
// object rather than a process-wide singleton.
type Store interface {
	Append(entry HighScoreEntry) error
	List() ([]HighScoreEntry, error)

	// AddContribution grows the prize pool by the given wei amount and
	// increments the games counter, returning the new totals.
	AddContribution(amount *big.Int) (*big.Int, int, error)
	PrizePool() (*big.Int, int, error)
	// ResetPrizePool zeroes the pool after a distribution. The games counter
	// is preserved; it counts submissions, not pool epochs.
	ResetPrizePool() error

	BestScore(player string) (int, error)
	// UpdateBestScore stores the score only when it beats the previous best
	// and reports whether it did.
	UpdateBestScore(player string, score int) (bool, error)

	Close() error
}

// Stats is the aggregate view served by the stats endpoint.
type Stats struct {
	TotalGames   int     `json:"totalGames"`
	TotalPlayers int     `json:"totalPlayers"`
	AverageScore float64 `json:"averageScore"`
	HighestScore int     `json:"highestScore"`
	PrizePool    string  `json:"prizePool"`
}

// ComputeStats derives the aggregate view from the entry list and pool state.
func ComputeStats(entries []HighScoreEntry, pool *big.Int, totalGames int, formatPool func(*big.Int) string) Stats {
	stats := Stats{TotalGames: totalGames}
	if formatPool != nil {
		stats.PrizePool = formatPool(pool)
	}

	players := make(map[string]struct{}, len(entries))
	sum := 0
	for _, entry := range entries {
		players[entry.Player] = struct{}{}
		sum += entry.Score
		if entry.Score > stats.HighestScore {
			stats.HighestScore = entry.Score
		}
	}
	stats.TotalPlayers = len(players)
	if len(entries) > 0 {
		stats.AverageScore = float64(sum) / float64(len(entries))
	}
	return stats
}
