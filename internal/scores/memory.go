package scores

import (
	"math/big"
	"sync"
)

// MemoryStore keeps everything in process. It backs tests and the
// storage-less demo mode; semantics match the bbolt store.
type MemoryStore struct {
	mu      sync.Mutex
	entries []HighScoreEntry
	pool    *big.Int
	games   int
	best    map[string]int
	closed  bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pool: new(big.Int),
		best: make(map[string]int),
	}
}

func (s *MemoryStore) Append(entry HighScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) List() ([]HighScoreEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	copied := make([]HighScoreEntry, len(s.entries))
	copy(copied, s.entries)
	return copied, nil
}

func (s *MemoryStore) AddContribution(amount *big.Int) (*big.Int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, ErrClosed
	}
	if amount != nil {
		s.pool.Add(s.pool, amount)
	}
	s.games++
	return new(big.Int).Set(s.pool), s.games, nil
}

func (s *MemoryStore) PrizePool() (*big.Int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, 0, ErrClosed
	}
	return new(big.Int).Set(s.pool), s.games, nil
}

func (s *MemoryStore) ResetPrizePool() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pool.SetInt64(0)
	return nil
}

func (s *MemoryStore) BestScore(player string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.best[player], nil
}

func (s *MemoryStore) UpdateBestScore(player string, score int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if score <= s.best[player] {
		return false, nil
	}
	s.best[player] = score
	return true, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
