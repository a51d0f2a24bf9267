package scores

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	scoresBucket = "scores"
	poolBucket   = "pool"
	bestBucket   = "best"

	poolTotalKey = "total"
	poolGamesKey = "games"
)

// BoltStore persists the leaderboard state in a single bbolt file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt creates the data directory if needed and initializes the buckets.
func OpenBolt(dataDir, name string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, name)
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{scoresBucket, poolBucket, bestBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create %s bucket: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Append(entry HighScoreEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(scoresBucket))
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal entry: %w", err)
		}
		return bucket.Put(u64ToBytes(seq), data)
	})
}

func (s *BoltStore) List() ([]HighScoreEntry, error) {
	var entries []HighScoreEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(scoresBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var entry HighScoreEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshal entry %d: %w", bytesToU64(k), err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BoltStore) AddContribution(amount *big.Int) (*big.Int, int, error) {
	total := new(big.Int)
	games := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(poolBucket))
		total.SetBytes(bucket.Get([]byte(poolTotalKey)))
		if amount != nil {
			total.Add(total, amount)
		}
		games = int(bytesToU64(bucket.Get([]byte(poolGamesKey)))) + 1

		if err := bucket.Put([]byte(poolTotalKey), total.Bytes()); err != nil {
			return fmt.Errorf("put pool total: %w", err)
		}
		return bucket.Put([]byte(poolGamesKey), u64ToBytes(uint64(games)))
	})
	if err != nil {
		return nil, 0, err
	}
	return total, games, nil
}

func (s *BoltStore) PrizePool() (*big.Int, int, error) {
	total := new(big.Int)
	games := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(poolBucket))
		total.SetBytes(bucket.Get([]byte(poolTotalKey)))
		games = int(bytesToU64(bucket.Get([]byte(poolGamesKey))))
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return total, games, nil
}

func (s *BoltStore) ResetPrizePool() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(poolBucket))
		return bucket.Put([]byte(poolTotalKey), []byte{})
	})
}

func (s *BoltStore) BestScore(player string) (int, error) {
	best := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bestBucket))
		best = int(bytesToU64(bucket.Get([]byte(player))))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return best, nil
}

func (s *BoltStore) UpdateBestScore(player string, score int) (bool, error) {
	updated := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bestBucket))
		current := int(bytesToU64(bucket.Get([]byte(player))))
		if score <= current {
			return nil
		}
		updated = true
		return bucket.Put([]byte(player), u64ToBytes(uint64(score)))
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func u64ToBytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func bytesToU64(b []byte) uint64 {
	if len(b) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
