package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"genui/internal/domain"
)

const boltFileName = "session_memory.db"

// BoltStore persists collections in a bbolt file, one bucket per collection.
type BoltStore struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

// OpenBoltStore opens (or creates) the memory database inside dir.
func OpenBoltStore(dir string) (*BoltStore, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("memory persist dir is required")
	}
	if err := os.MkdirAll(trimmed, 0o755); err != nil {
		return nil, fmt.Errorf("ensure memory dir: %w", err)
	}
	path := filepath.Join(trimmed, boltFileName)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	return &BoltStore{db: db, path: path}, nil
}

func (s *BoltStore) Path() string {
	return s.path
}

func (s *BoltStore) EnsureCollection(_ context.Context, name string) error {
	return s.update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
		return nil
	})
}

func (s *BoltStore) Upsert(_ context.Context, collection string, doc domain.MemoryDocument) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	return s.update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
		if err := bucket.Put([]byte(doc.ID), value); err != nil {
			return fmt.Errorf("write document %s: %w", doc.ID, err)
		}
		return nil
	})
}

func (s *BoltStore) Query(ctx context.Context, collection string, query Query) ([]domain.MemoryMatch, error) {
	docs, err := s.List(ctx, collection, nil)
	if err != nil {
		return nil, err
	}
	return rankDocuments(docs, query), nil
}

// List returns documents oldest first.
func (s *BoltStore) List(_ context.Context, collection string, where map[string]any) ([]domain.MemoryDocument, error) {
	var docs []domain.MemoryDocument
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(key, value []byte) error {
			var doc domain.MemoryDocument
			if err := json.Unmarshal(value, &doc); err != nil {
				return fmt.Errorf("decode document %s: %w", key, err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return filterDocuments(docs, where), nil
}

func (s *BoltStore) Count(_ context.Context, collection string) (int, error) {
	count := 0
	err := s.view(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		count = bucket.Stats().KeyN
		return nil
	})
	return count, err
}

func (s *BoltStore) DropCollection(_ context.Context, name string) error {
	return s.update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(name))
		if err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return fmt.Errorf("drop collection %s: %w", name, err)
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *BoltStore) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *BoltStore) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.Update(fn)
}
