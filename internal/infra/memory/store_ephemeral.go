package memory

import (
	"context"
	"sort"
	"sync"

	"genui/internal/domain"
)

// EphemeralStore keeps collections in process memory.
type EphemeralStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.MemoryDocument
	closed      bool
}

func NewEphemeralStore() *EphemeralStore {
	return &EphemeralStore{collections: make(map[string]map[string]domain.MemoryDocument)}
}

func (s *EphemeralStore) EnsureCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]domain.MemoryDocument)
	}
	return nil
}

func (s *EphemeralStore) Upsert(_ context.Context, collection string, doc domain.MemoryDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]domain.MemoryDocument)
		s.collections[collection] = docs
	}
	doc.Embedding = append([]float32(nil), doc.Embedding...)
	docs[doc.ID] = doc
	return nil
}

func (s *EphemeralStore) Query(ctx context.Context, collection string, query Query) ([]domain.MemoryMatch, error) {
	docs, err := s.List(ctx, collection, nil)
	if err != nil {
		return nil, err
	}
	return rankDocuments(docs, query), nil
}

// List returns documents oldest first.
func (s *EphemeralStore) List(_ context.Context, collection string, where map[string]any) ([]domain.MemoryDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	docs := s.collections[collection]
	out := make([]domain.MemoryDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return filterDocuments(out, where), nil
}

func (s *EphemeralStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}
	return len(s.collections[collection]), nil
}

func (s *EphemeralStore) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	delete(s.collections, name)
	return nil
}

func (s *EphemeralStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
