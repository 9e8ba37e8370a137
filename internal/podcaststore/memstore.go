package podcaststore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-memory [Store] for tests and runs without a database.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemStore returns an empty [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record), now: time.Now}
}

// Create implements [Store.Create].
func (s *MemStore) Create(_ context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.prepare()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return ErrDuplicateID
	}
	r.CreatedAt = s.now().UTC()
	s.records[r.ID] = clone(*r)
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clone(r)
	return &c, nil
}

// ListByUser implements [Store.ListByUser].
func (s *MemStore) ListByUser(_ context.Context, userID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, clone(r))
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Ping implements [Store.Ping]. It always succeeds.
func (s *MemStore) Ping(context.Context) error { return nil }

func clone(r Record) Record {
	r.URLs = maps.Clone(r.URLs)
	return r
}
