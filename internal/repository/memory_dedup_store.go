package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	domrepo "IgniteX/internal/domain/repository"
)

// MemoryDedupStore keeps admission reservations in process memory. It is the
// single-node/development implementation; production uses RedisDedupStore so
// reservations survive restarts.
type MemoryDedupStore struct {
	mu  sync.Mutex
	m   map[string]time.Time
	now func() time.Time
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{m: make(map[string]time.Time), now: time.Now}
}

// WithClock overrides the time source. Used by tests.
func (s *MemoryDedupStore) WithClock(now func() time.Time) *MemoryDedupStore {
	s.now = now
	return s
}

func (s *MemoryDedupStore) Reserve(_ context.Context, key string, window time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if at, ok := s.m[key]; ok {
		age := now.Sub(at)
		if age < window {
			return true, window - age, nil
		}
	}
	s.m[key] = now
	return false, 0, nil
}

func (s *MemoryDedupStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryDedupStore) Sweep(_ context.Context, window time.Duration, cap int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, at := range s.m {
		if now.Sub(at) >= window {
			delete(s.m, key)
			removed++
		}
	}

	if cap > 0 && len(s.m) > cap {
		type entry struct {
			key string
			at  time.Time
		}
		entries := make([]entry, 0, len(s.m))
		for key, at := range s.m {
			entries = append(entries, entry{key, at})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
		for _, e := range entries[:len(entries)-cap] {
			delete(s.m, e.key)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryDedupStore) Len(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m), nil
}

var _ domrepo.DedupStore = (*MemoryDedupStore)(nil)
