package ratelimit

import (
	"sync"
	"time"
)

const (
	// pruneInterval is how many Touch calls elapse between lazy prune sweeps.
	pruneInterval = 256
	// staleWindows is how many expired windows a record may sit idle before
	// a sweep drops it. Bounds memory under unique-IP churn.
	staleWindows = 3
)

type window struct {
	count  int
	start  time.Time
	limit  int
	length time.Duration
}

// MemoryStore is the process-wide in-memory window table. One mutex guards
// the whole table so the read-increment-write sequence for a key executes as
// a single critical section.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	touches int
}

// NewMemoryStore creates an empty window table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Touch implements Store.
func (s *MemoryStore) Touch(key string, limit int, windowLen time.Duration, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touches++
	if s.touches >= pruneInterval {
		s.touches = 0
		s.pruneLocked(now)
	}

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= windowLen {
		s.windows[key] = &window{count: 1, start: now, limit: limit, length: windowLen}
		return Decision{
			Limit:     limit,
			Remaining: limit - 1,
			Reset:     now.Add(windowLen),
		}, nil
	}

	w.count++
	w.limit = limit
	w.length = windowLen

	remaining := limit - w.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Limited:   w.count > limit,
		Limit:     limit,
		Remaining: remaining,
		Reset:     w.start.Add(windowLen),
	}, nil
}

// pruneLocked drops records whose window expired more than staleWindows
// window-lengths ago. Called with the lock held.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for key, w := range s.windows {
		if now.Sub(w.start) > time.Duration(staleWindows+1)*w.length {
			delete(s.windows, key)
		}
	}
}

// Len returns the number of live window records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// Stats snapshots all live window counters.
func (s *MemoryStore) Stats() map[string]WindowStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]WindowStats, len(s.windows))
	for key, w := range s.windows {
		stats[key] = WindowStats{
			Count:       w.count,
			Limit:       w.limit,
			WindowStart: w.start,
			Reset:       w.start.Add(w.length),
		}
	}
	return stats
}
