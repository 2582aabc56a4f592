package audit

import (
	"context"
	"sync"

	"github.com/kindredai/apiguard/pkg/domain"
)

// Sink persists security events. Implementations may fail; the Logger
// tolerates every failure mode without surfacing it to request handlers.
type Sink interface {
	Append(ctx context.Context, event domain.SecurityEvent) error
}

// MemorySink is an in-memory Sink used in tests and as the default when no
// persistent sink is configured.
type MemorySink struct {
	mu     sync.RWMutex
	events []domain.SecurityEvent
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, event domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of everything appended so far, in append order.
func (s *MemorySink) Events() []domain.SecurityEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SecurityEvent(nil), s.events...)
}

// Len returns the number of appended events.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
