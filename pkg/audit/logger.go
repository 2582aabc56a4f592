// Package audit records a structured, timestamped account of every
// security-relevant decision made during request handling. Events are handed
// off to a bounded queue consumed by one background writer; the caller's
// response path never waits on, and never observes, sink I/O.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kindredai/apiguard/internal/governance"
	"github.com/kindredai/apiguard/pkg/domain"
	"github.com/kindredai/apiguard/pkg/telemetry"
)

const defaultQueueSize = 1024

// RequestMeta carries the request attributes recorded on every event.
type RequestMeta struct {
	ClientIP string
	Path     string
	Method   string
}

// EventMeta carries the caller-supplied disposition of an event.
type EventMeta struct {
	Severity domain.Severity
	Blocked  bool
	// UserID is the acting user; empty means anonymous.
	UserID string
}

// Option configures a Logger.
type Option func(*Logger)

// WithQueueSize overrides the bounded queue capacity.
func WithQueueSize(n int) Option {
	return func(l *Logger) {
		if n > 0 {
			l.queue = make(chan domain.SecurityEvent, n)
		}
	}
}

// WithBreaker overrides the sink circuit breaker.
func WithBreaker(b *governance.Breaker) Option {
	return func(l *Logger) { l.breaker = b }
}

// WithRetry overrides the sink retry policy.
func WithRetry(r *governance.RetryPolicy) Option {
	return func(l *Logger) { l.retry = r }
}

// Logger shapes security events and forwards them to the sink through a
// bounded queue. Best effort by contract: a full queue drops the event, a
// failing sink is retried then skipped, and either condition is reported on
// the diagnostic channel only.
type Logger struct {
	sink    Sink
	queue   chan domain.SecurityEvent
	breaker *governance.Breaker
	retry   *governance.RetryPolicy

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewLogger constructs a Logger writing to sink and starts its background
// writer. Callers should Close the logger during shutdown to drain the queue.
func NewLogger(sink Sink, opts ...Option) *Logger {
	l := &Logger{
		sink: sink,
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.queue == nil {
		l.queue = make(chan domain.SecurityEvent, defaultQueueSize)
	}
	if l.breaker == nil {
		l.breaker = governance.NewBreaker(governance.DefaultBreakerConfig())
	}
	if l.retry == nil {
		l.retry = governance.NewRetryPolicy(governance.DefaultRetryConfig())
	}

	go l.writeLoop()
	return l
}

// LogSecurityEvent shapes an event and enqueues it for persistence. It never
// blocks and never returns an error: security logging must not become an
// availability outage vector.
func (l *Logger) LogSecurityEvent(ctx context.Context, kind domain.EventKind, req RequestMeta, details map[string]any, meta EventMeta) {
	userID := meta.UserID
	if userID == "" {
		userID = domain.AnonymousUser
	}
	clientIP := req.ClientIP
	if clientIP == "" {
		clientIP = "unknown"
	}

	event := domain.SecurityEvent{
		ID:        uuid.New().String(),
		Kind:      kind,
		Severity:  meta.Severity,
		Blocked:   meta.Blocked,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		ClientIP:  clientIP,
		Path:      req.Path,
		Method:    req.Method,
		Details:   details,
	}

	telemetry.RecordSecurityEvent(ctx, string(kind), string(meta.Severity), meta.Blocked)

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		log.Warn().Str("kind", string(kind)).Msg("audit: event received after close, dropped")
		return
	}

	select {
	case l.queue <- event:
	default:
		telemetry.RecordAuditDrop(ctx)
		log.Error().Str("kind", string(kind)).Msg("audit: queue full, event dropped")
	}
}

// QueueDepth returns the number of events waiting for the writer.
func (l *Logger) QueueDepth() int {
	return len(l.queue)
}

// Close stops accepting events and waits for the writer to drain the queue
// or for ctx to expire.
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeLoop is the single consumer of the queue. Appends run under the
// circuit breaker with retry; every failure is swallowed after being
// reported on the diagnostic channel, preserving per-process append order
// for the events that do land.
func (l *Logger) writeLoop() {
	defer close(l.done)

	for event := range l.queue {
		err := l.breaker.Execute(func() error {
			return l.retry.Do(context.Background(), func() error {
				return l.sink.Append(context.Background(), event)
			})
		})
		if err != nil {
			log.Error().
				Err(err).
				Str("kind", string(event.Kind)).
				Str("id", event.ID).
				Msg("audit: failed to persist security event")
		}
	}
}
