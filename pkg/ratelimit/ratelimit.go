// Package ratelimit bounds the request rate per (operation, client) key using
// fixed wall-clock windows. The window table is process-local state owned by
// an injectable store; it is not required to survive a restart.
//
// Fixed-window counting admits up to 2x the configured limit across a window
// boundary in the worst case. That is an accepted trade-off of the algorithm,
// not a defect; do not replace it with a sliding window without a requirement
// change.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"
)

// Decision describes the outcome of one rate-limit check, including the
// fields needed to populate X-RateLimit-* response headers.
type Decision struct {
	Limited   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// WriteHeaders sets the X-RateLimit-* response headers from the decision.
// Written on allowed and denied responses alike so clients can pace
// themselves before hitting the limit.
func (d Decision) WriteHeaders(w http.ResponseWriter) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}

// Store owns the window-counter records. Implementations must make the
// read-increment-write sequence for a key atomic: two concurrent calls must
// never both observe count == limit and both be admitted.
type Store interface {
	// Touch creates or advances the window record for key and returns the
	// post-increment decision. A non-nil error means the store could not
	// resolve the key; callers treat that as not limited (fail-open).
	Touch(key string, limit int, window time.Duration, now time.Time) (Decision, error)
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithStore supplies a custom window store.
func WithStore(s Store) Option {
	return func(l *Limiter) { l.store = s }
}

// Limiter decides allow/deny per (operation, client) key. Safe for concurrent
// use; all callers must go through it rather than touching the store directly.
type Limiter struct {
	store Store
	now   func() time.Time
}

// NewLimiter constructs a Limiter backed by an in-memory store unless one is
// injected.
func NewLimiter(opts ...Option) *Limiter {
	l := &Limiter{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.store == nil {
		l.store = NewMemoryStore()
	}
	return l
}

// IsRateLimited reports whether the request identified by key exceeds limit
// within the current window. The first call of a window (or a call after the
// window expired) resets the counter to 1 and is never limited.
func (l *Limiter) IsRateLimited(key string, limit int, window time.Duration) bool {
	return l.Check(key, limit, window).Limited
}

// Check performs the same decision as IsRateLimited and returns header data.
// Store failures fail open: this limiter is a defense-in-depth layer, not the
// sole defense, so availability wins over strict enforcement.
func (l *Limiter) Check(key string, limit int, window time.Duration) Decision {
	if key == "" || limit <= 0 || window <= 0 {
		return Decision{Limit: limit, Remaining: limit}
	}

	d, err := l.store.Touch(key, limit, window, l.now())
	if err != nil {
		return Decision{Limit: limit, Remaining: limit}
	}
	return d
}

// Stats returns a snapshot of live window counters when the underlying store
// supports it, keyed by rate-limit key.
func (l *Limiter) Stats() map[string]WindowStats {
	type statser interface {
		Stats() map[string]WindowStats
	}
	if s, ok := l.store.(statser); ok {
		return s.Stats()
	}
	return nil
}

// WindowStats exposes the state of one window counter.
type WindowStats struct {
	Count       int       `json:"count"`
	Limit       int       `json:"limit"`
	WindowStart time.Time `json:"windowStart"`
	Reset       time.Time `json:"reset"`
}
