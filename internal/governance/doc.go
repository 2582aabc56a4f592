// Package governance provides the runtime safety controls the audit pipeline
// uses around its log sink: a circuit breaker that stops hammering a
// persistently failing sink, and a capped-backoff retry policy for transient
// append failures. Neither is visible to request handlers; sink trouble must
// never become an availability outage vector.
package governance
