package domain

import "time"

// EventKind identifies the class of a security-relevant decision.
type EventKind string

const (
	// EventRateLimitExceeded records a request rejected by the rate limiter.
	EventRateLimitExceeded EventKind = "RATE_LIMIT_EXCEEDED"
	// EventUnauthorizedAccess records a request to an authenticated route
	// without a valid session.
	EventUnauthorizedAccess EventKind = "UNAUTHORIZED_ACCESS"
	// EventForbiddenAccess records an authenticated request denied by the
	// role/route access policy.
	EventForbiddenAccess EventKind = "FORBIDDEN_ACCESS"
	// EventMaliciousPrompt records a prompt-injection pattern match.
	EventMaliciousPrompt EventKind = "MALICIOUS_PROMPT_DETECTED"
	// EventContentBlocked records content rejected by the content filter.
	EventContentBlocked EventKind = "CONTENT_BLOCKED"
	// EventAdminAction records a successful privileged mutation.
	EventAdminAction EventKind = "ADMIN_ACTION"
	// EventSuspiciousRequest records an unclassified failure surfaced at the
	// route boundary.
	EventSuspiciousRequest EventKind = "SUSPICIOUS_REQUEST"
)

// Severity grades the impact of a security event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AnonymousUser is recorded as the actor when no session is present.
const AnonymousUser = "anonymous"

// SecurityEvent is an immutable record of a policy-relevant decision made
// while handling a request. Ownership passes to the audit logger at creation
// time; nothing mutates an event afterwards.
type SecurityEvent struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	Severity  Severity       `json:"severity"`
	Blocked   bool           `json:"blocked"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"userId"`
	ClientIP  string         `json:"clientIp"`
	Path      string         `json:"path"`
	Method    string         `json:"method"`
	Details   map[string]any `json:"details,omitempty"`
}
