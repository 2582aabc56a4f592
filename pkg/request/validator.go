// Package request implements the single composition point gating API
// endpoints: rate limiting, authentication, role policy, and payload
// validation, executed strictly in that order with short-circuit failure.
//
// The ordering is deliberate. The cheapest denial (rate limit) runs before
// the auth lookup so floods shed load early, and auth runs before body
// parsing so unauthenticated malformed requests earn a 401, not a 400,
// keeping schema shape invisible to unauthenticated callers.
package request

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kindredai/apiguard/pkg/audit"
	"github.com/kindredai/apiguard/pkg/domain"
	"github.com/kindredai/apiguard/pkg/policy"
	"github.com/kindredai/apiguard/pkg/ratelimit"
	"github.com/kindredai/apiguard/pkg/schema"
	"github.com/kindredai/apiguard/pkg/telemetry"
)

const (
	// DefaultRateLimitWindow applies when a policy omits the window.
	DefaultRateLimitWindow = time.Minute
	// maxBodyBytes bounds request bodies read by the validator.
	maxBodyBytes = 1 << 20
)

// SessionProvider is the external auth collaborator. A nil session with a
// nil error means the request is unauthenticated; the validator never
// distinguishes provider errors from absent sessions.
type SessionProvider interface {
	GetSession(r *http.Request) (*domain.Session, error)
}

// Policy declares the per-route validation requirements.
type Policy struct {
	RequireAuth bool
	// RequireRole routes the request through the access-policy engine when
	// set. Implies RequireAuth.
	RequireRole string
	// RateLimitKey names the operation for rate-limit keying; the client
	// identity is appended. Empty disables rate limiting for the route.
	RateLimitKey    string
	RateLimit       int
	RateLimitWindow time.Duration
}

// Result is the validator's success outcome.
type Result struct {
	Data    map[string]any
	Session *domain.Session
}

// Validator orchestrates the request-time security pipeline.
type Validator struct {
	limiter *ratelimit.Limiter
	auth    SessionProvider
	audit   *audit.Logger
	access  *policy.Engine
	logger  *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithAccessPolicy attaches the role/route policy engine.
func WithAccessPolicy(e *policy.Engine) Option {
	return func(v *Validator) { v.access = e }
}

// WithLogger attaches a component logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// NewValidator wires the pipeline's collaborators together.
func NewValidator(limiter *ratelimit.Limiter, auth SessionProvider, auditLog *audit.Logger, opts ...Option) *Validator {
	v := &Validator{
		limiter: limiter,
		auth:    auth,
		audit:   auditLog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateAPIRequest runs the ordered pipeline against r. On success it
// returns the validated payload and the session (nil for anonymous routes).
// On failure the returned error is always a classified *domain.APIError, and
// every policy rejection has produced exactly one security event before this
// method returns.
//
// When the route is rate limited, the X-RateLimit-* headers are written to w
// on allowed and denied requests alike. A nil w skips the headers.
func (v *Validator) ValidateAPIRequest(w http.ResponseWriter, r *http.Request, s schema.Schema, p Policy) (Result, error) {
	start := time.Now()
	ctx := r.Context()
	meta := audit.RequestMeta{
		ClientIP: ClientIP(r),
		Path:     r.URL.Path,
		Method:   r.Method,
	}
	route := p.RateLimitKey
	if route == "" {
		route = r.URL.Path
	}

	// Step 1: rate limit.
	if p.RateLimitKey != "" && p.RateLimit > 0 {
		window := p.RateLimitWindow
		if window <= 0 {
			window = DefaultRateLimitWindow
		}
		key := p.RateLimitKey + ":" + meta.ClientIP
		decision := v.limiter.Check(key, p.RateLimit, window)
		if w != nil {
			decision.WriteHeaders(w)
		}
		if decision.Limited {
			v.audit.LogSecurityEvent(ctx, domain.EventRateLimitExceeded, meta,
				map[string]any{"key": p.RateLimitKey, "limit": p.RateLimit, "windowMs": window.Milliseconds()},
				audit.EventMeta{Severity: domain.SeverityMedium, Blocked: true})
			telemetry.RecordValidation(ctx, route, telemetry.OutcomeRateLimited, time.Since(start))
			return Result{}, domain.NewRateLimited()
		}
	}

	// Step 2: authentication.
	var session *domain.Session
	if p.RequireAuth || p.RequireRole != "" {
		sess, err := v.auth.GetSession(r)
		if err != nil {
			v.logger.Debug("session lookup failed", "error", err, "path", meta.Path)
			sess = nil
		}
		if sess == nil {
			v.audit.LogSecurityEvent(ctx, domain.EventUnauthorizedAccess, meta, nil,
				audit.EventMeta{Severity: domain.SeverityHigh, Blocked: true})
			telemetry.RecordValidation(ctx, route, telemetry.OutcomeUnauthorized, time.Since(start))
			return Result{}, domain.NewUnauthorized()
		}
		session = sess
	}

	// Step 3: role/route access policy.
	if p.RequireRole != "" {
		if err := v.checkAccess(r, session, meta, p.RequireRole); err != nil {
			telemetry.RecordValidation(ctx, route, telemetry.OutcomeForbidden, time.Since(start))
			return Result{}, err
		}
	}

	// Steps 4 and 5: payload parse and schema validation.
	var data map[string]any
	if len(s.Fields) > 0 {
		payload, err := decodeBody(r)
		if err != nil {
			// A client bug, not a security signal: no event logged.
			telemetry.RecordValidation(ctx, route, telemetry.OutcomeInvalidJSON, time.Since(start))
			return Result{}, domain.NewInvalidJSON()
		}

		data, err = schema.Validate(s, payload)
		if err != nil {
			var violation *schema.ViolationError
			msg := "Request payload is invalid."
			if errors.As(err, &violation) {
				msg = violation.Message
			}
			telemetry.RecordValidation(ctx, route, telemetry.OutcomeInvalidInput, time.Since(start))
			return Result{}, domain.NewValidationFailed(msg)
		}
	}

	telemetry.RecordValidation(ctx, route, telemetry.OutcomeAllowed, time.Since(start))
	return Result{Data: data, Session: session}, nil
}

// checkAccess consults the policy engine when attached, otherwise falls back
// to direct role comparison. Engine failures deny: access control fails
// closed, unlike the rate limiter.
func (v *Validator) checkAccess(r *http.Request, session *domain.Session, meta audit.RequestMeta, requiredRole string) error {
	ctx := r.Context()

	if v.access != nil {
		decision, err := v.access.Evaluate(ctx, policy.Input{
			UserID: session.UserID,
			Role:   session.Role,
			Path:   r.URL.Path,
			Method: r.Method,
		})
		if err != nil {
			v.logger.Error("access policy evaluation failed", "error", err, "path", meta.Path)
		}
		if err != nil || !decision.Allow {
			v.audit.LogSecurityEvent(ctx, domain.EventForbiddenAccess, meta,
				map[string]any{"role": session.Role, "reason": decision.Reason},
				audit.EventMeta{Severity: domain.SeverityHigh, Blocked: true, UserID: session.UserID})
			return domain.NewForbidden()
		}
		return nil
	}

	if session.Role == requiredRole || session.Role == domain.RoleAdmin {
		return nil
	}
	v.audit.LogSecurityEvent(ctx, domain.EventForbiddenAccess, meta,
		map[string]any{"role": session.Role},
		audit.EventMeta{Severity: domain.SeverityHigh, Blocked: true, UserID: session.UserID})
	return domain.NewForbidden()
}

func decodeBody(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
