// Package policy evaluates role/route access decisions using an embedded OPA
// engine. The validator consults it for routes that declare a role
// requirement; everything else bypasses it entirely.
package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/ast"
	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/rego"
)

const defaultEntrypoint = "data.apiguard.authz.decision"

// Input is the access-decision input document.
type Input struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Path   string `json:"path"`
	Method string `json:"method"`
}

// Decision is the structured result of a policy evaluation.
type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

// Options control engine construction.
type Options struct {
	// Entrypoint is the decision query path. Empty selects the default.
	Entrypoint string
	// Module is the Rego source to load. Empty selects DefaultModule.
	Module string
}

// Engine holds a prepared Rego query. Safe for concurrent evaluation.
type Engine struct {
	mu       sync.RWMutex
	prepared rego.PreparedEvalQuery
}

// NewEngine compiles the module and prepares the decision query, surfacing
// syntax errors at construction time rather than per request.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	entry := strings.TrimSpace(opts.Entrypoint)
	if entry == "" {
		entry = defaultEntrypoint
	}
	module := opts.Module
	if strings.TrimSpace(module) == "" {
		module = DefaultModule()
	}

	// The module is written in Rego v1 syntax; the legacy rego package still
	// parses v0 by default, so it must be parsed explicitly.
	parsed, err := ast.ParseModuleWithOpts("authz.rego", module, ast.ParserOptions{RegoVersion: ast.RegoV1})
	if err != nil {
		return nil, fmt.Errorf("policy: parse rego module: %w", err)
	}

	prepared, err := rego.New(
		rego.Query(entry),
		rego.ParsedModule(parsed),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: compile rego module: %w", err)
	}

	return &Engine{prepared: prepared}, nil
}

// Evaluate runs the decision query for input. An undefined result is an
// error; callers fail closed on any error from this method.
func (e *Engine) Evaluate(ctx context.Context, input Input) (Decision, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	doc := map[string]any{
		"user_id": input.UserID,
		"role":    input.Role,
		"path":    input.Path,
		"method":  input.Method,
	}

	rs, err := prepared.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return Decision{}, fmt.Errorf("policy: evaluate: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, errors.New("policy: decision undefined")
	}

	raw, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{}, fmt.Errorf("policy: decision has unexpected shape %T", rs[0].Expressions[0].Value)
	}

	decision := Decision{}
	if allow, ok := raw["allow"].(bool); ok {
		decision.Allow = allow
	}
	if reason, ok := raw["reason"].(string); ok {
		decision.Reason = reason
	}
	return decision, nil
}

// Reload swaps in a new module without recreating the engine.
func (e *Engine) Reload(ctx context.Context, opts Options) error {
	next, err := NewEngine(ctx, opts)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.prepared = next.prepared
	e.mu.Unlock()
	return nil
}

// DefaultModule returns the builtin access policy: admin routes require the
// admin role, everything else requires any authenticated role.
func DefaultModule() string {
	return `package apiguard.authz

default decision := {"allow": false, "reason": "role not permitted"}

decision := {"allow": true, "reason": "admin access"} if {
	input.role == "admin"
}

decision := {"allow": true, "reason": "authenticated"} if {
	input.role != "admin"
	input.role != ""
	not startswith(input.path, "/api/admin")
}
`
}
