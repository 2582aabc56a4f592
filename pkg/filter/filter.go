// Package filter implements the content-filtering pipeline for free-text user
// input: a keyword denylist, regex-based prompt-injection detection, and
// markup sanitization. Keyword lists and rule sets are data, not logic, and
// are independently testable.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Block reasons returned in Result.Reason. Stable strings: clients and the
// audit trail key on them.
const (
	ReasonInvalidInput    = "invalid input"
	ReasonInappropriate   = "inappropriate content"
	ReasonMaliciousPrompt = "malicious prompt detected"
	ReasonTooLong         = "input exceeds maximum length"
)

// Result is the outcome of one filter invocation. Consumed immediately by the
// caller, never stored.
type Result struct {
	Blocked   bool   `json:"blocked"`
	Sanitized string `json:"sanitized"`
	Reason    string `json:"reason,omitempty"`
	Rule      string `json:"rule,omitempty"`
}

// Validation is the outcome of ValidateInput. On failure Sanitized is always
// empty; no partially sanitized text escapes a rejected input.
type Validation struct {
	Valid     bool   `json:"valid"`
	Sanitized string `json:"sanitized"`
	Reason    string `json:"reason,omitempty"`
}

// Config bundles the rule data for an Engine. Keywords and Rules are appended
// to the builtin sets unless ReplaceBuiltins is set.
type Config struct {
	Keywords        []string
	Rules           []Rule
	ReplaceBuiltins bool
}

// Engine classifies and sanitizes free-text input. Construction compiles all
// patterns once; evaluation is stateless and safe for concurrent use.
type Engine struct {
	keywords []string
	rules    []compiledRule
}

type compiledRule struct {
	name string
	expr *regexp.Regexp
}

// NewEngine compiles the configured rule data into an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	keywords := cfg.Keywords
	rules := cfg.Rules
	if !cfg.ReplaceBuiltins {
		keywords = append(DefaultKeywords(), keywords...)
		rules = append(DefaultInjectionRules(), rules...)
	}

	e := &Engine{keywords: make([]string, 0, len(keywords))}
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		e.keywords = append(e.keywords, kw)
	}

	e.rules = make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		name := strings.TrimSpace(rule.Name)
		if name == "" {
			return nil, fmt.Errorf("filter: rule name is required")
		}
		pattern := strings.TrimSpace(rule.Pattern)
		if pattern == "" {
			return nil, fmt.Errorf("filter: pattern is required for rule %s", name)
		}
		expr, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter: invalid pattern for rule %s: %w", name, err)
		}
		e.rules = append(e.rules, compiledRule{name: name, expr: expr})
	}

	return e, nil
}

// Default returns an Engine carrying only the builtin rule data.
func Default() *Engine {
	e, err := NewEngine(Config{})
	if err != nil {
		// Builtin patterns are compile-checked by tests; reaching this means
		// the binary shipped with a broken ruleset.
		panic(fmt.Sprintf("filter: builtin rules failed to compile: %v", err))
	}
	return e
}

// FilterContent classifies text and produces a sanitized copy. It never
// panics and never returns an error; every unsafe path yields a structured
// blocked result.
func (e *Engine) FilterContent(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Blocked: true, Reason: ReasonInvalidInput}
	}

	lower := strings.ToLower(text)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return Result{Blocked: true, Reason: ReasonInappropriate}
		}
	}

	for _, rule := range e.rules {
		if rule.expr.MatchString(text) {
			return Result{Blocked: true, Reason: ReasonMaliciousPrompt, Rule: rule.name}
		}
	}

	return Result{Sanitized: strings.TrimSpace(Sanitize(text))}
}

// ValidateInput runs the full filter pipeline plus a length ceiling. The
// first failing check wins.
func (e *Engine) ValidateInput(text string, maxLength int) Validation {
	if maxLength > 0 && len(text) > maxLength {
		return Validation{Reason: ReasonTooLong}
	}

	res := e.FilterContent(text)
	if res.Blocked {
		return Validation{Reason: res.Reason}
	}
	return Validation{Valid: true, Sanitized: res.Sanitized}
}
