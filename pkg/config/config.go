// Package config loads the guard configuration from a YAML file and pushes
// hot reloads to subscribers when the file changes on disk.
package config

import (
	"fmt"
	"time"

	"github.com/kindredai/apiguard/pkg/logging"
)

// RatePolicy bounds one operation's request rate per client.
type RatePolicy struct {
	Limit    int `yaml:"limit"`
	WindowMS int `yaml:"windowMs"`
}

// Window returns the configured window as a duration.
func (p RatePolicy) Window() time.Duration {
	return time.Duration(p.WindowMS) * time.Millisecond
}

// FilterRule is a named regex pattern merged into the content filter's
// builtin injection rules.
type FilterRule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
}

// FilterConfig extends the content filter's builtin rule data.
type FilterConfig struct {
	ExtraKeywords []string     `yaml:"extraKeywords"`
	ExtraRules    []FilterRule `yaml:"extraRules"`
}

// AuditConfig selects the security-event sink.
type AuditConfig struct {
	// Path is the JSONL sink file. Empty keeps events in memory.
	Path      string `yaml:"path"`
	QueueSize int    `yaml:"queueSize"`
}

// TelemetryConfig configures the OTLP trace exporter.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Environment string `yaml:"environment"`
	Insecure    bool   `yaml:"insecure"`
}

// Config is the full guard configuration snapshot.
type Config struct {
	Logging    logging.Config        `yaml:"logging"`
	Telemetry  TelemetryConfig       `yaml:"telemetry"`
	Audit      AuditConfig           `yaml:"audit"`
	RateLimits map[string]RatePolicy `yaml:"rateLimits"`
	Filter     FilterConfig          `yaml:"filter"`
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	for route, rl := range c.RateLimits {
		if rl.Limit <= 0 {
			return fmt.Errorf("config: rate limit for %q must be positive", route)
		}
		if rl.WindowMS <= 0 {
			return fmt.Errorf("config: rate window for %q must be positive", route)
		}
	}
	for _, rule := range c.Filter.ExtraRules {
		if rule.Name == "" || rule.Pattern == "" {
			return fmt.Errorf("config: filter rules need both name and pattern")
		}
	}
	if c.Audit.QueueSize < 0 {
		return fmt.Errorf("config: audit queue size must not be negative")
	}
	return nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Logging: logging.Config{Level: "info"},
		RateLimits: map[string]RatePolicy{
			"chat-message": {Limit: 30, WindowMS: 60_000},
			"auth":         {Limit: 10, WindowMS: 60_000},
			"api-read":     {Limit: 120, WindowMS: 60_000},
		},
	}
}
