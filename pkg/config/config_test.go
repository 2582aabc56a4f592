package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 30, cfg.RateLimits["chat-message"].Limit)
	assert.Equal(t, time.Minute, cfg.RateLimits["chat-message"].Window())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"zero rate limit", func(c *Config) {
			c.RateLimits["x"] = RatePolicy{Limit: 0, WindowMS: 1000}
		}, true},
		{"zero window", func(c *Config) {
			c.RateLimits["x"] = RatePolicy{Limit: 5, WindowMS: 0}
		}, true},
		{"filter rule without name", func(c *Config) {
			c.Filter.ExtraRules = []FilterRule{{Pattern: "x"}}
		}, true},
		{"filter rule without pattern", func(c *Config) {
			c.Filter.ExtraRules = []FilterRule{{Name: "x"}}
		}, true},
		{"negative queue size", func(c *Config) {
			c.Audit.QueueSize = -1
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileProvider_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apiguard.yaml")
	writeConfig(t, path, `
logging:
  level: debug
rateLimits:
  chat-message:
    limit: 5
    windowMs: 10000
audit:
  path: /var/log/apiguard/audit.jsonl
  queueSize: 512
`)

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	cfg := p.Current()
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.RateLimits["chat-message"].Limit)
	assert.Equal(t, 10*time.Second, cfg.RateLimits["chat-message"].Window())
	assert.Equal(t, 512, cfg.Audit.QueueSize)
}

func TestFileProvider_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, Default(), p.Current())
}

func TestFileProvider_SubscribePrimedWithCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	select {
	case cfg := <-p.Subscribe():
		assert.Equal(t, Default(), cfg)
	case <-time.After(time.Second):
		t.Fatal("subscription was not primed")
	}
}

func TestFileProvider_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apiguard.yaml")
	writeConfig(t, path, "rateLimits:\n  chat-message:\n    limit: 5\n    windowMs: 60000\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	updates := p.Subscribe()
	<-updates // primed snapshot

	writeConfig(t, path, "rateLimits:\n  chat-message:\n    limit: 9\n    windowMs: 60000\n")

	select {
	case cfg := <-updates:
		assert.Equal(t, 9, cfg.RateLimits["chat-message"].Limit)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after file write")
	}
}

func TestFileProvider_InvalidUpdateKeepsLastGood(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apiguard.yaml")
	writeConfig(t, path, "rateLimits:\n  chat-message:\n    limit: 5\n    windowMs: 60000\n")

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	writeConfig(t, path, "rateLimits:\n  chat-message:\n    limit: 0\n    windowMs: 60000\n")

	// The invalid snapshot must never become current.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 5, p.Current().RateLimits["chat-message"].Limit)
}
