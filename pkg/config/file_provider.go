package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileProvider serves configuration from a local YAML file and watches it
// for changes.
type FileProvider struct {
	path        string
	logger      *slog.Logger
	mu          sync.RWMutex
	current     Config
	subscribers []chan Config
	watcher     *fsnotify.Watcher
	cancel      context.CancelFunc
}

// NewFileProvider loads path and starts watching its directory. A missing
// file is not fatal: the provider starts from defaults and picks the file up
// once it appears.
func NewFileProvider(path string, logger *slog.Logger) (*FileProvider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &FileProvider{
		path:    absPath,
		logger:  logger,
		current: Default(),
		watcher: watcher,
		cancel:  cancel,
	}

	if err := p.load(); err != nil {
		logger.Warn("initial config load failed, using defaults", "path", absPath, "error", err)
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		cancel()
		return nil, fmt.Errorf("config: watch directory: %w", err)
	}

	go p.watchLoop(ctx)
	return p, nil
}

// Current returns the latest valid configuration.
func (p *FileProvider) Current() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe returns a channel receiving each configuration update, primed
// with the current state.
func (p *FileProvider) Subscribe() <-chan Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Config, 1)
	p.subscribers = append(p.subscribers, ch)
	ch <- p.current
	return ch
}

// Close stops the watcher.
func (p *FileProvider) Close() error {
	p.cancel()
	return p.watcher.Close()
}

func (p *FileProvider) load() error {
	// #nosec G304 -- path is configured at startup
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", p.path, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	p.current = cfg
	subscribers := append([]chan Config(nil), p.subscribers...)
	p.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- cfg:
		default:
			// Slow subscriber keeps its stale snapshot; the next reload
			// tries again.
		}
	}
	return nil
}

func (p *FileProvider) watchLoop(ctx context.Context) {
	var debounce *time.Timer
	const debounceDelay = 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDelay, func() {
					if err := p.load(); err != nil {
						p.logger.Error("config reload failed", "error", err)
						return
					}
					p.logger.Info("configuration reloaded", "path", p.path)
				})
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", "error", err)
		}
	}
}
