package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kindredai/apiguard/pkg/api"
	"github.com/kindredai/apiguard/pkg/audit"
	"github.com/kindredai/apiguard/pkg/config"
	"github.com/kindredai/apiguard/pkg/domain"
	"github.com/kindredai/apiguard/pkg/filter"
	"github.com/kindredai/apiguard/pkg/logging"
	"github.com/kindredai/apiguard/pkg/policy"
	"github.com/kindredai/apiguard/pkg/ratelimit"
	"github.com/kindredai/apiguard/pkg/request"
	"github.com/kindredai/apiguard/pkg/schema"
	"github.com/kindredai/apiguard/pkg/telemetry"
)

const (
	defaultConfigPath = "apiguard.yaml"
	defaultListenAddr = ":8080"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference chat API behind the security pipeline",
		RunE:  runServe,
	}

	serveCmd.Flags().StringP("config", "c", defaultConfigPath, "Path to configuration file (YAML)")
	serveCmd.Flags().String("listen", defaultListenAddr, "Address to listen on")
	serveCmd.Flags().StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("pretty", false, "Enable pretty console logging")
	return serveCmd
}

// guardState holds the hot-reloadable parts of the pipeline.
type guardState struct {
	engine atomic.Pointer[filter.Engine]

	mu         sync.RWMutex
	rateLimits map[string]config.RatePolicy
}

func (g *guardState) filterEngine() *filter.Engine {
	return g.engine.Load()
}

func (g *guardState) ratePolicy(route string) config.RatePolicy {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rateLimits[route]
}

func (g *guardState) apply(cfg config.Config, logger *slog.Logger) {
	engine, err := filter.NewEngine(filter.Config{
		Keywords: cfg.Filter.ExtraKeywords,
		Rules:    toFilterRules(cfg.Filter.ExtraRules),
	})
	if err != nil {
		logger.Error("filter rules rejected, keeping previous engine", "error", err)
	} else {
		g.engine.Store(engine)
	}

	g.mu.Lock()
	g.rateLimits = cfg.RateLimits
	g.mu.Unlock()
}

func toFilterRules(rules []config.FilterRule) []filter.Rule {
	out := make([]filter.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, filter.Rule{Name: r.Name, Pattern: r.Pattern})
	}
	return out
}

func runServe(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	listenAddr, _ := cmd.Flags().GetString("listen")
	logLevel, _ := cmd.Flags().GetString("log-level")
	pretty, _ := cmd.Flags().GetBool("pretty")

	logCfg := logging.Config{Level: logLevel, Pretty: pretty}
	logger := logging.NewLogger(logCfg)
	slog.SetDefault(logger)
	logging.SetupDiagnostics(logCfg)

	provider, err := config.NewFileProvider(configPath, logger)
	if err != nil {
		return fmt.Errorf("initialize config provider: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Error("failed to close config provider", "error", err)
		}
	}()
	cfg := provider.Current()

	shutdownTracing, err := telemetry.SetupProvider(cmd.Context(), telemetry.Config{
		ServiceName: "apiguard",
		Endpoint:    cfg.Telemetry.Endpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	var sink audit.Sink = audit.NewMemorySink()
	if cfg.Audit.Path != "" {
		fileSink, err := audit.NewFileSink(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit sink: %w", err)
		}
		defer fileSink.Close()
		sink = fileSink
	}
	auditLog := audit.NewLogger(sink, audit.WithQueueSize(cfg.Audit.QueueSize))

	access, err := policy.NewEngine(cmd.Context(), policy.Options{})
	if err != nil {
		return fmt.Errorf("compile access policy: %w", err)
	}

	state := &guardState{}
	state.apply(cfg, logger)

	limiter := ratelimit.NewLimiter()
	validator := request.NewValidator(limiter, headerSessions{}, auditLog,
		request.WithAccessPolicy(access),
		request.WithLogger(logger),
	)

	go func() {
		for update := range provider.Subscribe() {
			state.apply(update, logger)
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			telemetry.RecordRateLimitKeys(context.Background(), len(limiter.Stats()))
		}
	}()

	mux := http.NewServeMux()
	registerRoutes(mux, validator, limiter, auditLog, state)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           otelhttp.NewHandler(mux, "apiguard"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("apiguard listening", "addr", listenAddr, "config", configPath)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := auditLog.Close(ctx); err != nil {
		logger.Error("audit drain incomplete", "error", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("telemetry shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// headerSessions is the development auth collaborator: it trusts the
// X-User-ID / X-User-Role headers a fronting proxy injects after verifying
// the real session. Production deployments supply their own SessionProvider.
type headerSessions struct{}

func (headerSessions) GetSession(r *http.Request) (*domain.Session, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return nil, nil
	}
	role := r.Header.Get("X-User-Role")
	if role == "" {
		role = domain.RoleUser
	}
	return &domain.Session{
		UserID: userID,
		Role:   role,
		Email:  r.Header.Get("X-User-Email"),
	}, nil
}

func registerRoutes(mux *http.ServeMux, validator *request.Validator, limiter *ratelimit.Limiter, auditLog *audit.Logger, state *guardState) {
	messageSchema := schema.Schema{Fields: []schema.Field{
		{Name: "characterId", Kind: schema.KindString, Required: true, MinLen: 1, MaxLen: 64},
		{Name: "content", Kind: schema.KindString, Required: true, MinLen: 1, MaxLen: 2000},
	}}

	characterSchema := schema.Schema{Fields: []schema.Field{
		{Name: "name", Kind: schema.KindString, Required: true, MinLen: 1, MaxLen: 80},
		{Name: "description", Kind: schema.KindString, Required: true, MinLen: 1, MaxLen: 4000},
		{Name: "visibility", Kind: schema.KindEnum, Enum: []string{"public", "private"}},
	}}

	mux.HandleFunc("POST /api/chat/messages", api.Handle(auditLog, func(w http.ResponseWriter, r *http.Request) (any, error) {
		rl := state.ratePolicy("chat-message")
		result, err := validator.ValidateAPIRequest(w, r, messageSchema, request.Policy{
			RequireAuth:     true,
			RateLimitKey:    "chat-message",
			RateLimit:       rl.Limit,
			RateLimitWindow: rl.Window(),
		})
		if err != nil {
			return nil, err
		}

		content, _ := result.Data["content"].(string)
		filtered := state.filterEngine().FilterContent(content)
		if filtered.Blocked {
			kind := domain.EventContentBlocked
			severity := domain.SeverityMedium
			if filtered.Reason == filter.ReasonMaliciousPrompt {
				kind = domain.EventMaliciousPrompt
				severity = domain.SeverityHigh
			}
			auditLog.LogSecurityEvent(r.Context(), kind,
				audit.RequestMeta{ClientIP: request.ClientIP(r), Path: r.URL.Path, Method: r.Method},
				map[string]any{"reason": filtered.Reason, "rule": filtered.Rule},
				audit.EventMeta{Severity: severity, Blocked: true, UserID: result.Session.UserID})
			return nil, domain.NewContentBlocked(filtered.Reason)
		}

		return map[string]any{
			"characterId": result.Data["characterId"],
			"content":     filtered.Sanitized,
			"userId":      result.Session.UserID,
		}, nil
	}))

	mux.HandleFunc("GET /api/characters", func(w http.ResponseWriter, r *http.Request) {
		rl := state.ratePolicy("api-read")
		if rl.Limit > 0 {
			key := "api-read:" + request.ClientIP(r)
			decision := limiter.Check(key, rl.Limit, rl.Window())
			decision.WriteHeaders(w)
			if decision.Limited {
				auditLog.LogSecurityEvent(r.Context(), domain.EventRateLimitExceeded,
					audit.RequestMeta{ClientIP: request.ClientIP(r), Path: r.URL.Path, Method: r.Method},
					map[string]any{"key": "api-read", "limit": rl.Limit},
					audit.EventMeta{Severity: domain.SeverityMedium, Blocked: true})
				api.WriteError(w, domain.NewRateLimited())
				return
			}
		}
		api.WriteSuccess(w, []map[string]any{
			{"id": "aria", "name": "Aria"},
			{"id": "kai", "name": "Kai"},
		})
	})

	mux.HandleFunc("POST /api/admin/characters", api.Handle(auditLog, func(w http.ResponseWriter, r *http.Request) (any, error) {
		rl := state.ratePolicy("auth")
		result, err := validator.ValidateAPIRequest(w, r, characterSchema, request.Policy{
			RequireAuth:     true,
			RequireRole:     domain.RoleAdmin,
			RateLimitKey:    "admin-characters",
			RateLimit:       rl.Limit,
			RateLimitWindow: rl.Window(),
		})
		if err != nil {
			return nil, err
		}

		auditLog.LogSecurityEvent(r.Context(), domain.EventAdminAction,
			audit.RequestMeta{ClientIP: request.ClientIP(r), Path: r.URL.Path, Method: r.Method},
			map[string]any{"action": "create-character", "name": result.Data["name"]},
			audit.EventMeta{Severity: domain.SeverityLow, UserID: result.Session.UserID})

		return map[string]any{"created": true, "name": result.Data["name"]}, nil
	}))
}
