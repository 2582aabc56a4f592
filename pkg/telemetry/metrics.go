package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// instruments is one complete instrument set bound to a meter provider.
type instruments struct {
	validationCounter    metric.Int64Counter
	validationLatency    metric.Float64Histogram
	securityEventCounter metric.Int64Counter
	auditDroppedCounter  metric.Int64Counter
	rateLimitKeysGauge   metric.Int64Gauge
}

var (
	bindMu  sync.Mutex
	current atomic.Pointer[instruments]
)

// Validation outcomes recorded on guard.validation.requests_total.
const (
	OutcomeAllowed      = "allowed"
	OutcomeRateLimited  = "rate_limited"
	OutcomeUnauthorized = "unauthorized"
	OutcomeForbidden    = "forbidden"
	OutcomeInvalidJSON  = "invalid_json"
	OutcomeInvalidInput = "invalid_input"
)

// RecordValidation emits one counter increment and a latency sample for a
// completed ValidateAPIRequest call.
func RecordValidation(ctx context.Context, route, outcome string, duration time.Duration) {
	ins := loadInstruments()
	if ins == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("route", route),
		attribute.String("outcome", outcome),
	}
	ins.validationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	if duration > 0 {
		ins.validationLatency.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
}

// RecordSecurityEvent counts an event accepted by the audit logger.
func RecordSecurityEvent(ctx context.Context, kind, severity string, blocked bool) {
	ins := loadInstruments()
	if ins == nil {
		return
	}

	ins.securityEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("severity", severity),
		attribute.Bool("blocked", blocked),
	))
}

// RecordAuditDrop counts an event dropped because the audit queue was full.
func RecordAuditDrop(ctx context.Context) {
	if ins := loadInstruments(); ins != nil {
		ins.auditDroppedCounter.Add(ctx, 1)
	}
}

// RecordRateLimitKeys reports the live window-table size.
func RecordRateLimitKeys(ctx context.Context, n int) {
	if ins := loadInstruments(); ins != nil {
		ins.rateLimitKeysGauge.Record(ctx, int64(n))
	}
}

func loadInstruments() *instruments {
	if ins := current.Load(); ins != nil {
		return ins
	}
	return bindInstruments(otel.GetMeterProvider())
}

// bindInstruments creates the instrument set on provider and installs it,
// replacing any earlier binding. SetupProvider calls this when it swaps the
// process meter provider, so recordings made before setup (against the noop
// meter) do not stick for the life of the process.
func bindInstruments(provider metric.MeterProvider) *instruments {
	bindMu.Lock()
	defer bindMu.Unlock()

	meter := provider.Meter("apiguard.security")
	ins := &instruments{}

	var err error
	ins.validationCounter, err = meter.Int64Counter(
		"guard.validation.requests_total",
		metric.WithDescription("API requests processed by the validator, partitioned by outcome"),
		metric.WithUnit("{count}"),
	)
	if err != nil {
		return nil
	}

	ins.validationLatency, err = meter.Float64Histogram(
		"guard.validation.duration",
		metric.WithDescription("Validator pipeline latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil
	}

	ins.securityEventCounter, err = meter.Int64Counter(
		"guard.security.events_total",
		metric.WithDescription("Security events accepted by the audit logger"),
		metric.WithUnit("{count}"),
	)
	if err != nil {
		return nil
	}

	ins.auditDroppedCounter, err = meter.Int64Counter(
		"guard.audit.dropped_total",
		metric.WithDescription("Security events dropped due to a full audit queue"),
		metric.WithUnit("{count}"),
	)
	if err != nil {
		return nil
	}

	ins.rateLimitKeysGauge, err = meter.Int64Gauge(
		"guard.ratelimit.keys",
		metric.WithDescription("Live entries in the rate-limit window table"),
		metric.WithUnit("{count}"),
	)
	if err != nil {
		return nil
	}

	current.Store(ins)
	return ins
}
