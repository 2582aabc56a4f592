// Package telemetry wires the security pipeline into OpenTelemetry: an
// OTLP/gRPC trace provider bootstrap for the process, and the counters and
// histograms describing validation outcomes, security events, and audit
// writer health.
package telemetry
