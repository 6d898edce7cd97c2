// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for checkstat (CLI, MCP, server).
package observability

import (
	"log/slog"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// AppMode identifies the application execution mode.
type AppMode string

const (
	// ModeCLI is the client command mode (stats, plot).
	ModeCLI AppMode = "cli"
	// ModeMCP is the MCP stdio server mode.
	ModeMCP AppMode = "mcp"
	// ModeServe is the HTTP server mode.
	ModeServe AppMode = "serve"
)

const (
	defaultServiceName        = "checkstat"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "staging", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables OTLP export.
	OTLPEndpoint string

	// OTLPHeaders are additional gRPC metadata headers for the OTLP exporter.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// MetricReaders are attached to the meter provider in addition to OTLP,
	// e.g. the Prometheus exporter. With no endpoint and no readers the meter is a no-op.
	MetricReaders []sdkmetric.Reader

	// DebugTrace forces 100% trace sampling when true.
	DebugTrace bool

	// SampleRatio is the trace sampling ratio (0.0 to 1.0) when DebugTrace is false.
	// Zero means parent-based with always-on root.
	SampleRatio float64

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// TraceHousekeeping keeps spans of health, readiness and scrape requests.
	TraceHousekeeping bool

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// ParseLogLevel maps a level name (debug, info, warn, error) to a slog level.
// Unknown names map to info.
func ParseLogLevel(name string) slog.Level {
	var level slog.Level

	err := level.UnmarshalText([]byte(name))
	if err != nil {
		return slog.LevelInfo
	}

	return level
}
