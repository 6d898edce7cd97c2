package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// BuildResource exposes buildResource for testing.
func BuildResource(cfg Config) (*resource.Resource, error) {
	return buildResource(cfg)
}

// RootSpanSampled reports whether a root span started under the sampler
// options resolved from cfg is exported.
func RootSpanSampled(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithSyncer(exporter)}, samplerOptions(cfg)...)...)

	_, span := tp.Tracer("test").Start(context.Background(), "root")
	span.End()

	// Shutdown clears the exporter.
	spans := exporter.GetSpans()

	if err := tp.Shutdown(context.Background()); err != nil {
		return false
	}

	return len(spans) > 0
}
