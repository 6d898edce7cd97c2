package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewPrometheusExporter creates an OTel metric reader that exposes collected
// instruments in Prometheus format, together with the /metrics handler serving it.
// The reader must be attached to a MeterProvider, typically through
// observability.Config.MetricReaders. Each call uses its own registry.
func NewPrometheusExporter() (http.Handler, sdkmetric.Reader, error) {
	registry := prometheus.NewRegistry()

	err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return nil, nil, fmt.Errorf("register process collector: %w", err)
	}

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), exporter, nil
}
