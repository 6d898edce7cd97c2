package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "checkstat.requests.total"
	metricRequestDuration  = "checkstat.request.duration.seconds"
	metricInflightRequests = "checkstat.inflight.requests"

	attrOp     = "op"
	attrStatus = "status"

	// StatusOK and StatusError are the values of the status attribute.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 0.5ms to 10s. Cached documents are served in
// well under a millisecond; MCP tool calls can take seconds.
var durationBucketBoundaries = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// REDMetrics records rate, errors and duration of API requests and MCP tool
// calls, keyed by op (route pattern or tool span name) and status. The error
// rate is requests.total with status="error".
type REDMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	requests, reqErr := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Requests by op and status"),
		metric.WithUnit("{request}"),
	)
	duration, durErr := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration by op and status"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	inflight, inflightErr := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Requests in flight by op"),
		metric.WithUnit("{request}"),
	)

	err := errors.Join(reqErr, durErr, inflightErr)
	if err != nil {
		return nil, fmt.Errorf("red metrics: %w", err)
	}

	return &REDMetrics{requests: requests, duration: duration, inflight: inflight}, nil
}

// RecordRequest records a finished request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrOp, op), attribute.String(attrStatus, status))

	rm.requests.Add(ctx, 1, attrs)
	rm.duration.Record(ctx, duration.Seconds(), attrs)
}

// Begin counts op as in flight until the returned function is called with the
// request's status, which also records the request.
func (rm *REDMetrics) Begin(ctx context.Context, op string) func(status string) {
	start := time.Now()
	opAttr := metric.WithAttributes(attribute.String(attrOp, op))

	rm.inflight.Add(ctx, 1, opAttr)

	return func(status string) {
		rm.inflight.Add(ctx, -1, opAttr)
		rm.RecordRequest(ctx, op, status, time.Since(start))
	}
}
