package observability

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// httpStatusServerError is the threshold for HTTP server errors.
const httpStatusServerError = 500

// statusWriter wraps [http.ResponseWriter] to capture the status code.
type statusWriter struct {
	http.ResponseWriter

	statusCode int
	written    bool
}

// WriteHeader captures the status code before delegating to the wrapped writer.
func (sw *statusWriter) WriteHeader(code int) {
	if !sw.written {
		sw.statusCode = code
		sw.written = true
	}

	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(buf []byte) (int, error) {
	if !sw.written {
		sw.statusCode = http.StatusOK
		sw.written = true
	}

	n, err := sw.ResponseWriter.Write(buf)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}

	return n, nil
}

// HTTPMiddleware returns an [http.Handler] that creates a span per request.
// The span starts as "METHOD /path" and is renamed to the matched route
// pattern (e.g. "GET /jobs/{jobid}/checkpoints") once the mux has routed it.
func HTTPMiddleware(tracer trace.Tracer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		spanName := hr.Method + " " + hr.URL.Path

		// Extract W3C traceparent/tracestate/baggage from incoming headers.
		parentCtx := otel.GetTextMapPropagator().Extract(hr.Context(), propagation.HeaderCarrier(hr.Header))

		ctx, span := tracer.Start(parentCtx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPRequestMethodKey.String(hr.Method),
				attribute.String("http.target", hr.URL.Path),
			),
		)
		defer span.End()

		sw := &statusWriter{ResponseWriter: rw}
		routed := hr.WithContext(ctx)
		next.ServeHTTP(sw, routed)

		if routed.Pattern != "" {
			span.SetName(routed.Pattern)
			span.SetAttributes(semconv.HTTPRoute(routed.Pattern))
		}

		span.SetAttributes(semconv.HTTPResponseStatusCode(sw.statusCode))

		if sw.statusCode >= httpStatusServerError {
			span.SetStatus(codes.Error, http.StatusText(sw.statusCode))
		}
	})
}

// unmatchedRoute labels requests no route matched, keeping the op label bounded.
const unmatchedRoute = "unmatched"

// HTTPMetricsMiddleware records RED metrics per matched route pattern.
// Responses with a 5xx status count as errors.
func HTTPMetricsMiddleware(red *REDMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		start := time.Now()
		ctx := hr.Context()

		sw := &statusWriter{ResponseWriter: rw}
		routed := hr.WithContext(ctx)
		next.ServeHTTP(sw, routed)

		op := routed.Pattern
		if op == "" {
			op = unmatchedRoute
		}

		status := StatusOK
		if sw.statusCode >= httpStatusServerError {
			status = StatusError
		}

		red.RecordRequest(ctx, op, status, time.Since(start))
	})
}
