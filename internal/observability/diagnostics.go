package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const diagnosticsReadHeaderTimeout = 5 * time.Second

// DiagnosticsServer exposes health, readiness, and Prometheus metrics
// endpoints over HTTP for operational monitoring.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// DiagnosticsMux builds the /healthz, /readyz and /metrics routes.
// A nil metricsHandler leaves /metrics unrouted.
func DiagnosticsMux(metricsHandler http.Handler, checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", HealthHandler())
	mux.Handle("GET /readyz", ReadyHandler(checks...))

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return mux
}

// NewDiagnosticsServer starts an HTTP server at addr serving DiagnosticsMux.
func NewDiagnosticsServer(ctx context.Context, addr string, metricsHandler http.Handler,
	checks ...ReadyCheck,
) (*DiagnosticsServer, error) {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           DiagnosticsMux(metricsHandler, checks...),
		ReadHeaderTimeout: diagnosticsReadHeaderTimeout,
	}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener}, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the diagnostics server.
func (d *DiagnosticsServer) Close(ctx context.Context) error {
	err := d.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}
