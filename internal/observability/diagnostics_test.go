package observability_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/checkstat/internal/observability"
)

var errNotStarted = errors.New("simulation not started")

func TestDiagnosticsMux_Routes(t *testing.T) {
	t.Parallel()

	metrics := http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusTeapot)
	})
	failing := func(_ context.Context) error { return errNotStarted }

	mux := observability.DiagnosticsMux(metrics, failing)

	tests := []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/readyz", http.StatusServiceUnavailable},
		{"/metrics", http.StatusTeapot},
		{"/jobs", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

		assert.Equal(t, tt.want, rec.Code, tt.path)
	}
}

func TestDiagnosticsMux_NoMetricsHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	observability.DiagnosticsMux(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiagnosticsServer_ServesAndCloses(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	srv, err := observability.NewDiagnosticsServer(ctx, "127.0.0.1:0", nil)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+srv.Addr()+"/healthz", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	require.NoError(t, srv.Close(ctx))
}
