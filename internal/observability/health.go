package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck reports whether a subsystem can serve statistics. A non-nil
// error marks the process as not ready; its message is returned to the caller.
type ReadyCheck func(ctx context.Context) error

// healthBody is the body of /healthz and /readyz responses.
type healthBody struct {
	Status string   `json:"status"`
	Errors []string `json:"errors,omitempty"`
}

// HealthHandler returns an [http.Handler] for liveness checks at /healthz.
// It always returns HTTP 200 with {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, healthBody{Status: healthStatusOK})
	})
}

// ReadyHandler returns an [http.Handler] for readiness checks at /readyz.
// All checks run on every request. Any failure yields HTTP 503 with the
// messages of the failed checks in order.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		var failures []string

		for _, check := range checks {
			err := check(hr.Context())
			if err != nil {
				failures = append(failures, err.Error())
			}
		}

		if len(failures) > 0 {
			writeHealth(rw, http.StatusServiceUnavailable, healthBody{Status: healthStatusUnavailable, Errors: failures})

			return
		}

		writeHealth(rw, http.StatusOK, healthBody{Status: healthStatusOK})
	})
}

func writeHealth(rw http.ResponseWriter, code int, body healthBody) {
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Cache-Control", "no-store")
	rw.WriteHeader(code)

	data, err := json.Marshal(body)
	if err != nil {
		return
	}

	writeOrDiscard(rw, data)
}

func writeOrDiscard(w io.Writer, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		return
	}
}
