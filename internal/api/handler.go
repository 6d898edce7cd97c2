package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Sumatoshi-tech/checkstat/internal/jobs"
	"github.com/Sumatoshi-tech/checkstat/pkg/alg/lru"
	"github.com/Sumatoshi-tech/checkstat/pkg/observability"
)

// Route patterns.
const (
	RouteJobs        = "GET /jobs"
	RouteCheckpoints = "GET /jobs/{jobid}/checkpoints"
)

// Error messages returned with 404 responses. The two cases must stay
// distinguishable: a job without checkpointing is not a job with zero checkpoints.
const (
	MessageJobNotFound         = "Job not found."
	MessageCheckpointsDisabled = "Checkpointing has not been enabled."
)

const defaultCacheEntries = 1024

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Errors []string `json:"errors"`
}

// JobsBody is the body of the job listing.
type JobsBody struct {
	Jobs []JobEntry `json:"jobs"`
}

// JobEntry is one job in the listing.
type JobEntry struct {
	ID                 string `json:"id"`
	CheckpointsEnabled bool   `json:"checkpoints_enabled"`
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithCacheTTL caches encoded documents per job for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration, maxEntries int) HandlerOption {
	return func(h *Handler) {
		if ttl <= 0 {
			h.cache = nil

			return
		}

		if maxEntries <= 0 {
			maxEntries = defaultCacheEntries
		}

		h.cache = lru.New(
			lru.WithMaxEntries[string, []byte](maxEntries),
			lru.WithTTL[string, []byte](ttl),
		)
	}
}

// WithHandlerLogger sets the request logger.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// Handler serves checkpoint statistics of the jobs in a registry.
type Handler struct {
	registry *jobs.Registry
	cache    *lru.Cache[string, []byte]
	logger   *slog.Logger
}

// NewHandler creates a handler over registry.
func NewHandler(registry *jobs.Registry, opts ...HandlerOption) *Handler {
	h := &Handler{
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Routes returns the HTTP routes of the handler.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(RouteJobs, h.serveJobs)
	mux.HandleFunc(RouteCheckpoints, h.serveCheckpoints)

	return mux
}

// Document returns the encoded statistics document of jobID, from cache when fresh.
func (h *Handler) Document(jobID string) ([]byte, error) {
	load := func() ([]byte, error) {
		snap, err := h.registry.Snapshot(jobID)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(NewStatistics(snap))
		if err != nil {
			return nil, fmt.Errorf("encode statistics: %w", err)
		}

		return data, nil
	}

	if h.cache == nil {
		return load()
	}

	return h.cache.GetOrLoad(jobID, load)
}

// CacheStats returns the document cache statistics. A disabled cache reports zeros.
func (h *Handler) CacheStats() lru.Stats {
	if h.cache == nil {
		return lru.Stats{}
	}

	return h.cache.Stats()
}

// CacheHits returns the number of documents served from cache.
func (h *Handler) CacheHits() int64 { return h.CacheStats().Hits }

// CacheMisses returns the number of documents rendered on demand.
func (h *Handler) CacheMisses() int64 { return h.CacheStats().Misses }

// CacheEntries returns the number of cached documents.
func (h *Handler) CacheEntries() int64 { return int64(h.CacheStats().Entries) }

func (h *Handler) serveCheckpoints(rw http.ResponseWriter, hr *http.Request) {
	jobID := hr.PathValue("jobid")
	ctx := observability.ContextWithJobID(hr.Context(), jobID)

	data, err := h.Document(jobID)

	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		writeError(rw, http.StatusNotFound, MessageJobNotFound)
	case errors.Is(err, jobs.ErrCheckpointsDisabled):
		writeError(rw, http.StatusNotFound, MessageCheckpointsDisabled)
	case err != nil:
		h.logger.ErrorContext(ctx, "serve checkpoint statistics", "error", err)
		writeError(rw, http.StatusInternalServerError, "Internal server error.")
	default:
		writeJSON(rw, http.StatusOK, data)
	}
}

func (h *Handler) serveJobs(rw http.ResponseWriter, _ *http.Request) {
	registered := h.registry.Jobs()
	body := JobsBody{Jobs: make([]JobEntry, 0, len(registered))}

	for _, job := range registered {
		body.Jobs = append(body.Jobs, JobEntry{ID: job.ID, CheckpointsEnabled: job.CheckpointsEnabled})
	}

	data, err := json.Marshal(body)
	if err != nil {
		writeError(rw, http.StatusInternalServerError, "Internal server error.")

		return
	}

	writeJSON(rw, http.StatusOK, data)
}

func writeError(rw http.ResponseWriter, status int, message string) {
	data, err := json.Marshal(ErrorBody{Errors: []string{message}})
	if err != nil {
		rw.WriteHeader(status)

		return
	}

	writeJSON(rw, status, data)
}

func writeJSON(rw http.ResponseWriter, status int, data []byte) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	writeOrDiscard(rw, data)
}

func writeOrDiscard(w io.Writer, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		return
	}
}
