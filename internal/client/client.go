// Package client reads checkpoint statistics from a checkstat server.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/checkstat/internal/api"
)

// DefaultTimeout bounds a single request when no HTTP client is supplied.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 16 << 20

// Sentinel errors mapped from the server's 404 responses.
var (
	ErrJobNotFound    = errors.New("job not found")
	ErrNotEnabled     = errors.New("checkpointing has not been enabled")
	ErrUnexpectedCode = errors.New("unexpected response status")
	ErrEmptyBaseURL   = errors.New("empty base url")
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// Client fetches statistics documents over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	_, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Raw returns the undecoded statistics document of jobID.
func (c *Client) Raw(ctx context.Context, jobID string) ([]byte, error) {
	return c.get(ctx, "/jobs/"+url.PathEscape(jobID)+"/checkpoints")
}

// Statistics returns the decoded statistics document of jobID.
func (c *Client) Statistics(ctx context.Context, jobID string) (api.Statistics, error) {
	body, err := c.Raw(ctx, jobID)
	if err != nil {
		return api.Statistics{}, err
	}

	var doc api.Statistics

	err = json.Unmarshal(body, &doc)
	if err != nil {
		return api.Statistics{}, fmt.Errorf("decode statistics of %s: %w", jobID, err)
	}

	return doc, nil
}

// Jobs lists the jobs known to the server.
func (c *Client) Jobs(ctx context.Context) ([]api.JobEntry, error) {
	body, err := c.get(ctx, "/jobs")
	if err != nil {
		return nil, err
	}

	var listing api.JobsBody

	err = json.Unmarshal(body, &listing)
	if err != nil {
		return nil, fmt.Errorf("decode job listing: %w", err)
	}

	return listing.Jobs, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	return nil, statusError(resp.StatusCode, body)
}

func statusError(code int, body []byte) error {
	var errBody api.ErrorBody

	_ = json.Unmarshal(body, &errBody)

	if code == http.StatusNotFound {
		for _, msg := range errBody.Errors {
			switch msg {
			case api.MessageCheckpointsDisabled:
				return ErrNotEnabled
			case api.MessageJobNotFound:
				return ErrJobNotFound
			}
		}
	}

	detail := strings.TrimSpace(string(body))
	if len(errBody.Errors) > 0 {
		detail = strings.Join(errBody.Errors, "; ")
	}

	return fmt.Errorf("%w %d: %s", ErrUnexpectedCode, code, detail)
}
