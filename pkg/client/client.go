// Package client provides the upstream HTTP client with retry, circuit
// breaking, error classification, and request metrics. It is the single path
// through which the extraction engine talks to the ChEMBL web services.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bioetl/chembl-extract/pkg/breaker"
)

// DefaultBaseURL is the ChEMBL web services data root.
const DefaultBaseURL = "https://www.ebi.ac.uk/chembl/api/data"

// Prometheus metrics for client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chembl_requests_total",
		Help: "Total upstream requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chembl_request_duration_seconds",
		Help:    "Upstream request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	requestErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chembl_request_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root (default: DefaultBaseURL).
	BaseURL string

	// UserAgent identifies the caller to the upstream service (required).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Breaker guards upstream calls. Optional; nil disables breaking.
	Breaker *breaker.Breaker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// Client is the upstream API client.
type Client struct {
	httpClient *http.Client
	breaker    *breaker.Breaker
	config     Config
	logger     zerolog.Logger
}

// Status describes the upstream data release, from the /status.json endpoint.
// The release version partitions the extraction cache.
type Status struct {
	ChEMBLDBVersion   string `json:"chembl_db_version"`
	ChEMBLReleaseDate string `json:"chembl_release_date"`
	APIVersion        string `json:"api_version"`
	ActivityCount     int64  `json:"activities"`
	CompoundCount     int64  `json:"compounds"`
	TargetCount       int64  `json:"targets"`
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "api-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: cfg.Breaker,
		config:  cfg,
		logger:  logger,
	}, nil
}

// GetJSON performs a GET request for one page and decodes the JSON envelope.
// A breaker-open condition is returned as *breaker.OpenError so callers can
// branch on the value instead of a generic request failure.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values) (map[string]any, error) {
	body, err := c.getBytes(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var envelope map[string]any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return envelope, nil
}

// Status fetches the upstream release descriptor. Callers use
// ChEMBLDBVersion as the release tag partitioning the cache.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	body, err := c.getBytes(ctx, "/status.json", nil)
	if err != nil {
		return nil, err
	}

	var status Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// getBytes executes a GET with breaker gating, retry logic, and metrics,
// returning the raw response body.
func (c *Client) getBytes(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.breaker != nil {
		if err := c.breaker.Allow(ctx); err != nil {
			return nil, err
		}
	}

	requestURL := c.config.BaseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte

	retryErr := retryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			requestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return err
		}
		defer resp.Body.Close()

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode >= 400 {
			errClass := classify(resp.StatusCode, nil)
			requestErrorsTotal.WithLabelValues(string(errClass)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Upstream request error")
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			requestErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return fmt.Errorf("read response body: %w", err)
		}
		return nil
	}, classifyError)

	if retryErr != nil {
		if c.breaker != nil && shouldRetry(classifyError(retryErr)) {
			c.breaker.RecordFailure(ctx)
		}
		return nil, retryErr
	}

	if c.breaker != nil {
		c.breaker.RecordSuccess(ctx)
	}
	return body, nil
}

// classifyError maps a request error to its error class.
func classifyError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}
