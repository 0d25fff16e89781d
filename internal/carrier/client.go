// Package carrier is a client for the Shiprocket external API: authentication, wallet balance,
// order lookup and ad-hoc order creation, courier assignment, pickup scheduling, and label
// generation.
//
// The client never retries. Callers decide what a failure means for their batch.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the production API host.
const DefaultBaseURL = "https://apiv2.shiprocket.in"

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

// Search defaults.
const (
	DefaultMaxSearchPages = 5
	DefaultSearchPageSize = 100
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	Timeout  time.Duration

	// RequestsPerSecond and Burst shape the outgoing request rate. Zero disables limiting.
	RequestsPerSecond float64
	Burst             int

	MaxSearchPages int
	SearchPageSize int

	Logger *zap.Logger
}

// Client talks to the carrier API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxPages   int
	pageSize   int
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	token string
}

// New creates a Client from cfg, applying defaults for zero values.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSearchPages <= 0 {
		cfg.MaxSearchPages = DefaultMaxSearchPages
	}
	if cfg.SearchPageSize <= 0 {
		cfg.SearchPageSize = DefaultSearchPageSize
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		email:      cfg.Email,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		maxPages:   cfg.MaxSearchPages,
		pageSize:   cfg.SearchPageSize,
		logger:     cfg.Logger.Named("carrier"),
		now:        time.Now,
	}
}

// do performs an authenticated JSON request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return err
	}
	return c.send(ctx, method, path, token, body, out)
}

// send performs a JSON request with an optional bearer token.
func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Method: method, Path: path, Message: err.Error(), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.Status),
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "invalid JSON response", Cause: err}
	}
	return nil
}

// errorMessage extracts the carrier's "message" field, falling back to the HTTP status text.
func errorMessage(data []byte, fallback string) string {
	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		for field, msgs := range body.Errors {
			if len(msgs) > 0 {
				return field + ": " + msgs[0]
			}
		}
	}
	return fallback
}
