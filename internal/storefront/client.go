// Package storefront is a Shopify Admin GraphQL client: client-credentials authentication,
// unfulfilled order listing, single order lookup with risk level, and SKU assignment.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIVersion is the Admin API version queried.
const DefaultAPIVersion = "2026-01"

// TokenLifetime is how long an access token is reused. Tokens are valid for 24 hours.
const TokenLifetime = 23 * time.Hour

// Config configures a Client.
type Config struct {
	StoreDomain  string
	ClientID     string
	ClientSecret string
	APIVersion   string
	Timeout      time.Duration

	// BaseURL overrides "https://<domain>" and is used by tests.
	BaseURL string

	Logger *zap.Logger
}

// Client is safe for concurrent use.
type Client struct {
	baseURL      string
	apiVersion   string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *zap.Logger
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// GraphQLError is returned when the Admin API reports errors or a non-2xx status.
type GraphQLError struct {
	StatusCode int
	Messages   []string
}

func (e *GraphQLError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("shopify graphql error (HTTP %d): %s", e.StatusCode, msg)
	}
	return "shopify graphql error: " + msg
}

// NotFoundError is returned when a requested resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrNotConfigured is returned when no store domain is set.
var ErrNotConfigured = errors.New("SHOPIFY_STORE_DOMAIN not set")

var schemePrefix = regexp.MustCompile(`^https?://`)

// NormalizeDomain reduces a configured store domain to a bare host.
// "https://My-Store.myshopify.com/admin" becomes "my-store.myshopify.com" and a bare shop
// name such as "my-store" becomes "my-store.myshopify.com".
func NormalizeDomain(raw string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(raw))
	if domain == "" {
		return "", ErrNotConfigured
	}
	domain = schemePrefix.ReplaceAllString(domain, "")
	if i := strings.Index(domain, "/"); i >= 0 {
		domain = domain[:i]
	}
	if !strings.Contains(domain, ".") {
		domain += ".myshopify.com"
	}
	return domain, nil
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		domain, err := NormalizeDomain(cfg.StoreDomain)
		if err != nil {
			return nil, err
		}
		baseURL = "https://" + domain
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	return &Client{
		baseURL:      baseURL,
		apiVersion:   cfg.APIVersion,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       cfg.Logger.Named("storefront"),
		now:          time.Now,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// accessToken returns a cached token or requests a new one with the client-credentials grant.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("authentication failed: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("authentication failed: invalid token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("authentication failed: empty access token")
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(TokenLifetime)
	c.logger.Info("access token obtained")
	return c.token, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// graphql runs query and decodes the "data" member into out.
func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	url := fmt.Sprintf("%s/admin/api/%s/graphql.json", c.baseURL, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var gr graphqlResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &GraphQLError{StatusCode: resp.StatusCode, Messages: []string{strings.TrimSpace(string(data))}}
		}
		return fmt.Errorf("invalid graphql response: %w", err)
	}

	if len(gr.Errors) > 0 || resp.StatusCode != http.StatusOK {
		gqlErr := &GraphQLError{StatusCode: resp.StatusCode}
		for _, e := range gr.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		if len(gqlErr.Messages) == 0 {
			gqlErr.Messages = []string{http.StatusText(resp.StatusCode)}
		}
		c.logger.Error("graphql error", zap.Error(gqlErr))
		return gqlErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(gr.Data, out)
}
