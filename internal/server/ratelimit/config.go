package ratelimit

import (
	"net/http"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// DefaultConfig returns an enabled configuration with the default tiers.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    600,
		DefaultWindow:   time.Minute,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(10, time.Hour),
	}
}

// DefaultEndpointConfigs returns the endpoint tiers. Job submission shares the
// jobsLimit/jobsWindow budget across its two routes.
func DefaultEndpointConfigs(jobsLimit int, jobsWindow time.Duration) []EndpointConfig {
	jobsBurst := max(1, jobsLimit/5)
	return []EndpointConfig{
		// Tier 1: carrier and browser work
		{Path: "/api/jobs", Method: http.MethodPost, Limit: jobsLimit, Window: jobsWindow, Burst: jobsBurst},
		{Path: "/api/shiprocket/generate-labels", Method: http.MethodPost, Limit: jobsLimit, Window: jobsWindow, Burst: jobsBurst},
		{Path: "/api/upload-portal", Method: http.MethodPost, Limit: 20, Window: time.Hour, Burst: 2},

		// Tier 2: writes and credential checks
		{Path: "/auth/login", Method: http.MethodPost, Limit: 10, Window: time.Minute, Burst: 5},
		{Path: "/api/email-approval", Method: http.MethodPost, Limit: 30, Window: time.Hour, Burst: 5},
		{Path: "/api/products/", Method: http.MethodPost, Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/api/history/", Method: http.MethodPut, Limit: 100, Window: time.Minute, Burst: 10},
		{Path: "/api/download", Method: http.MethodPost, Limit: 100, Window: time.Minute, Burst: 10},

		// Tier 3: reads use the default limit; /health is unlimited (see MatchEndpoint)
	}
}

// ParseIPList parses a comma-separated list of IP addresses into a set.
func ParseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
