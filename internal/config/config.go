// Package config loads the fulfillment agent configuration from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the service configuration. Every key can be set in the YAML file or through the
// upper-case environment variable of the same name (log_level -> LOG_LEVEL).
type Config struct {
	Port           int    `mapstructure:"port" validate:"min=1,max=65535"`
	LogLevel       string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat      string `mapstructure:"log_format" validate:"oneof=json console"`
	DataDir        string `mapstructure:"data_dir" validate:"required"`
	ReportsDir     string `mapstructure:"reports_dir" validate:"required"`
	AllowedOrigins string `mapstructure:"allowed_origins"`

	// Storefront
	ShopifyStoreDomain  string `mapstructure:"shopify_store_domain"`
	ShopifyClientID     string `mapstructure:"shopify_client_id"`
	ShopifyClientSecret string `mapstructure:"shopify_client_secret"`
	ShopifyAPIVersion   string `mapstructure:"shopify_api_version"`

	// Carrier
	ShiprocketBaseURL  string  `mapstructure:"shiprocket_base_url" validate:"omitempty,url"`
	ShiprocketEmail    string  `mapstructure:"shiprocket_email"`
	ShiprocketPassword string  `mapstructure:"shiprocket_password"`
	ShiprocketRPS      float64 `mapstructure:"shiprocket_rps" validate:"gte=0"`
	ShiprocketBurst    int     `mapstructure:"shiprocket_burst" validate:"gte=0"`
	ShiprocketMaxPages int     `mapstructure:"shiprocket_max_pages" validate:"gte=1"`

	// Export
	GSTRate             float64 `mapstructure:"gst_rate" validate:"gte=0,lte=100"`
	DetailsLookbackDays int     `mapstructure:"details_lookback_days" validate:"gte=1"`

	// Jobs
	WalletFallbackCost float64       `mapstructure:"wallet_fallback_cost" validate:"gt=0"`
	WalletSafetyMargin float64       `mapstructure:"wallet_safety_margin" validate:"gte=0,lte=1"`
	LookupConcurrency  int           `mapstructure:"lookup_concurrency" validate:"min=1,max=16"`
	SchedulePickup     bool          `mapstructure:"schedule_pickup"`
	CallTimeout        time.Duration `mapstructure:"call_timeout"`
	PhaseTimeout       time.Duration `mapstructure:"phase_timeout"`

	// Carrier order upkeep during lookup: re-post found orders with the default package
	// dimensions, and create an ad-hoc order when no lookup key matches.
	RefreshCarrierOrders bool `mapstructure:"refresh_carrier_orders"`
	CreateMissingOrders  bool `mapstructure:"create_missing_orders"`

	// Persistence
	JobStore      string        `mapstructure:"job_store" validate:"oneof=memory redis postgres"`
	HistoryStore  string        `mapstructure:"history_store" validate:"oneof=file postgres"`
	DatabaseURL   string        `mapstructure:"database_url"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db" validate:"gte=0"`
	JobTTL        time.Duration `mapstructure:"job_ttl"`

	// Operator auth
	JWTSecret            string `mapstructure:"jwt_secret"`
	JWTExpirationHours   int    `mapstructure:"jwt_expiration_hours"`
	OperatorUsername     string `mapstructure:"operator_username"`
	OperatorPasswordHash string `mapstructure:"operator_password_hash"`
	BcryptCost           int    `mapstructure:"bcrypt_cost"`
	PasswordPepper       string `mapstructure:"password_pepper"`

	// Approval email
	SMTPHost          string `mapstructure:"smtp_host"`
	SMTPPort          int    `mapstructure:"smtp_port"`
	SMTPUsername      string `mapstructure:"smtp_username"`
	SMTPPassword      string `mapstructure:"smtp_password"`
	SMTPFrom          string `mapstructure:"smtp_from" validate:"omitempty,email"`
	ApprovalRecipient string `mapstructure:"approval_recipient" validate:"omitempty,email"`

	// Supplier portal
	PortalURL      string        `mapstructure:"portal_url" validate:"omitempty,url"`
	PortalUsername string        `mapstructure:"portal_username"`
	PortalPassword string        `mapstructure:"portal_password"`
	PortalHeadless bool          `mapstructure:"portal_headless"`
	PortalTimeout  time.Duration `mapstructure:"portal_timeout"`

	// Rate limiting
	RateLimitEnabled       bool          `mapstructure:"rate_limit_enabled"`
	RateLimitDefaultLimit  int           `mapstructure:"rate_limit_default_limit"`
	RateLimitDefaultWindow time.Duration `mapstructure:"rate_limit_default_window"`
	RateLimitJobsLimit     int           `mapstructure:"rate_limit_jobs_limit"`
	RateLimitJobsWindow    time.Duration `mapstructure:"rate_limit_jobs_window"`
	RateLimitWhitelist     string        `mapstructure:"rate_limit_whitelist"`
	RateLimitBlacklist     string        `mapstructure:"rate_limit_blacklist"`
}

var defaults = map[string]any{
	"port":        3001,
	"log_level":   "info",
	"log_format":  "json",
	"data_dir":    "data",
	"reports_dir": "data/reports",

	"allowed_origins": "*",

	"shopify_store_domain":  "",
	"shopify_client_id":     "",
	"shopify_client_secret": "",
	"shopify_api_version":   "2026-01",

	"shiprocket_base_url":  "https://apiv2.shiprocket.in",
	"shiprocket_email":     "",
	"shiprocket_password":  "",
	"shiprocket_rps":       2.0,
	"shiprocket_burst":     2,
	"shiprocket_max_pages": 5,

	"gst_rate":              18.0,
	"details_lookback_days": 3,

	"wallet_fallback_cost": 95.0,
	"wallet_safety_margin": 0.10,
	"lookup_concurrency":   1,
	"schedule_pickup":      false,
	"call_timeout":         "30s",
	"phase_timeout":        "15m",

	"refresh_carrier_orders": false,
	"create_missing_orders":  false,

	"job_store":      "memory",
	"history_store":  "file",
	"database_url":   "",
	"redis_addr":     "",
	"redis_password": "",
	"redis_db":       0,
	"job_ttl":        "24h",

	"jwt_secret":             "",
	"jwt_expiration_hours":   24,
	"operator_username":      "",
	"operator_password_hash": "",
	"bcrypt_cost":            12,
	"password_pepper":        "",

	"smtp_host":          "",
	"smtp_port":          587,
	"smtp_username":      "",
	"smtp_password":      "",
	"smtp_from":          "",
	"approval_recipient": "",

	"portal_url":      "",
	"portal_username": "",
	"portal_password": "",
	"portal_headless": true,
	"portal_timeout":  "2m",

	"rate_limit_enabled":        true,
	"rate_limit_default_limit":  600,
	"rate_limit_default_window": "1m",
	"rate_limit_jobs_limit":     10,
	"rate_limit_jobs_window":    "1h",
	"rate_limit_whitelist":      "",
	"rate_limit_blacklist":      "",
}

var validate = validator.New()

// Load reads configuration from path (optional) and the environment, then validates it.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if (c.JobStore == "postgres" || c.HistoryStore == "postgres") && c.DatabaseURL == "" {
		return fmt.Errorf("config error: DATABASE_URL is required for postgres stores")
	}
	if c.JobStore == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("config error: REDIS_ADDR is required for the redis job store")
	}
	if c.AuthEnabled() && (c.OperatorUsername == "" || c.OperatorPasswordHash == "") {
		return fmt.Errorf("config error: OPERATOR_USERNAME and OPERATOR_PASSWORD_HASH are required when JWT_SECRET is set")
	}
	return nil
}

// AuthEnabled reports whether operator authentication protects the API.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// ShopifyConfigured reports whether storefront credentials are present.
func (c *Config) ShopifyConfigured() bool {
	return c.ShopifyStoreDomain != "" && c.ShopifyClientID != "" && c.ShopifyClientSecret != ""
}

// ShiprocketConfigured reports whether carrier credentials are present.
func (c *Config) ShiprocketConfigured() bool {
	return c.ShiprocketEmail != "" && c.ShiprocketPassword != ""
}

// SMTPConfigured reports whether approval emails can be sent.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPFrom != "" && c.ApprovalRecipient != ""
}

// PortalConfigured reports whether portal uploads can run.
func (c *Config) PortalConfigured() bool {
	return c.PortalURL != "" && c.PortalUsername != "" && c.PortalPassword != ""
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
