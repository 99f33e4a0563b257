package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Config holds the configuration for the canary service.
// Environment variables are parsed from the CANARY_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage: postgres for deployments, sqlite for local runs.
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"./data/canary.db"`

	// Auth
	JWTSecret    string `envconfig:"JWT_SECRET" default:""`
	TokenTTLDays int    `envconfig:"TOKEN_TTL_DAYS" default:"30"`

	// Gemini (generative text)
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiBaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiModel   string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Perplexity (news search)
	PerplexityAPIKey  string `envconfig:"PERPLEXITY_API_KEY" default:""`
	PerplexityBaseURL string `envconfig:"PERPLEXITY_BASE_URL" default:"https://api.perplexity.ai"`

	// Unsplash (article images)
	UnsplashAccessKey string `envconfig:"UNSPLASH_ACCESS_KEY" default:""`
	UnsplashBaseURL   string `envconfig:"UNSPLASH_BASE_URL" default:"https://api.unsplash.com"`

	// Email. Empty sender disables sending entirely (local runs).
	SenderEmail string `envconfig:"SENDER_EMAIL" default:""`
	FrontendURL string `envconfig:"FRONTEND_URL" default:"https://yourcanaryapp.com"`

	// Digest sweep: 0 disables the in-process ticker; the internal HTTP
	// trigger stays available either way.
	DigestIntervalMinutes int `envconfig:"DIGEST_INTERVAL_MINUTES" default:"0"`
}

// Validate checks invariants that envconfig defaults cannot express.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("CANARY_POSTGRES_DSN required when DB_DRIVER=postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("CANARY_SQLITE_PATH required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("CANARY_JWT_SECRET is required")
	}
	if c.TokenTTLDays <= 0 {
		return fmt.Errorf("CANARY_TOKEN_TTL_DAYS must be positive")
	}
	return nil
}

// New creates a new Config by parsing environment variables.
// Example: CANARY_HTTP_PORT, CANARY_GEMINI_API_KEY.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("CANARY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("db_driver", cfg.DBDriver).
		Int("port", cfg.HTTPPort).
		Str("gemini_model", cfg.GeminiModel).
		Bool("gemini_key_present", cfg.GeminiAPIKey != "").
		Bool("perplexity_key_present", cfg.PerplexityAPIKey != "").
		Bool("unsplash_key_present", cfg.UnsplashAccessKey != "").
		Int("digest_interval_minutes", cfg.DigestIntervalMinutes).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config suitable for unit tests.
func NewForTesting() *Config {
	return &Config{
		Environment:  EnvTesting,
		HTTPPort:     8080,
		DBDriver:     "sqlite",
		SQLitePath:   ":memory:",
		JWTSecret:    "test-secret",
		TokenTTLDays: 30,
		GeminiModel:  "gemini-2.0-flash",
		SenderEmail:  "noreply@canary.test",
		FrontendURL:  "https://canary.test",
	}
}

// IsTesting returns true if the environment is set to testing
func (c *Config) IsTesting() bool {
	return c.Environment == EnvTesting
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
