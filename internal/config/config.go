package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	APIBaseURL  string `envconfig:"DASH_API_BASE_URL"`
	AccessToken string `envconfig:"DASH_ACCESS_TOKEN"`

	Port       int    `envconfig:"DASH_PORT" default:"8090"`
	LogLevel   string `envconfig:"DASH_LOG_LEVEL" default:"info"`
	LogDir     string `envconfig:"DASH_LOG_DIR" default:"./logs"`
	DBPath     string `envconfig:"DASH_DB_PATH" default:"./data/p2pads.sqlite"`
	PolicyFile string `envconfig:"DASH_POLICY_FILE" default:"./quantity_policy.yaml"`

	StatsdAddr string  `envconfig:"DASH_STATSD_ADDR"`
	ToggleRPS  float64 `envconfig:"DASH_TOGGLE_RPS" default:"5"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars.
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.AccessToken = strings.TrimSpace(cfg.AccessToken)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness. A missing backend
// URL or access token is fatal: nothing can be fetched without them.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingBaseURL)
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api base url must be an absolute http(s) URL, got %q", ErrInvalidConfig, c.APIBaseURL)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrMissingAccessToken)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.ToggleRPS <= 0 {
		return fmt.Errorf("%w: toggle rps must be positive, got %v", ErrInvalidConfig, c.ToggleRPS)
	}
	return nil
}
