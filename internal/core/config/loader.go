package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/replikit/internal/core/retry"
	"github.com/vietddude/replikit/internal/infra/api"
)

// TokenEnv is read when the config file sets no API token.
const TokenEnv = "REPLICATE_API_TOKEN"

// Load reads configuration from a YAML file. A missing file yields the
// defaults; ${VAR} references are expanded from the environment.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("Config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			// Expand environment variables in the YAML content
			expandedData := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = api.DefaultBaseURL
	}
	if cfg.API.Token == "" {
		cfg.API.Token = os.Getenv(TokenEnv)
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}

	if cfg.Polling.Strategy == "" {
		cfg.Polling.Strategy = "constant"
	}
	if cfg.Polling.Interval == 0 {
		cfg.Polling.Interval = 2 * time.Second
	}
	if cfg.Polling.Timeout == 0 {
		cfg.Polling.Timeout = 60 * time.Second
	}
	if cfg.Polling.Strategy == "exponential" {
		if cfg.Polling.MaxInterval == 0 {
			cfg.Polling.MaxInterval = 30 * time.Second
		}
		if cfg.Polling.Multiplier == 0 {
			cfg.Polling.Multiplier = 2
		}
	}

	if cfg.Storage.Driver == "" {
		if cfg.Storage.URL == "" {
			cfg.Storage.Driver = StorageMemory
		} else {
			cfg.Storage.Driver = "postgres"
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	if _, err := api.ParseBaseURL(c.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url: %w", err)
	}
	if _, err := c.Polling.Build(); err != nil {
		return fmt.Errorf("polling: %w", err)
	}

	switch c.Storage.Driver {
	case StorageMemory, "postgres", "pgx", "sqlite":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver != StorageMemory && c.Storage.URL == "" {
		return fmt.Errorf("storage.url is required for driver %q", c.Storage.Driver)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Build turns the polling settings into a retry strategy.
func (p PollingConfig) Build() (retry.Strategy, error) {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = retry.Unbounded
	}
	timeout := p.Timeout
	if timeout < 0 {
		timeout = retry.NoTimeout
	}

	var s retry.Strategy
	switch strings.ToLower(p.Strategy) {
	case "", "constant":
		s = retry.Constant{MaxAttempts: attempts, Interval: p.Interval, Timeout: timeout}
	case "exponential":
		s = retry.Exponential{
			MaxAttempts: attempts,
			Initial:     p.Interval,
			Max:         p.MaxInterval,
			Multiplier:  p.Multiplier,
			Timeout:     timeout,
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", p.Strategy)
	}

	if p.Jitter > 0 {
		s = retry.Jittered{Base: s, Fraction: p.Jitter}
	}
	if err := retry.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseLevel maps a logging level name to slog.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, err
	}
	return l, nil
}
