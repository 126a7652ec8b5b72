package config

import (
	"time"

	"github.com/vietddude/replikit/internal/infra/api"
	redisclient "github.com/vietddude/replikit/internal/infra/redis"
	"github.com/vietddude/replikit/internal/infra/storage/sqldb"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API     api.Config         `yaml:"api"`
	Polling PollingConfig      `yaml:"polling"`
	Storage sqldb.Config       `yaml:"storage"`
	Redis   redisclient.Config `yaml:"redis"`
	Logging LoggingConfig      `yaml:"logging"`
	Server  ServerConfig       `yaml:"server"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PollingConfig describes the completion polling strategy.
type PollingConfig struct {
	Strategy    string        `yaml:"strategy"`     // constant, exponential
	MaxAttempts uint64        `yaml:"max_attempts"` // 0 = unbounded
	Interval    time.Duration `yaml:"interval"`
	MaxInterval time.Duration `yaml:"max_interval"` // exponential only
	Multiplier  float64       `yaml:"multiplier"`   // exponential only
	Jitter      float64       `yaml:"jitter"`       // fraction, 0 disables
	Timeout     time.Duration `yaml:"timeout"`      // negative = no deadline
}

// StorageMemory keeps snapshots in process only.
const StorageMemory = "memory"
