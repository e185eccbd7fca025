package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override file configuration.
const (
	EnvDatabasePath = "AURA_DB_PATH"
	EnvOwner        = "AURA_OWNER"
	EnvLogLevel     = "AURA_LOG_LEVEL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
	Owner    OwnerConfig    `toml:"owner"`
	Matching MatchingConfig `toml:"matching"`
	Limits   LimitsConfig   `toml:"limits"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// OwnerConfig names the owner used by CLI commands when --owner is not given.
type OwnerConfig struct {
	Default string `toml:"default"`
}

// MatchingConfig holds the duplicate detection thresholds.
type MatchingConfig struct {
	DuplicateThreshold float64 `toml:"duplicate_threshold"`
	AutoUseThreshold   float64 `toml:"auto_use_threshold"`
}

// LimitsConfig holds per-owner request limits and session sizing.
type LimitsConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	HistorySize       int     `toml:"history_size"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks threshold ranges and limits.
func (c *Config) Validate() error {
	m := c.Matching
	if m.DuplicateThreshold < 0 || m.DuplicateThreshold > 1 {
		return fmt.Errorf("%w: matching.duplicate_threshold must be within [0, 1]", ErrInvalidConfig)
	}
	if m.AutoUseThreshold < 0 || m.AutoUseThreshold > 1 {
		return fmt.Errorf("%w: matching.auto_use_threshold must be within [0, 1]", ErrInvalidConfig)
	}
	if c.Limits.RequestsPerSecond < 0 || c.Limits.Burst < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadEnv loads variables from the given dotenv files (".env" when none are given).
//
// Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values with AURA_* environment variables when they are set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvDatabasePath)); v != "" {
		c.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOwner)); v != "" {
		c.Owner.Default = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
}
