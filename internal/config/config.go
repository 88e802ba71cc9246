// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; credentials go to the configured
// key-value storage backend.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"neardeal/cli/internal/dsn"
	apperrors "neardeal/cli/internal/errors"
	"neardeal/cli/internal/xdg"
)

// Storage backend names.
const (
	BackendKeyring  = "keyring"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Environment overrides applied on top of the file.
const (
	EnvAPIURL   = "NEARDEAL_API_URL"
	EnvStorage  = "NEARDEAL_STORAGE"
	EnvLogLevel = "NEARDEAL_LOG_LEVEL"
)

const (
	defaultAPIBaseURL     = "https://api.neardeal.kr"
	defaultStartupTimeout = 10
)

// Config holds non-sensitive CLI settings.
type Config struct {
	LogLevel              string  `json:"log_level"`
	APIBaseURL            string  `json:"api_base_url"`
	StartupTimeoutSeconds int     `json:"startup_timeout_seconds"`
	Storage               Storage `json:"storage"`
}

// Storage selects and configures the credential key-value backend.
type Storage struct {
	Backend        string `json:"backend"`
	SQLitePath     string `json:"sqlite_path,omitempty"`
	RedisAddr      string `json:"redis_addr,omitempty"`
	RedisPrefix    string `json:"redis_prefix,omitempty"`
	PostgresDSN    string `json:"postgres_dsn,omitempty"`
	KeyringFileDir string `json:"keyring_file_dir,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		LogLevel:              "off",
		APIBaseURL:            defaultAPIBaseURL,
		StartupTimeoutSeconds: defaultStartupTimeout,
		Storage:               Storage{Backend: BackendKeyring},
	}
}

// StartupTimeout is the bound on the session controller's startup check.
func (c Config) StartupTimeout() time.Duration {
	if c.StartupTimeoutSeconds <= 0 {
		return defaultStartupTimeout * time.Second
	}
	return time.Duration(c.StartupTimeoutSeconds) * time.Second
}

// Validate rejects settings that cannot be acted on.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendKeyring, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return apperrors.New(apperrors.ConfigInvalid, "storage.redis_addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return apperrors.New(apperrors.ConfigInvalid, "storage.postgres_dsn is required for the postgres backend")
		}
		if _, err := dsn.Parse(c.Storage.PostgresDSN); err != nil {
			return apperrors.Wrap(apperrors.ConfigInvalid, "storage.postgres_dsn", err)
		}
	default:
		return apperrors.New(apperrors.ConfigInvalid, fmt.Sprintf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.APIBaseURL == "" {
		return apperrors.New(apperrors.ConfigInvalid, "api_base_url is required")
	}
	return nil
}

// path returns the path to the config file.
func path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads configuration; missing file returns defaults. Environment overrides
// are applied last.
func Load() (Config, error) {
	c := Default()
	p, err := path()
	if err != nil {
		return c, err
	}
	data, err := os.ReadFile(p)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return c, err
	}
	if err == nil {
		if err := json.Unmarshal(data, &c); err != nil {
			return c, apperrors.Wrap(apperrors.ConfigInvalid, "parse "+p, err)
		}
	}
	applyEnv(&c)
	return c, nil
}

func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.APIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorage)); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
}

// Save writes configuration with 0600 permissions.
func Save(c Config) error {
	p, err := path()
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, b, 0o600)
}
