// Package config loads Conduit's layered configuration: a base TOML
// file, an optional per-environment overlay selected by CONDUIT_ENV,
// and environment variable overrides applied during finalization.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/conduitworks/conduit/pkg/database"
	"github.com/conduitworks/conduit/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvConduitEnv             = "CONDUIT_ENV"
	EnvConduitShutdownTimeout = "CONDUIT_SHUTDOWN_TIMEOUT"
	EnvConduitVersion         = "CONDUIT_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "CONDUIT_DB_HOST",
	Port:            "CONDUIT_DB_PORT",
	Name:            "CONDUIT_DB_NAME",
	User:            "CONDUIT_DB_USER",
	Password:        "CONDUIT_DB_PASSWORD",
	SSLMode:         "CONDUIT_DB_SSL_MODE",
	MaxOpenConns:    "CONDUIT_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CONDUIT_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CONDUIT_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CONDUIT_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "CONDUIT_STORAGE_CONTAINER_NAME",
	ConnectionString: "CONDUIT_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration for the Conduit service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Pipeline        PipelineConfig  `toml:"pipeline"`
	Inference       InferenceConfig `toml:"inference"`
	Routing         RoutingConfig   `toml:"routing"`
	Status          StatusConfig    `toml:"status"`
	Identity        IdentityConfig  `toml:"identity"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the CONDUIT_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvConduitEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Inference.Merge(&overlay.Inference)
	c.Routing.Merge(&overlay.Routing)
	c.Status.Merge(&overlay.Status)
	c.Identity.Merge(&overlay.Identity)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Inference.Finalize(); err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	if err := c.Routing.Finalize(); err != nil {
		return fmt.Errorf("routing: %w", err)
	}
	if err := c.Status.Finalize(); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	if err := c.Identity.Finalize(); err != nil {
		return fmt.Errorf("identity: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvConduitShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvConduitVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvConduitEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
