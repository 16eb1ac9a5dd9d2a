package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/conduitworks/conduit/internal/pipeline"
)

const (
	EnvPipelineWorkers          = "CONDUIT_PIPELINE_WORKERS"
	EnvPipelineQueueSize        = "CONDUIT_PIPELINE_QUEUE_SIZE"
	EnvPipelineMaxAttempts      = "CONDUIT_PIPELINE_MAX_ATTEMPTS"
	EnvPipelineBackoffBase      = "CONDUIT_PIPELINE_BACKOFF_BASE"
	EnvPipelineBackoffCap       = "CONDUIT_PIPELINE_BACKOFF_CAP"
	EnvPipelineStageTimeout     = "CONDUIT_PIPELINE_STAGE_TIMEOUT"
	EnvPipelineWatchdogInterval = "CONDUIT_PIPELINE_WATCHDOG_INTERVAL"
	EnvPipelineStaleAfter       = "CONDUIT_PIPELINE_STALE_AFTER"
	EnvPipelineCASRetries       = "CONDUIT_PIPELINE_CAS_RETRIES"
)

// PipelineConfig holds worker pool sizing and the retry, timeout, and
// watchdog policy. Durations use Go duration syntax.
type PipelineConfig struct {
	Workers          int    `toml:"workers"`
	QueueSize        int    `toml:"queue_size"`
	MaxAttempts      int    `toml:"max_attempts"`
	BackoffBase      string `toml:"backoff_base"`
	BackoffCap       string `toml:"backoff_cap"`
	StageTimeout     string `toml:"stage_timeout"`
	WatchdogInterval string `toml:"watchdog_interval"`
	StaleAfter       string `toml:"stale_after"`
	CASRetries       int    `toml:"cas_retries"`
}

// Runtime converts to the pipeline engine's config, with engine defaults
// filling anything unset.
func (c *PipelineConfig) Runtime() pipeline.Config {
	cfg := pipeline.Config{
		Workers:     c.Workers,
		QueueSize:   c.QueueSize,
		MaxAttempts: c.MaxAttempts,
		CASRetries:  c.CASRetries,
	}
	cfg.BackoffBase, _ = time.ParseDuration(c.BackoffBase)
	cfg.BackoffCap, _ = time.ParseDuration(c.BackoffCap)
	cfg.StageTimeout, _ = time.ParseDuration(c.StageTimeout)
	cfg.WatchdogInterval, _ = time.ParseDuration(c.WatchdogInterval)
	cfg.StaleAfter, _ = time.ParseDuration(c.StaleAfter)
	return cfg
}

// Finalize applies environment variable overrides and validation.
// Zero values fall through to the engine's defaults.
func (c *PipelineConfig) Finalize() error {
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.QueueSize != 0 {
		c.QueueSize = overlay.QueueSize
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BackoffBase != "" {
		c.BackoffBase = overlay.BackoffBase
	}
	if overlay.BackoffCap != "" {
		c.BackoffCap = overlay.BackoffCap
	}
	if overlay.StageTimeout != "" {
		c.StageTimeout = overlay.StageTimeout
	}
	if overlay.WatchdogInterval != "" {
		c.WatchdogInterval = overlay.WatchdogInterval
	}
	if overlay.StaleAfter != "" {
		c.StaleAfter = overlay.StaleAfter
	}
	if overlay.CASRetries != 0 {
		c.CASRetries = overlay.CASRetries
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvPipelineQueueSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.QueueSize = n
		}
	}
	if v := os.Getenv(EnvPipelineMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvPipelineBackoffBase); v != "" {
		c.BackoffBase = v
	}
	if v := os.Getenv(EnvPipelineBackoffCap); v != "" {
		c.BackoffCap = v
	}
	if v := os.Getenv(EnvPipelineStageTimeout); v != "" {
		c.StageTimeout = v
	}
	if v := os.Getenv(EnvPipelineWatchdogInterval); v != "" {
		c.WatchdogInterval = v
	}
	if v := os.Getenv(EnvPipelineStaleAfter); v != "" {
		c.StaleAfter = v
	}
	if v := os.Getenv(EnvPipelineCASRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CASRetries = n
		}
	}
}

func (c *PipelineConfig) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers: %d", c.Workers)
	}
	if c.CASRetries < 0 {
		return fmt.Errorf("invalid cas_retries: %d", c.CASRetries)
	}
	for field, value := range map[string]string{
		"backoff_base":      c.BackoffBase,
		"backoff_cap":       c.BackoffCap,
		"stage_timeout":     c.StageTimeout,
		"watchdog_interval": c.WatchdogInterval,
		"stale_after":       c.StaleAfter,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", field, err)
		}
	}
	return nil
}
