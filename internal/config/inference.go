package config

import (
	"fmt"
	"os"
	"time"

	"github.com/conduitworks/conduit/internal/services/inference"
)

const (
	EnvInferenceBaseURL = "CONDUIT_INFERENCE_BASE_URL"
	EnvInferenceToken   = "CONDUIT_INFERENCE_TOKEN"
	EnvInferenceTimeout = "CONDUIT_INFERENCE_TIMEOUT"
)

// InferenceConfig holds connection settings for the extraction and
// classification backend.
type InferenceConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
	Timeout string `toml:"timeout"`
}

// Runtime converts to the inference client's config.
func (c *InferenceConfig) Runtime() inference.Config {
	timeout, _ := time.ParseDuration(c.Timeout)
	return inference.Config{
		BaseURL: c.BaseURL,
		Token:   c.Token,
		Timeout: timeout,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *InferenceConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *InferenceConfig) Merge(overlay *InferenceConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *InferenceConfig) loadDefaults() {
	if c.Timeout == "" {
		c.Timeout = "1m"
	}
}

func (c *InferenceConfig) loadEnv() {
	if v := os.Getenv(EnvInferenceBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvInferenceToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvInferenceTimeout); v != "" {
		c.Timeout = v
	}
}

func (c *InferenceConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
