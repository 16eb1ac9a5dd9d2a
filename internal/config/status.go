package config

import (
	"fmt"
	"os"
	"strconv"
)

const EnvStatusSubscriberBuffer = "CONDUIT_STATUS_SUBSCRIBER_BUFFER"

// StatusConfig controls the status bus. SubscriberBuffer bounds each
// subscriber's event queue; slow consumers overflowing it receive a
// resync marker in place of their oldest buffered event.
type StatusConfig struct {
	SubscriberBuffer int `toml:"subscriber_buffer"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *StatusConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *StatusConfig) Merge(overlay *StatusConfig) {
	if overlay.SubscriberBuffer != 0 {
		c.SubscriberBuffer = overlay.SubscriberBuffer
	}
}

func (c *StatusConfig) loadDefaults() {
	if c.SubscriberBuffer == 0 {
		c.SubscriberBuffer = 64
	}
}

func (c *StatusConfig) loadEnv() {
	if v := os.Getenv(EnvStatusSubscriberBuffer); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.SubscriberBuffer = n
		}
	}
}

func (c *StatusConfig) validate() error {
	if c.SubscriberBuffer < 1 {
		return fmt.Errorf("subscriber_buffer must be positive: %d", c.SubscriberBuffer)
	}
	return nil
}
