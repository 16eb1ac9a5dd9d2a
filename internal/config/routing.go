package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	EnvRoutingRules   = "CONDUIT_ROUTING_RULES"
	EnvRoutingDefault = "CONDUIT_ROUTING_DEFAULT"
)

// RoutingConfig maps classification labels to destinations. Labels are
// matched case-insensitively; unmatched classifications go to Default.
// The env override uses "label=destination" pairs joined with commas.
type RoutingConfig struct {
	Rules   map[string]string `toml:"rules"`
	Default string            `toml:"default"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *RoutingConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Overlay rules are
// merged key by key.
func (c *RoutingConfig) Merge(overlay *RoutingConfig) {
	if overlay.Default != "" {
		c.Default = overlay.Default
	}
	if len(overlay.Rules) > 0 {
		if c.Rules == nil {
			c.Rules = make(map[string]string, len(overlay.Rules))
		}
		for label, dest := range overlay.Rules {
			c.Rules[label] = dest
		}
	}
}

func (c *RoutingConfig) loadDefaults() {
	if c.Default == "" {
		c.Default = "review"
	}
	if c.Rules == nil {
		c.Rules = make(map[string]string)
	}
}

func (c *RoutingConfig) loadEnv() {
	if v := os.Getenv(EnvRoutingDefault); v != "" {
		c.Default = v
	}
	if v := os.Getenv(EnvRoutingRules); v != "" {
		for _, pair := range strings.Split(v, ",") {
			label, dest, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && label != "" && dest != "" {
				c.Rules[label] = dest
			}
		}
	}
}

func (c *RoutingConfig) validate() error {
	for label, dest := range c.Rules {
		if dest == "" {
			return fmt.Errorf("rule %q has empty destination", label)
		}
	}
	return nil
}
