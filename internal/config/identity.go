package config

import (
	"fmt"
	"os"
)

const (
	EnvIdentityMode     = "CONDUIT_IDENTITY_MODE"
	EnvIdentityIssuer   = "CONDUIT_IDENTITY_ISSUER"
	EnvIdentityClientID = "CONDUIT_IDENTITY_CLIENT_ID"
)

// Identity provider modes.
const (
	IdentityModeOIDC    = "oidc"
	IdentityModeTrusted = "trusted"
)

// IdentityConfig selects and configures the identity provider. Trusted
// mode accepts caller-asserted headers and exists for local development.
type IdentityConfig struct {
	Mode     string `toml:"mode"`
	Issuer   string `toml:"issuer"`
	ClientID string `toml:"client_id"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *IdentityConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *IdentityConfig) Merge(overlay *IdentityConfig) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
}

func (c *IdentityConfig) loadDefaults() {
	if c.Mode == "" {
		c.Mode = IdentityModeTrusted
	}
}

func (c *IdentityConfig) loadEnv() {
	if v := os.Getenv(EnvIdentityMode); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(EnvIdentityIssuer); v != "" {
		c.Issuer = v
	}
	if v := os.Getenv(EnvIdentityClientID); v != "" {
		c.ClientID = v
	}
}

func (c *IdentityConfig) validate() error {
	switch c.Mode {
	case IdentityModeTrusted:
		return nil
	case IdentityModeOIDC:
		if c.Issuer == "" {
			return fmt.Errorf("issuer required for oidc mode")
		}
		if c.ClientID == "" {
			return fmt.Errorf("client_id required for oidc mode")
		}
		return nil
	}
	return fmt.Errorf("unknown identity mode: %s", c.Mode)
}
