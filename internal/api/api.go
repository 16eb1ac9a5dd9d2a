// Package api assembles the API module: domain systems, the pipeline
// engine, identity enforcement, and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/conduitworks/conduit/internal/config"
	"github.com/conduitworks/conduit/internal/identity"
	"github.com/conduitworks/conduit/internal/infrastructure"
	"github.com/conduitworks/conduit/pkg/middleware"
	"github.com/conduitworks/conduit/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The returned Domain exposes the pipeline engine so the server can start
// its workers under the lifecycle coordinator.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	provider, err := newIdentity(cfg, runtime)
	if err != nil {
		return nil, nil, fmt.Errorf("identity init failed: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(provider.Authenticate)

	return m, domain, nil
}

func newIdentity(cfg *config.Config, runtime *Runtime) (identity.System, error) {
	switch cfg.Identity.Mode {
	case config.IdentityModeOIDC:
		return identity.NewOIDC(
			runtime.Lifecycle.Context(),
			cfg.Identity.Issuer,
			cfg.Identity.ClientID,
			runtime.Logger,
		)
	default:
		return identity.NewTrusted(runtime.Logger), nil
	}
}
