package api

import (
	"net/http"

	"github.com/conduitworks/conduit/internal/config"
	"github.com/conduitworks/conduit/internal/overrides"
	"github.com/conduitworks/conduit/internal/statusbus"
	"github.com/conduitworks/conduit/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		overrides.NewHandler(domain.Overrides, runtime.Logger).Routes(),
		statusbus.NewHandler(domain.Bus, runtime.Logger).Routes(),
	)
}
