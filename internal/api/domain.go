package api

import (
	"github.com/conduitworks/conduit/internal/config"
	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/overrides"
	"github.com/conduitworks/conduit/internal/pipeline"
	"github.com/conduitworks/conduit/internal/services/inference"
	"github.com/conduitworks/conduit/internal/stages"
	"github.com/conduitworks/conduit/internal/statusbus"
)

// Domain holds the pipeline engine and domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Engine    *pipeline.Engine
	Bus       *statusbus.Bus
	Overrides *overrides.Controller
}

// NewDomain wires the document store, stage executors, pipeline engine,
// status bus, and override controller from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	store := documents.NewStore(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	bus := statusbus.New(cfg.Status.SubscriberBuffer, runtime.Logger)

	client := inference.NewClient(cfg.Inference.Runtime())

	engine := pipeline.New(
		store,
		bus,
		stages.NewIngestor(runtime.Storage),
		[]stages.Executor{
			stages.NewExtractor(client),
			stages.NewClassifier(client),
			stages.NewRouter(cfg.Routing.Rules, cfg.Routing.Default),
		},
		cfg.Pipeline.Runtime(),
		runtime.Logger,
	)

	controller := overrides.NewController(store, engine, bus, runtime.Logger)

	docs := documents.NewSystem(
		store,
		runtime.Storage,
		engine,
		runtime.Logger,
		runtime.Pagination,
	)

	return &Domain{
		Documents: docs,
		Engine:    engine,
		Bus:       bus,
		Overrides: controller,
	}
}
