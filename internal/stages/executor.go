// Package stages defines the stage executor contract and the four
// executors that move a document through the pipeline: Ingestor,
// Extractor, Classifier, and Router.
//
// Executors are idempotent transformations: re-invoking one with an
// unchanged document yields an equivalent result. They know nothing about
// neighboring stages, persistence, or scheduling; external side effects
// (the inference backend, payload storage) are reported as failures,
// never masked.
package stages

import (
	"context"

	"github.com/conduitworks/conduit/internal/documents"
)

// Result carries the field updates a successful execution produced.
// Nil pointers leave the document's current value untouched; Metadata
// entries are merged append-only by the engine.
type Result struct {
	Classification *string
	Route          *string
	Confidence     *float64
	Metadata       documents.Metadata
}

// Executor performs one pipeline stage's work on a document.
type Executor interface {
	// Stage returns the working stage this executor serves.
	Stage() documents.Stage

	// Execute consumes the document and produces a Result, or an error.
	// Stage failures are reported as *Failure; the context carries the
	// engine's per-stage deadline.
	Execute(ctx context.Context, doc *documents.Document) (*Result, error)
}
