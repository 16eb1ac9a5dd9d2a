// Package overrides implements manual reprocessing: an operator sends a
// document backward to re-run extraction, classification, or routing.
// Overrides hold the same per-document execution lock as stage runs, so
// a command against a document with work in flight returns Busy instead
// of corrupting state.
package overrides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/identity"
	"github.com/conduitworks/conduit/internal/statusbus"
)

// Engine is the subset of the pipeline engine the controller depends on.
type Engine interface {
	// Locked runs fn while holding the document's execution lock,
	// or returns documents.ErrBusy.
	Locked(id uuid.UUID, fn func() error) error

	// Schedule enqueues a stage execution.
	Schedule(id uuid.UUID, stage documents.Stage) error
}

// Controller applies reprocess commands against the document store.
type Controller struct {
	store  documents.Store
	engine Engine
	bus    *statusbus.Bus
	logger *slog.Logger
}

// NewController creates an override controller sharing the pipeline
// engine's lock table and task queue.
func NewController(
	store documents.Store,
	engine Engine,
	bus *statusbus.Bus,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		store:  store,
		engine: engine,
		bus:    bus,
		logger: logger.With("system", "overrides"),
	}
}

// casRetries bounds transparent reload-and-retry cycles when a reset
// loses a version race to the watchdog.
const casRetries = 3

// Reprocess resets the document to the target working stage and
// schedules it. The target must not be ahead of the document's progress;
// stage results the rerun will regenerate are cleared, and an override
// record is appended to history. Returns documents.ErrBusy when a stage
// execution is in flight.
func (c *Controller) Reprocess(ctx context.Context, user identity.User, id uuid.UUID, target documents.Stage) (*documents.Document, error) {
	if !target.IsWorking() {
		return nil, fmt.Errorf("%w: %s is not a reprocess target", documents.ErrInvalidRequest, target)
	}

	var committed *documents.Document

	err := c.engine.Locked(id, func() error {
		var err error
		committed, err = c.commitReset(ctx, user, id, target)
		if err != nil {
			return err
		}
		if c.bus != nil {
			// publish under the lock so the pending event orders ahead
			// of any execution the reset triggers
			c.bus.Publish(statusbus.FromDocument(committed))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("document reprocess requested",
		"id", committed.ID, "target", target, "by", user.ID)

	if err := c.engine.Schedule(committed.ID, target); err != nil {
		return nil, err
	}

	return committed, nil
}

// commitReset applies the reset through optimistic concurrency. A lost
// version race reloads the document and re-runs authorization and
// eligibility against the state that won before retrying, so conflicts
// never reach the caller.
func (c *Controller) commitReset(ctx context.Context, user identity.User, id uuid.UUID, target documents.Stage) (*documents.Document, error) {
	for attempt := 1; ; attempt++ {
		doc, err := c.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := authorize(user, doc); err != nil {
			return nil, err
		}
		if err := checkEligible(doc, target); err != nil {
			return nil, err
		}

		reset := doc.Clone()
		applyReset(reset, target)
		reset.AppendHistory(documents.Transition{
			Type:        documents.TransitionOverride,
			Stage:       target,
			Status:      documents.StatusPending,
			TargetStage: target,
		})

		committed, err := c.store.CompareAndSwap(ctx, reset)
		if err == nil {
			return committed, nil
		}
		if !errors.Is(err, documents.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= casRetries {
			return nil, fmt.Errorf("override for %s: concurrent updates exceeded %d attempts", id, casRetries)
		}
	}
}

// ErrNotEligible rejects a reprocess target ahead of the document's
// pipeline progress.
var ErrNotEligible = errors.New("target stage is ahead of the document's progress")

// MapHTTPStatus maps override errors to HTTP status codes, deferring to
// the documents mapping for shared domain errors.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotEligible) {
		return http.StatusUnprocessableEntity
	}
	return documents.MapHTTPStatus(err)
}

func authorize(user identity.User, doc *documents.Document) error {
	if doc.OwnerID == user.ID || user.IsAdmin() {
		return nil
	}
	return documents.ErrForbidden
}

// checkEligible permits only backward movement: the document must have
// reached the target stage at least once. Failed documents are measured
// by the stage that failed.
func checkEligible(doc *documents.Document, target documents.Stage) error {
	position, ok := progress(doc)
	if !ok {
		return ErrNotEligible
	}

	targetRank, _ := target.Rank()
	if targetRank > position {
		return ErrNotEligible
	}
	return nil
}

// progress returns the rank of the furthest stage the document has
// reached.
func progress(doc *documents.Document) (int, bool) {
	if doc.Stage != documents.StageFailed {
		return doc.Stage.Rank()
	}

	for i := len(doc.History) - 1; i >= 0; i-- {
		t := doc.History[i]
		if t.Type == documents.TransitionFailure {
			return t.Stage.Rank()
		}
	}
	return 0, false
}

// applyReset moves the document to the target working stage as pending
// and clears the results the rerun regenerates. Metadata and history
// are preserved.
func applyReset(doc *documents.Document, target documents.Stage) {
	doc.Stage = target
	doc.Status = documents.StatusPending
	doc.ConfidenceScore = nil

	switch target {
	case documents.StageExtracting, documents.StageClassifying:
		doc.Classification = nil
		doc.Route = nil
	case documents.StageRouting:
		doc.Route = nil
	}
}
