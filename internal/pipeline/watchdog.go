package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/stages"
)

// watchdog periodically sweeps for documents stuck at a working stage:
// executions abandoned by a crash are reset to pending, and pending work
// whose queue entry was lost is re-enqueued. Documents with a live local
// execution are skipped.
func (e *Engine) watchdog(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.sweep(ctx)
		}
	}
}

func (e *Engine) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-e.cfg.StaleAfter)

	stale, err := e.store.ListStale(ctx, cutoff)
	if err != nil {
		e.logger.Error("watchdog sweep failed", "error", err)
		return
	}

	for i := range stale {
		doc := &stale[i]
		if err := e.reconcile(ctx, doc); err != nil {
			e.logger.Warn("watchdog reconcile failed",
				"id", doc.ID, "stage", doc.Stage, "error", err)
		}
	}
}

func (e *Engine) reconcile(ctx context.Context, doc *documents.Document) error {
	if e.locks.isHeld(doc.ID) {
		return nil
	}
	if !doc.Stage.IsWorking() {
		return nil
	}

	stage := doc.Stage

	if doc.Status == documents.StatusInProgress {
		reset, err := e.commit(ctx, doc, func(d *documents.Document) error {
			if d.Stage != stage || d.Status != documents.StatusInProgress {
				return errPreconditionChanged
			}
			d.Status = documents.StatusPending
			d.AppendHistory(documents.Transition{
				Type:      documents.TransitionFailure,
				Stage:     stage,
				Status:    documents.StatusPending,
				ErrorKind: stages.KindStale,
				Error:     "execution abandoned, reset to pending",
			})
			return nil
		})
		if errors.Is(err, errPreconditionChanged) {
			return nil
		}
		if err != nil {
			return err
		}

		e.logger.Info("reclaimed abandoned execution",
			"id", reset.ID, "stage", stage)
	}

	return e.Schedule(doc.ID, stage)
}
