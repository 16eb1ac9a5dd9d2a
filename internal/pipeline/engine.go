// Package pipeline implements the document lifecycle engine: the state
// machine that sequences stage executors, the worker pool that runs many
// documents concurrently, per-document mutual exclusion, the retry and
// failure policy, and the watchdog that reconciles abandoned executions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/stages"
	"github.com/conduitworks/conduit/internal/statusbus"
	"github.com/conduitworks/conduit/pkg/lifecycle"
)

// ErrShutdown is returned when scheduling against a stopped engine.
var ErrShutdown = errors.New("pipeline engine is shut down")

// errPreconditionChanged aborts a commit whose document moved underneath
// it (override or watchdog won the race). The losing path drops out
// silently; the winning path owns the document now.
var errPreconditionChanged = errors.New("document state changed before commit")

type task struct {
	documentID uuid.UUID
	stage      documents.Stage
}

// Engine owns the document state machine. All stage transitions, retries,
// and terminal failures flow through it; manual overrides re-enter
// through the same Advance path so failure semantics stay uniform.
type Engine struct {
	store     documents.Store
	bus       *statusbus.Bus
	ingestor  stages.Executor
	executors map[documents.Stage]stages.Executor
	cfg       Config
	logger    *slog.Logger

	locks *lockTable
	tasks chan task
	done  chan struct{}
}

// New creates an engine executing the given stage executors. The ingestor
// runs synchronously during Submit; the remaining executors are keyed by
// the working stage they serve and run on the worker pool.
func New(
	store documents.Store,
	bus *statusbus.Bus,
	ingestor stages.Executor,
	executors []stages.Executor,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	byStage := make(map[documents.Stage]stages.Executor, len(executors))
	for _, exec := range executors {
		byStage[exec.Stage()] = exec
	}

	cfg = cfg.withDefaults()

	return &Engine{
		store:     store,
		bus:       bus,
		ingestor:  ingestor,
		executors: byStage,
		cfg:       cfg,
		logger:    logger.With("system", "pipeline"),
		locks:     newLockTable(),
		tasks:     make(chan task, cfg.QueueSize),
		done:      make(chan struct{}),
	}
}

// Start launches the worker pool and watchdog under the lifecycle
// coordinator. Workers drain until the coordinator's context is
// cancelled.
func (e *Engine) Start(lc *lifecycle.Coordinator) error {
	g, ctx := errgroup.WithContext(lc.Context())

	for i := 0; i < e.cfg.Workers; i++ {
		g.Go(func() error {
			e.worker(ctx)
			return nil
		})
	}

	g.Go(func() error {
		e.watchdog(ctx)
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		close(e.done)
		g.Wait()
		e.logger.Info("pipeline engine stopped")
	})

	e.logger.Info("pipeline engine started",
		"workers", e.cfg.Workers,
		"max_attempts", e.cfg.MaxAttempts,
		"stage_timeout", e.cfg.StageTimeout,
	)
	return nil
}

// Submit validates a submission, runs the ingestor, and creates the
// document at the ingested stage. Malformed submissions are rejected
// before any record exists. On success the extract stage is scheduled.
func (e *Engine) Submit(ctx context.Context, cmd documents.SubmitCommand) (*documents.Document, error) {
	if err := validateSubmit(cmd); err != nil {
		return nil, err
	}

	doc := &documents.Document{
		ID:          uuid.New(),
		OwnerID:     cmd.OwnerID,
		Name:        cmd.Name,
		SourceType:  cmd.SourceType,
		PayloadKey:  cmd.PayloadKey,
		ContentType: cmd.ContentType,
		SizeBytes:   cmd.SizeBytes,
		PageCount:   cmd.PageCount,
		Stage:       documents.StageIngested,
		Status:      documents.StatusCompleted,
	}

	result, err := e.ingestor.Execute(ctx, doc)
	if err != nil {
		failure := stages.AsFailure(err)
		if failure.Retryable {
			return nil, fmt.Errorf("ingest %s: %w", cmd.Name, failure)
		}
		return nil, fmt.Errorf("%w: %v", documents.ErrInvalidRequest, failure)
	}
	doc.MergeMetadata(result.Metadata)

	doc.AppendHistory(documents.Transition{
		Type:   documents.TransitionCreated,
		Stage:  documents.StageIngested,
		Status: documents.StatusCompleted,
	})

	created, err := e.store.Create(ctx, doc)
	if err != nil {
		return nil, err
	}

	e.publish(created)

	if err := e.Schedule(created.ID, documents.StageExtracting); err != nil {
		e.logger.Error("schedule extract failed", "id", created.ID, "error", err)
	}

	return created, nil
}

// Schedule enqueues a stage execution. It blocks only when the task
// queue is full, and gives up on shutdown.
func (e *Engine) Schedule(id uuid.UUID, stage documents.Stage) error {
	t := task{documentID: id, stage: stage}

	select {
	case e.tasks <- t:
		return nil
	default:
	}

	select {
	case e.tasks <- t:
		return nil
	case <-e.done:
		return ErrShutdown
	}
}

// Advance runs the executor for stage against the document. At most one
// execution per document is in flight; a concurrent attempt returns
// ErrBusy immediately rather than queuing.
func (e *Engine) Advance(ctx context.Context, id uuid.UUID, stage documents.Stage) error {
	exec, ok := e.executors[stage]
	if !ok {
		return fmt.Errorf("no executor for stage %s", stage)
	}

	if !e.locks.tryAcquire(id) {
		return documents.ErrBusy
	}
	defer e.locks.release(id)

	return e.advanceLocked(ctx, id, stage, exec)
}

// Locked runs fn while holding the document's execution lock. The
// override controller uses it so manual commands observe the same
// mutual exclusion as stage executions.
func (e *Engine) Locked(id uuid.UUID, fn func() error) error {
	if !e.locks.tryAcquire(id) {
		return documents.ErrBusy
	}
	defer e.locks.release(id)

	return fn()
}

func (e *Engine) advanceLocked(ctx context.Context, id uuid.UUID, stage documents.Stage, exec stages.Executor) error {
	doc, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if !eligible(doc, stage) {
		e.logger.Debug("stage not eligible, skipping",
			"id", id, "stage", stage, "current", doc.Stage, "status", doc.Status)
		return nil
	}

	doc, err = e.commit(ctx, doc, func(d *documents.Document) error {
		if !eligible(d, stage) {
			return errPreconditionChanged
		}
		d.Stage = stage
		d.Status = documents.StatusInProgress
		return nil
	})
	if errors.Is(err, errPreconditionChanged) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark %s in progress: %w", stage, err)
	}
	e.publish(doc)

	result, failure := e.execute(ctx, doc, stage, exec)
	if failure != nil {
		if ctx.Err() != nil {
			// shutdown interrupted the execution; leave the document
			// in progress for the watchdog to reconcile on restart
			return ctx.Err()
		}
		return e.failStage(ctx, doc, stage, failure)
	}

	doc, err = e.commit(ctx, doc, func(d *documents.Document) error {
		if d.Stage != stage || d.Status != documents.StatusInProgress {
			return errPreconditionChanged
		}
		applyResult(d, stage, result)
		return nil
	})
	if errors.Is(err, errPreconditionChanged) {
		return nil
	}
	if err != nil {
		var f *stages.Failure
		if errors.As(err, &f) {
			return e.failStage(ctx, doc, stage, f)
		}
		return fmt.Errorf("commit %s result: %w", stage, err)
	}

	e.publish(doc)
	e.logger.Info("stage completed",
		"id", doc.ID, "stage", doc.Stage, "confidence", doc.ConfidenceScore)

	if next, ok := doc.Stage.NextWork(); ok {
		if err := e.Schedule(doc.ID, next); err != nil {
			return fmt.Errorf("schedule %s: %w", next, err)
		}
	}

	return nil
}

// execute invokes the stage executor under the configured timeout,
// retrying retryable failures with exponential backoff up to the
// attempt ceiling.
func (e *Engine) execute(
	ctx context.Context,
	doc *documents.Document,
	stage documents.Stage,
	exec stages.Executor,
) (*stages.Result, *stages.Failure) {
	for attempt := 1; ; attempt++ {
		execCtx, cancel := context.WithTimeout(ctx, e.cfg.StageTimeout)
		result, err := exec.Execute(execCtx, doc.Clone())
		cancel()

		if err == nil {
			return result, nil
		}

		failure := stages.AsFailure(err)
		e.logger.Warn("stage execution failed",
			"id", doc.ID,
			"stage", stage,
			"attempt", attempt,
			"kind", failure.Kind,
			"retryable", failure.Retryable,
			"error", failure.Err,
		)

		if !failure.Retryable || attempt >= e.cfg.MaxAttempts {
			return nil, failure
		}

		select {
		case <-time.After(e.cfg.backoff(attempt)):
		case <-ctx.Done():
			return nil, stages.AsFailure(ctx.Err())
		}
	}
}

// failStage commits the terminal failed state with its history record.
// The document stays visible and re-enterable through overrides.
func (e *Engine) failStage(ctx context.Context, doc *documents.Document, stage documents.Stage, failure *stages.Failure) error {
	committed, err := e.commit(ctx, doc, func(d *documents.Document) error {
		if d.Stage != stage || d.Status != documents.StatusInProgress {
			return errPreconditionChanged
		}
		d.Stage = documents.StageFailed
		d.Status = documents.StatusFailed
		d.AppendHistory(documents.Transition{
			Type:      documents.TransitionFailure,
			Stage:     stage,
			Status:    documents.StatusFailed,
			ErrorKind: failure.Kind,
			Error:     failure.Error(),
		})
		return nil
	})
	if errors.Is(err, errPreconditionChanged) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("commit failed state: %w", err)
	}

	e.publish(committed)
	e.logger.Error("stage failed terminally",
		"id", committed.ID, "stage", stage, "kind", failure.Kind)

	return nil
}

// commit applies mutate and writes through optimistic concurrency.
// Version conflicts are recovered transparently by reloading and
// re-applying up to CASRetries; exceeding the bound surfaces as a
// non-retryable failure.
func (e *Engine) commit(
	ctx context.Context,
	doc *documents.Document,
	mutate func(*documents.Document) error,
) (*documents.Document, error) {
	current := doc.Clone()

	for attempt := 1; ; attempt++ {
		if err := mutate(current); err != nil {
			return nil, err
		}

		committed, err := e.store.CompareAndSwap(ctx, current)
		if err == nil {
			return committed, nil
		}
		if !errors.Is(err, documents.ErrVersionConflict) {
			return nil, err
		}
		if attempt >= e.cfg.CASRetries {
			return nil, stages.NewFailure(stages.KindConflict, false, err)
		}

		fresh, err := e.store.Get(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		current = fresh.Clone()
	}
}

func (e *Engine) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-e.tasks:
			if err := e.Advance(ctx, t.documentID, t.stage); err != nil {
				if errors.Is(err, documents.ErrBusy) {
					// another execution owns the document; the watchdog
					// re-enqueues pending work it left behind
					continue
				}
				e.logger.Warn("advance failed",
					"id", t.documentID, "stage", t.stage, "error", err)
			}
		}
	}
}

func (e *Engine) publish(doc *documents.Document) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(statusbus.FromDocument(doc))
}

// eligible reports whether stage may start given the document's current
// committed state: either the preceding resting stage completed, or an
// override reset the document to this working stage as pending.
func eligible(d *documents.Document, stage documents.Stage) bool {
	if d.Stage == stage {
		return d.Status == documents.StatusPending
	}
	return d.Status == documents.StatusCompleted && d.Stage.Precedes(stage)
}

func applyResult(d *documents.Document, stage documents.Stage, result *stages.Result) {
	done, _ := stage.Done()

	if result.Classification != nil {
		d.Classification = result.Classification
	}
	if result.Route != nil {
		d.Route = result.Route
	}
	if result.Confidence != nil {
		d.ConfidenceScore = result.Confidence
	}
	d.MergeMetadata(result.Metadata)

	d.Stage = done
	d.Status = documents.StatusCompleted
	d.AppendHistory(documents.Transition{
		Type:            documents.TransitionStage,
		Stage:           done,
		Status:          documents.StatusCompleted,
		ConfidenceScore: d.ConfidenceScore,
	})
}

func validateSubmit(cmd documents.SubmitCommand) error {
	if cmd.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: owner required", documents.ErrInvalidRequest)
	}
	if cmd.Name == "" {
		return fmt.Errorf("%w: name required", documents.ErrInvalidRequest)
	}
	if _, ok := documents.ParseSourceType(string(cmd.SourceType)); !ok {
		return fmt.Errorf("%w: unknown source type %q", documents.ErrInvalidRequest, cmd.SourceType)
	}
	if cmd.PayloadKey == "" {
		return fmt.Errorf("%w: payload reference required", documents.ErrInvalidRequest)
	}
	return nil
}
