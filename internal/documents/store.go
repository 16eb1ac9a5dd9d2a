package documents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/pkg/pagination"
)

// Store is the durable record of documents. The Postgres implementation is
// the single source of truth in deployment; callers never cache state beyond
// one stage execution. All writes after creation go through CompareAndSwap.
type Store interface {
	// Get returns the document with its full history.
	// Returns ErrNotFound when no record exists.
	Get(ctx context.Context, id uuid.UUID) (*Document, error)

	// Create persists a new document at version 1 with its creation
	// history record. Returns ErrDuplicate on id collision.
	Create(ctx context.Context, doc *Document) (*Document, error)

	// CompareAndSwap commits doc against the version it was loaded at
	// (doc.Version). On success, the returned document carries the
	// incremented version. A losing writer gets ErrVersionConflict and
	// must reload, recheck preconditions, and retry; never blind-overwrite.
	CompareAndSwap(ctx context.Context, doc *Document) (*Document, error)

	// ListByOwner returns the owner's documents ordered by created_at
	// descending. History is not loaded for list results.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Document], error)

	// ListStale returns documents parked at a working stage (pending or
	// in_progress) with no commit since the cutoff. The pipeline
	// watchdog reconciles them.
	ListStale(ctx context.Context, cutoff time.Time) ([]Document, error)
}
