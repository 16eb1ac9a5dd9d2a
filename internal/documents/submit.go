package documents

import (
	"context"

	"github.com/google/uuid"
)

// SubmitCommand describes a new document entering the pipeline. The
// payload must already be stored under PayloadKey; the submitter verifies
// it before any record exists.
type SubmitCommand struct {
	OwnerID     uuid.UUID
	Name        string
	SourceType  SourceType
	PayloadKey  string
	ContentType string
	SizeBytes   int64
	PageCount   *int
}

// Submitter admits a document into the pipeline: it validates the
// submission, creates the record at the ingested stage, and schedules
// extraction. Implemented by the pipeline engine.
type Submitter interface {
	Submit(ctx context.Context, cmd SubmitCommand) (*Document, error)
}
