package stages

import (
	"context"
	"fmt"

	"github.com/conduitworks/conduit/internal/documents"
)

// PayloadStore is the narrow slice of blob storage the Ingestor needs.
type PayloadStore interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Ingestor validates a submission's stored payload and records ingestion
// metadata. It runs synchronously during submit, before the document
// record is created.
type Ingestor struct {
	payloads PayloadStore
}

// NewIngestor creates the ingestion executor.
func NewIngestor(payloads PayloadStore) *Ingestor {
	return &Ingestor{payloads: payloads}
}

func (i *Ingestor) Stage() documents.Stage {
	return documents.StageIngested
}

func (i *Ingestor) Execute(ctx context.Context, doc *documents.Document) (*Result, error) {
	exists, err := i.payloads.Exists(ctx, doc.PayloadKey)
	if err != nil {
		return nil, NewFailure(KindBackend, true, fmt.Errorf("check payload %s: %w", doc.PayloadKey, err))
	}
	if !exists {
		return nil, NewFailure(KindPayloadLost, false, fmt.Errorf("payload %s not found", doc.PayloadKey))
	}

	metadata := documents.Metadata{
		"file_size": doc.SizeBytes,
		"source":    string(doc.SourceType),
	}
	if doc.PageCount != nil {
		metadata["page_count"] = *doc.PageCount
	}

	return &Result{Metadata: metadata}, nil
}
