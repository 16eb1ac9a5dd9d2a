package stages

import (
	"context"
	"errors"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/services/inference"
)

// InferenceClient is the slice of the inference backend the extraction
// and classification executors depend on.
type InferenceClient interface {
	Extract(ctx context.Context, req inference.ExtractRequest) (*inference.ExtractResult, error)
	Classify(ctx context.Context, req inference.ClassifyRequest) (*inference.ClassifyResult, error)
}

// Extractor runs the extraction model over a document payload, recording
// detected entities, OCR duration, and the extraction confidence score.
type Extractor struct {
	client InferenceClient
}

// NewExtractor creates the extraction executor.
func NewExtractor(client InferenceClient) *Extractor {
	return &Extractor{client: client}
}

func (e *Extractor) Stage() documents.Stage {
	return documents.StageExtracting
}

func (e *Extractor) Execute(ctx context.Context, doc *documents.Document) (*Result, error) {
	result, err := e.client.Extract(ctx, inference.ExtractRequest{
		DocumentID:  doc.ID.String(),
		PayloadKey:  doc.PayloadKey,
		ContentType: doc.ContentType,
	})
	if err != nil {
		return nil, mapInferenceError(err)
	}

	confidence := result.Confidence
	return &Result{
		Confidence: &confidence,
		Metadata: documents.Metadata{
			"entities":     result.Entities,
			"ocr_duration": result.OCRDuration,
		},
	}, nil
}

func mapInferenceError(err error) *Failure {
	switch {
	case errors.Is(err, inference.ErrUnavailable):
		return NewFailure(KindBackend, true, err)
	case errors.Is(err, inference.ErrRejected):
		return NewFailure(KindRejected, false, err)
	case errors.Is(err, inference.ErrBadResponse):
		return NewFailure(KindBadResponse, false, err)
	default:
		return AsFailure(err)
	}
}
