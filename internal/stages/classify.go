package stages

import (
	"context"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/services/inference"
)

// Classifier runs the classification model, assigning a label and a fresh
// confidence score. Re-classification recomputes the score; it never
// averages with an earlier value.
type Classifier struct {
	client InferenceClient
}

// NewClassifier creates the classification executor.
func NewClassifier(client InferenceClient) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Stage() documents.Stage {
	return documents.StageClassifying
}

func (c *Classifier) Execute(ctx context.Context, doc *documents.Document) (*Result, error) {
	result, err := c.client.Classify(ctx, inference.ClassifyRequest{
		DocumentID:  doc.ID.String(),
		PayloadKey:  doc.PayloadKey,
		ContentType: doc.ContentType,
		Entities:    entityMetadata(doc),
	})
	if err != nil {
		return nil, mapInferenceError(err)
	}

	label := result.Label
	confidence := result.Confidence
	return &Result{
		Classification: &label,
		Confidence:     &confidence,
	}, nil
}

func entityMetadata(doc *documents.Document) []string {
	raw, ok := doc.Metadata["entities"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		entities := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				entities = append(entities, s)
			}
		}
		return entities
	}
	return nil
}
