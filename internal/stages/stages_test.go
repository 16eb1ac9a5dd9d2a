package stages_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/services/inference"
	"github.com/conduitworks/conduit/internal/stages"
	"github.com/conduitworks/conduit/internal/testsupport"
)

func ptr[T any](v T) *T { return &v }

type stubInference struct {
	extract     *inference.ExtractResult
	extractErr  error
	classify    *inference.ClassifyResult
	classifyErr error

	lastClassify inference.ClassifyRequest
}

func (s *stubInference) Extract(ctx context.Context, req inference.ExtractRequest) (*inference.ExtractResult, error) {
	if s.extractErr != nil {
		return nil, s.extractErr
	}
	return s.extract, nil
}

func (s *stubInference) Classify(ctx context.Context, req inference.ClassifyRequest) (*inference.ClassifyResult, error) {
	s.lastClassify = req
	if s.classifyErr != nil {
		return nil, s.classifyErr
	}
	return s.classify, nil
}

func sample() *documents.Document {
	return &documents.Document{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Name:        "doc.pdf",
		SourceType:  documents.SourceUpload,
		PayloadKey:  "payloads/doc.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2048,
	}
}

func TestIngestorRecordsMetadata(t *testing.T) {
	ingestor := stages.NewIngestor(testsupport.NewFakePayloads("payloads/doc.pdf"))

	doc := sample()
	doc.PageCount = ptr(12)

	result, err := ingestor.Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Metadata["file_size"] != int64(2048) {
		t.Errorf("file_size = %v, want 2048", result.Metadata["file_size"])
	}
	if result.Metadata["source"] != "upload" {
		t.Errorf("source = %v, want upload", result.Metadata["source"])
	}
	if result.Metadata["page_count"] != 12 {
		t.Errorf("page_count = %v, want 12", result.Metadata["page_count"])
	}
}

func TestIngestorMissingPayload(t *testing.T) {
	ingestor := stages.NewIngestor(testsupport.NewFakePayloads())

	_, err := ingestor.Execute(context.Background(), sample())

	var failure *stages.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute error = %v, want *Failure", err)
	}
	if failure.Kind != stages.KindPayloadLost {
		t.Errorf("Kind = %s, want %s", failure.Kind, stages.KindPayloadLost)
	}
	if failure.Retryable {
		t.Error("missing payload must not be retryable")
	}
}

func TestExtractorMapsResult(t *testing.T) {
	client := &stubInference{
		extract: &inference.ExtractResult{
			Entities:    []string{"acme", "invoice"},
			OCRDuration: "1.2s",
			Confidence:  88.0,
		},
	}

	result, err := stages.NewExtractor(client).Execute(context.Background(), sample())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Confidence == nil || *result.Confidence != 88.0 {
		t.Errorf("Confidence = %v, want 88.0", result.Confidence)
	}
	if result.Metadata["ocr_duration"] != "1.2s" {
		t.Errorf("ocr_duration = %v, want 1.2s", result.Metadata["ocr_duration"])
	}
	entities, ok := result.Metadata["entities"].([]string)
	if !ok || len(entities) != 2 {
		t.Errorf("entities = %v, want two entries", result.Metadata["entities"])
	}
}

func TestExtractorErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      string
		retryable bool
	}{
		{"unavailable", inference.ErrUnavailable, stages.KindBackend, true},
		{"rejected", inference.ErrRejected, stages.KindRejected, false},
		{"bad response", inference.ErrBadResponse, stages.KindBadResponse, false},
		{"deadline", context.DeadlineExceeded, stages.KindTimeout, true},
		{"unknown", errors.New("boom"), stages.KindInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubInference{extractErr: tt.err}

			_, err := stages.NewExtractor(client).Execute(context.Background(), sample())

			var failure *stages.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("Execute error = %v, want *Failure", err)
			}
			if failure.Kind != tt.kind {
				t.Errorf("Kind = %s, want %s", failure.Kind, tt.kind)
			}
			if failure.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", failure.Retryable, tt.retryable)
			}
		})
	}
}

func TestClassifierAssignsFreshConfidence(t *testing.T) {
	client := &stubInference{
		classify: &inference.ClassifyResult{Label: "invoice", Confidence: 93.5},
	}

	doc := sample()
	doc.ConfidenceScore = ptr(40.0)

	result, err := stages.NewClassifier(client).Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Classification == nil || *result.Classification != "invoice" {
		t.Errorf("Classification = %v, want invoice", result.Classification)
	}
	// the new score replaces the old one outright
	if result.Confidence == nil || *result.Confidence != 93.5 {
		t.Errorf("Confidence = %v, want 93.5", result.Confidence)
	}
}

func TestClassifierForwardsExtractedEntities(t *testing.T) {
	client := &stubInference{
		classify: &inference.ClassifyResult{Label: "invoice", Confidence: 90},
	}

	doc := sample()
	doc.Metadata = documents.Metadata{"entities": []any{"acme", 42, "invoice"}}

	if _, err := stages.NewClassifier(client).Execute(context.Background(), doc); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	want := []string{"acme", "invoice"}
	got := client.lastClassify.Entities
	if len(got) != len(want) {
		t.Fatalf("Entities = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entities[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestRouterMatchesRulesCaseInsensitively(t *testing.T) {
	router := stages.NewRouter(map[string]string{"Invoice": "finance"}, "review")

	doc := sample()
	doc.Classification = ptr("INVOICE")

	result, err := router.Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Route == nil || *result.Route != "finance" {
		t.Errorf("Route = %v, want finance", result.Route)
	}
	if result.Metadata["routed_by"] != "rule" {
		t.Errorf("routed_by = %v, want rule", result.Metadata["routed_by"])
	}
}

func TestRouterFallsThroughToDefault(t *testing.T) {
	router := stages.NewRouter(map[string]string{"invoice": "finance"}, "review")

	doc := sample()
	doc.Classification = ptr("memo")

	result, err := router.Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Route == nil || *result.Route != "review" {
		t.Errorf("Route = %v, want review", result.Route)
	}
	if result.Metadata["routed_by"] != "default" {
		t.Errorf("routed_by = %v, want default", result.Metadata["routed_by"])
	}
}

func TestRouterRequiresClassification(t *testing.T) {
	router := stages.NewRouter(nil, "review")

	_, err := router.Execute(context.Background(), sample())

	var failure *stages.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute error = %v, want *Failure", err)
	}
	if failure.Kind != stages.KindMissingInput {
		t.Errorf("Kind = %s, want %s", failure.Kind, stages.KindMissingInput)
	}
	if failure.Retryable {
		t.Error("missing classification must not be retryable")
	}
}

func TestRouterRequiresDestination(t *testing.T) {
	router := stages.NewRouter(nil, "")

	doc := sample()
	doc.Classification = ptr("memo")

	_, err := router.Execute(context.Background(), doc)

	var failure *stages.Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Execute error = %v, want *Failure", err)
	}
	if failure.Kind != stages.KindMissingInput {
		t.Errorf("Kind = %s, want %s", failure.Kind, stages.KindMissingInput)
	}
}

func TestAsFailurePassthrough(t *testing.T) {
	original := stages.NewFailure(stages.KindBackend, true, errors.New("down"))

	if got := stages.AsFailure(original); got != original {
		t.Errorf("AsFailure returned %v, want the original failure", got)
	}
}

func TestFailureError(t *testing.T) {
	f := stages.NewFailure(stages.KindBackend, true, errors.New("connection refused"))
	if f.Error() != "backend_unavailable: connection refused" {
		t.Errorf("Error() = %q", f.Error())
	}

	bare := stages.NewFailure(stages.KindTimeout, true, nil)
	if bare.Error() != "timeout" {
		t.Errorf("Error() = %q, want timeout", bare.Error())
	}
}
