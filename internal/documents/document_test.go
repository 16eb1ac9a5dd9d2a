package documents_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/documents"
)

func ptr[T any](v T) *T { return &v }

func TestCloneIsDeep(t *testing.T) {
	doc := &documents.Document{
		ID:              uuid.New(),
		Classification:  ptr("invoice"),
		ConfidenceScore: ptr(91.5),
		Route:           ptr("finance"),
		PageCount:       ptr(3),
		Metadata:        documents.Metadata{"source": "upload"},
		History: []documents.Transition{
			{Type: documents.TransitionCreated, Stage: documents.StageIngested},
		},
	}

	cp := doc.Clone()
	*cp.Classification = "receipt"
	*cp.ConfidenceScore = 10
	cp.Metadata["source"] = "api"
	cp.History[0].Stage = documents.StageCompleted

	if *doc.Classification != "invoice" {
		t.Errorf("Classification mutated through clone: %s", *doc.Classification)
	}
	if *doc.ConfidenceScore != 91.5 {
		t.Errorf("ConfidenceScore mutated through clone: %v", *doc.ConfidenceScore)
	}
	if doc.Metadata["source"] != "upload" {
		t.Errorf("Metadata mutated through clone: %v", doc.Metadata["source"])
	}
	if doc.History[0].Stage != documents.StageIngested {
		t.Errorf("History mutated through clone: %s", doc.History[0].Stage)
	}
}

func TestMergeMetadataIsAppendOnly(t *testing.T) {
	doc := &documents.Document{
		Metadata: documents.Metadata{"file_size": int64(100)},
	}

	doc.MergeMetadata(documents.Metadata{
		"file_size": int64(999),
		"entities":  []string{"acme"},
	})

	if doc.Metadata["file_size"] != int64(100) {
		t.Errorf("existing key overwritten: %v", doc.Metadata["file_size"])
	}
	if _, ok := doc.Metadata["entities"]; !ok {
		t.Error("new key not merged")
	}
}

func TestMergeMetadataNilReceiver(t *testing.T) {
	doc := &documents.Document{}
	doc.MergeMetadata(documents.Metadata{"k": "v"})

	if doc.Metadata["k"] != "v" {
		t.Errorf("Metadata = %v, want k=v", doc.Metadata)
	}
}

func TestAppendHistoryStampsTimestamp(t *testing.T) {
	doc := &documents.Document{}
	doc.AppendHistory(documents.Transition{Type: documents.TransitionCreated})

	last := doc.LastTransition()
	if last == nil {
		t.Fatal("expected a transition")
	}
	if last.Timestamp.IsZero() {
		t.Error("timestamp not stamped")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", documents.ErrNotFound, http.StatusNotFound},
		{"duplicate", documents.ErrDuplicate, http.StatusConflict},
		{"busy", documents.ErrBusy, http.StatusConflict},
		{"version conflict", documents.ErrVersionConflict, http.StatusConflict},
		{"file too large", documents.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{"invalid request", documents.ErrInvalidRequest, http.StatusBadRequest},
		{"forbidden", documents.ErrForbidden, http.StatusForbidden},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped busy", fmt.Errorf("advance: %w", documents.ErrBusy), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := documents.MapHTTPStatus(tt.err)
			if got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFiltersFromQuery(t *testing.T) {
	values := url.Values{
		"stage":          {"classified"},
		"status":         {"completed"},
		"source_type":    {"upload"},
		"name":           {"invoice"},
		"classification": {"receipt"},
		"route":          {"finance"},
	}

	f := documents.FiltersFromQuery(values)

	if f.Stage == nil || *f.Stage != "classified" {
		t.Errorf("Stage = %v, want classified", f.Stage)
	}
	if f.Status == nil || *f.Status != "completed" {
		t.Errorf("Status = %v, want completed", f.Status)
	}
	if f.SourceType == nil || *f.SourceType != "upload" {
		t.Errorf("SourceType = %v, want upload", f.SourceType)
	}
	if f.Name == nil || *f.Name != "invoice" {
		t.Errorf("Name = %v, want invoice", f.Name)
	}
	if f.Classification == nil || *f.Classification != "receipt" {
		t.Errorf("Classification = %v, want receipt", f.Classification)
	}
	if f.Route == nil || *f.Route != "finance" {
		t.Errorf("Route = %v, want finance", f.Route)
	}

	empty := documents.FiltersFromQuery(url.Values{})
	if empty.Stage != nil || empty.Name != nil {
		t.Error("empty query should produce nil filters")
	}
}

func TestFiltersMatch(t *testing.T) {
	doc := &documents.Document{
		Stage:          documents.StageClassified,
		Status:         documents.StatusCompleted,
		SourceType:     documents.SourceUpload,
		Name:           "Q3-Invoice.pdf",
		Classification: ptr("invoice"),
		Route:          ptr("finance"),
	}

	tests := []struct {
		name    string
		filters documents.Filters
		want    bool
	}{
		{"empty matches", documents.Filters{}, true},
		{"stage match", documents.Filters{Stage: ptr("classified")}, true},
		{"stage mismatch", documents.Filters{Stage: ptr("completed")}, false},
		{"name contains case-insensitive", documents.Filters{Name: ptr("invoice")}, true},
		{"name no match", documents.Filters{Name: ptr("report")}, false},
		{"classification match", documents.Filters{Classification: ptr("invoice")}, true},
		{"route mismatch", documents.Filters{Route: ptr("legal")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filters.Match(doc); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFiltersMatchNilFields(t *testing.T) {
	doc := &documents.Document{Name: "doc"}

	if !(documents.Filters{}).Match(doc) {
		t.Error("empty filters should match")
	}
	if (documents.Filters{Classification: ptr("invoice")}).Match(doc) {
		t.Error("nil classification should not match a classification filter")
	}
}
