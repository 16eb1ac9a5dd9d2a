package documents_test

import (
	"testing"

	"github.com/conduitworks/conduit/internal/documents"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		input string
		want  documents.Stage
		ok    bool
	}{
		{"ingested", documents.StageIngested, true},
		{"Extracting", documents.StageExtracting, true},
		{"  classified  ", documents.StageClassified, true},
		{"completed", documents.StageCompleted, true},
		{"failed", documents.StageFailed, true},
		{"unknown", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := documents.ParseStage(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseStage(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input string
		want  documents.Stage
		ok    bool
	}{
		{"extract", documents.StageExtracting, true},
		{"classify", documents.StageClassifying, true},
		{"ROUTE", documents.StageRouting, true},
		{"ingest", "", false},
		{"extracting", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := documents.ParseTarget(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseTarget(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestStageDone(t *testing.T) {
	tests := []struct {
		stage documents.Stage
		want  documents.Stage
		ok    bool
	}{
		{documents.StageExtracting, documents.StageExtracted, true},
		{documents.StageClassifying, documents.StageClassified, true},
		{documents.StageRouting, documents.StageCompleted, true},
		{documents.StageIngested, "", false},
		{documents.StageCompleted, "", false},
	}

	for _, tt := range tests {
		got, ok := tt.stage.Done()
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s.Done() = (%q, %v), want (%q, %v)", tt.stage, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStageNextWork(t *testing.T) {
	tests := []struct {
		stage documents.Stage
		want  documents.Stage
		ok    bool
	}{
		{documents.StageIngested, documents.StageExtracting, true},
		{documents.StageExtracted, documents.StageClassifying, true},
		{documents.StageClassified, documents.StageRouting, true},
		{documents.StageCompleted, "", false},
		{documents.StageFailed, "", false},
		{documents.StageExtracting, "", false},
	}

	for _, tt := range tests {
		got, ok := tt.stage.NextWork()
		if ok != tt.ok || got != tt.want {
			t.Errorf("%s.NextWork() = (%q, %v), want (%q, %v)", tt.stage, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStagePrecedes(t *testing.T) {
	if !documents.StageIngested.Precedes(documents.StageExtracting) {
		t.Error("ingested should precede extracting")
	}
	if documents.StageIngested.Precedes(documents.StageClassifying) {
		t.Error("ingested should not precede classifying")
	}
	if documents.StageCompleted.Precedes(documents.StageRouting) {
		t.Error("completed should precede nothing")
	}
}

func TestStageIsWorking(t *testing.T) {
	working := []documents.Stage{
		documents.StageExtracting,
		documents.StageClassifying,
		documents.StageRouting,
	}
	resting := []documents.Stage{
		documents.StageIngested,
		documents.StageExtracted,
		documents.StageClassified,
		documents.StageCompleted,
		documents.StageFailed,
	}

	for _, s := range working {
		if !s.IsWorking() {
			t.Errorf("%s.IsWorking() = false, want true", s)
		}
	}
	for _, s := range resting {
		if s.IsWorking() {
			t.Errorf("%s.IsWorking() = true, want false", s)
		}
	}
}

func TestStageIsTerminal(t *testing.T) {
	if !documents.StageCompleted.IsTerminal() || !documents.StageFailed.IsTerminal() {
		t.Error("completed and failed should be terminal")
	}
	if documents.StageClassified.IsTerminal() {
		t.Error("classified should not be terminal")
	}
}
