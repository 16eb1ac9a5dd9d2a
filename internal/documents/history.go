package documents

import "time"

// TransitionType categorizes history records.
type TransitionType string

const (
	// TransitionCreated is the first record of every document.
	TransitionCreated TransitionType = "created"
	// TransitionStage records a successful stage commit.
	TransitionStage TransitionType = "stage"
	// TransitionFailure records a stage failure, terminal or reconciled.
	TransitionFailure TransitionType = "failure"
	// TransitionOverride records a manual reprocess command; this is the
	// only record type after which the stage may move backward.
	TransitionOverride TransitionType = "override"
)

// Transition is a single append-only history record. Stage and Status
// reflect the committed state; ErrorKind is set for failure records and
// TargetStage for override records.
type Transition struct {
	Type            TransitionType `json:"type"`
	Stage           Stage          `json:"stage"`
	Status          Status         `json:"status"`
	TargetStage     Stage          `json:"target_stage,omitempty"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	ErrorKind       string         `json:"error_kind,omitempty"`
	Error           string         `json:"error,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}
