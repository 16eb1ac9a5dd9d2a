package documents

import "strings"

// Stage represents a document's position in the fixed pipeline order
// Ingest → Extract → Classify → Route. Working stages (extracting,
// classifying, routing) indicate an executor owns the document; resting
// stages record the last completed step.
type Stage string

const (
	StageIngested    Stage = "ingested"
	StageExtracting  Stage = "extracting"
	StageExtracted   Stage = "extracted"
	StageClassifying Stage = "classifying"
	StageClassified  Stage = "classified"
	StageRouting     Stage = "routing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// Status is the per-stage outcome attached to the current stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStages = []Stage{
	StageIngested,
	StageExtracting,
	StageExtracted,
	StageClassifying,
	StageClassified,
	StageRouting,
	StageCompleted,
	StageFailed,
}

var stageRank = map[Stage]int{
	StageIngested:    0,
	StageExtracting:  1,
	StageExtracted:   2,
	StageClassifying: 3,
	StageClassified:  4,
	StageRouting:     5,
	StageCompleted:   6,
}

// AllStages returns the ordered list of known stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStages {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// ParseTarget maps an override target name (extract, classify, route) to
// the working stage the document re-enters.
func ParseTarget(value string) (Stage, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "extract":
		return StageExtracting, true
	case "classify":
		return StageClassifying, true
	case "route":
		return StageRouting, true
	}
	return "", false
}

// IsWorking reports whether a stage indicates an execution in flight
// or pending for that stage.
func (s Stage) IsWorking() bool {
	switch s {
	case StageExtracting, StageClassifying, StageRouting:
		return true
	}
	return false
}

// IsTerminal reports whether no further automatic transitions occur.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Rank returns the stage's position in the forward pipeline order.
// Failed has no rank; it is reachable from any in-progress stage.
func (s Stage) Rank() (int, bool) {
	r, ok := stageRank[s]
	return r, ok
}

// Done maps a working stage to the resting stage committed on success.
func (s Stage) Done() (Stage, bool) {
	switch s {
	case StageExtracting:
		return StageExtracted, true
	case StageClassifying:
		return StageClassified, true
	case StageRouting:
		return StageCompleted, true
	}
	return "", false
}

// NextWork maps a resting stage to the working stage scheduled next.
// Completed and failed stages have no next work.
func (s Stage) NextWork() (Stage, bool) {
	switch s {
	case StageIngested:
		return StageExtracting, true
	case StageExtracted:
		return StageClassifying, true
	case StageClassified:
		return StageRouting, true
	}
	return "", false
}

// Precedes reports whether working stage w may start from resting stage s.
func (s Stage) Precedes(w Stage) bool {
	next, ok := s.NextWork()
	return ok && next == w
}
