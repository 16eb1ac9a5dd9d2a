// Package documents implements the document domain for Conduit.
// It provides the document lifecycle model, transition history, and the
// durable store contract the pipeline engine writes through.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// SourceType identifies how a document entered the platform.
type SourceType string

const (
	SourceUpload  SourceType = "upload"
	SourceMailbox SourceType = "mailbox"
	SourceAPI     SourceType = "api"
)

// ParseSourceType converts a string into a known SourceType.
func ParseSourceType(value string) (SourceType, bool) {
	switch SourceType(value) {
	case SourceUpload, SourceMailbox, SourceAPI:
		return SourceType(value), true
	}
	return "", false
}

// Metadata is an open mapping of per-stage extraction details
// (ocr duration, detected entities, file size). Keys are append-only:
// a later stage never overwrites a value written by an earlier one.
type Metadata map[string]any

// Document is the durable record moved through the pipeline. ID, OwnerID,
// Name, SourceType, and PayloadKey are immutable after ingestion. All other
// fields are mutated exclusively through Store.CompareAndSwap commits.
type Document struct {
	ID              uuid.UUID    `json:"id"`
	OwnerID         uuid.UUID    `json:"owner_id"`
	Name            string       `json:"name"`
	SourceType      SourceType   `json:"source_type"`
	PayloadKey      string       `json:"payload_key"`
	ContentType     string       `json:"content_type"`
	SizeBytes       int64        `json:"size_bytes"`
	PageCount       *int         `json:"page_count"`
	Stage           Stage        `json:"stage"`
	Status          Status       `json:"status"`
	Classification  *string      `json:"classification"`
	ConfidenceScore *float64     `json:"confidence_score"`
	Route           *string      `json:"route"`
	Metadata        Metadata     `json:"metadata"`
	History         []Transition `json:"history,omitempty"`
	Version         int64        `json:"version"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Clone returns a deep copy safe for mutation outside the store.
func (d *Document) Clone() *Document {
	cp := *d

	if d.PageCount != nil {
		v := *d.PageCount
		cp.PageCount = &v
	}
	if d.Classification != nil {
		v := *d.Classification
		cp.Classification = &v
	}
	if d.ConfidenceScore != nil {
		v := *d.ConfidenceScore
		cp.ConfidenceScore = &v
	}
	if d.Route != nil {
		v := *d.Route
		cp.Route = &v
	}
	if d.Metadata != nil {
		cp.Metadata = make(Metadata, len(d.Metadata))
		for k, v := range d.Metadata {
			cp.Metadata[k] = v
		}
	}
	if d.History != nil {
		cp.History = make([]Transition, len(d.History))
		copy(cp.History, d.History)
	}

	return &cp
}

// MergeMetadata appends new keys without overwriting values recorded
// by earlier stages.
func (d *Document) MergeMetadata(m Metadata) {
	if len(m) == 0 {
		return
	}
	if d.Metadata == nil {
		d.Metadata = make(Metadata, len(m))
	}
	for k, v := range m {
		if _, exists := d.Metadata[k]; !exists {
			d.Metadata[k] = v
		}
	}
}

// AppendHistory adds a transition record. History is append-only; records
// are never rewritten after commit.
func (d *Document) AppendHistory(t Transition) {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	d.History = append(d.History, t)
}

// LastTransition returns the most recent history record, or nil when
// the document has not been committed yet.
func (d *Document) LastTransition() *Transition {
	if len(d.History) == 0 {
		return nil
	}
	return &d.History[len(d.History)-1]
}
