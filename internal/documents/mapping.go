package documents

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/conduitworks/conduit/pkg/query"
	"github.com/conduitworks/conduit/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("owner_id", "OwnerID").
	Project("name", "Name").
	Project("source_type", "SourceType").
	Project("payload_key", "PayloadKey").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("stage", "Stage").
	Project("status", "Status").
	Project("classification", "Classification").
	Project("confidence_score", "ConfidenceScore").
	Project("route", "Route").
	Project("metadata", "Metadata").
	Project("version", "Version").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Stage, Status, SourceType, Classification, and
// Route use exact matching; Name uses case-insensitive contains matching.
type Filters struct {
	Stage          *string `json:"stage,omitempty"`
	Status         *string `json:"status,omitempty"`
	SourceType     *string `json:"source_type,omitempty"`
	Name           *string `json:"name,omitempty"`
	Classification *string `json:"classification,omitempty"`
	Route          *string `json:"route,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Stage", f.Stage).
		WhereEquals("Status", f.Status).
		WhereEquals("SourceType", f.SourceType).
		WhereContains("Name", f.Name).
		WhereEquals("Classification", f.Classification).
		WhereEquals("Route", f.Route)
}

// Match reports whether a document satisfies the filters. Mirrors the
// SQL conditions Apply produces.
func (f Filters) Match(d *Document) bool {
	if f.Stage != nil && string(d.Stage) != *f.Stage {
		return false
	}
	if f.Status != nil && string(d.Status) != *f.Status {
		return false
	}
	if f.SourceType != nil && string(d.SourceType) != *f.SourceType {
		return false
	}
	if f.Name != nil && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(*f.Name)) {
		return false
	}
	if f.Classification != nil && (d.Classification == nil || *d.Classification != *f.Classification) {
		return false
	}
	if f.Route != nil && (d.Route == nil || *d.Route != *f.Route) {
		return false
	}
	return true
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("stage"); s != "" {
		f.Stage = &s
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if s := values.Get("source_type"); s != "" {
		f.SourceType = &s
	}

	if s := values.Get("name"); s != "" {
		f.Name = &s
	}

	if s := values.Get("classification"); s != "" {
		f.Classification = &s
	}

	if s := values.Get("route"); s != "" {
		f.Route = &s
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var (
		d        Document
		metadata []byte
	)

	err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Name,
		&d.SourceType,
		&d.PayloadKey,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.Stage,
		&d.Status,
		&d.Classification,
		&d.ConfidenceScore,
		&d.Route,
		&metadata,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		return d, err
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &d.Metadata); err != nil {
			return d, err
		}
	}

	return d, nil
}

func scanTransition(s repository.Scanner) (Transition, error) {
	var (
		t           Transition
		targetStage *string
		errorKind   *string
		errorText   *string
	)

	err := s.Scan(
		&t.Type,
		&t.Stage,
		&t.Status,
		&targetStage,
		&t.ConfidenceScore,
		&errorKind,
		&errorText,
		&t.Timestamp,
	)
	if err != nil {
		return t, err
	}

	if targetStage != nil {
		t.TargetStage = Stage(*targetStage)
	}
	if errorKind != nil {
		t.ErrorKind = *errorKind
	}
	if errorText != nil {
		t.Error = *errorText
	}

	return t, nil
}
