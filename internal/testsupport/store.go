// Package testsupport provides in-memory implementations of the storage
// and executor contracts for exercising the pipeline without Postgres or
// an inference backend.
package testsupport

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/pkg/pagination"
)

// MemoryStore is an in-memory documents.Store with the same optimistic
// concurrency semantics as the Postgres implementation.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*documents.Document
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[uuid.UUID]*documents.Document),
	}
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, doc *documents.Document) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return nil, documents.ErrDuplicate
	}

	now := time.Now().UTC()
	cp := doc.Clone()
	cp.Version = 1
	cp.CreatedAt = now
	cp.UpdatedAt = now

	s.docs[cp.ID] = cp
	return cp.Clone(), nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, doc *documents.Document) (*documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[doc.ID]
	if !ok {
		return nil, documents.ErrNotFound
	}
	if current.Version != doc.Version {
		return nil, documents.ErrVersionConflict
	}

	cp := doc.Clone()
	cp.Version = current.Version + 1
	cp.CreatedAt = current.CreatedAt
	cp.UpdatedAt = time.Now().UTC()

	s.docs[cp.ID] = cp
	return cp.Clone(), nil
}

func (s *MemoryStore) ListByOwner(
	_ context.Context,
	ownerID uuid.UUID,
	page pagination.PageRequest,
	filters documents.Filters,
) (*pagination.PageResult[documents.Document], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]documents.Document, 0)
	for _, doc := range s.docs {
		if doc.OwnerID != ownerID {
			continue
		}
		if !filters.Match(doc) {
			continue
		}
		matched = append(matched, *doc.Clone())
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := (page.Page - 1) * page.PageSize
	if start > total {
		start = total
	}
	end := min(start+page.PageSize, total)

	result := pagination.NewPageResult(matched[start:end], total, page.Page, page.PageSize)
	return &result, nil
}

func (s *MemoryStore) ListStale(_ context.Context, cutoff time.Time) ([]documents.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := make([]documents.Document, 0)
	for _, doc := range s.docs {
		if !doc.Stage.IsWorking() {
			continue
		}
		if doc.Status != documents.StatusPending && doc.Status != documents.StatusInProgress {
			continue
		}
		if !doc.UpdatedAt.Before(cutoff) {
			continue
		}
		stale = append(stale, *doc.Clone())
	}

	return stale, nil
}

// Age rewinds a stored document's UpdatedAt so watchdog tests can mark
// it stale without waiting.
func (s *MemoryStore) Age(id uuid.UUID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[id]; ok {
		doc.UpdatedAt = doc.UpdatedAt.Add(-d)
	}
}
