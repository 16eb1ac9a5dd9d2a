package testsupport

import (
	"context"
	"sync"

	"github.com/conduitworks/conduit/internal/documents"
	"github.com/conduitworks/conduit/internal/stages"
)

// StubExecutor runs a scripted function for a stage and counts calls.
type StubExecutor struct {
	stage documents.Stage
	fn    func(call int, doc *documents.Document) (*stages.Result, error)

	mu    sync.Mutex
	calls int
}

// NewStubExecutor creates an executor for stage. fn receives the
// 1-based call number; a nil fn succeeds with an empty result.
func NewStubExecutor(
	stage documents.Stage,
	fn func(call int, doc *documents.Document) (*stages.Result, error),
) *StubExecutor {
	return &StubExecutor{stage: stage, fn: fn}
}

func (e *StubExecutor) Stage() documents.Stage {
	return e.stage
}

func (e *StubExecutor) Execute(_ context.Context, doc *documents.Document) (*stages.Result, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	e.mu.Unlock()

	if e.fn == nil {
		return &stages.Result{}, nil
	}
	return e.fn(call, doc)
}

// Calls returns how many times Execute ran.
func (e *StubExecutor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// FakePayloads is an in-memory payload existence check for the ingest
// executor.
type FakePayloads struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewFakePayloads creates a payload set seeded with the given keys.
func NewFakePayloads(keys ...string) *FakePayloads {
	p := &FakePayloads{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		p.keys[k] = struct{}{}
	}
	return p
}

// Put registers a payload key.
func (p *FakePayloads) Put(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys[key] = struct{}{}
}

func (p *FakePayloads) Exists(_ context.Context, key string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.keys[key]
	return ok, nil
}
