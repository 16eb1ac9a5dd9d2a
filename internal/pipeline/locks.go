package pipeline

import (
	"sync"

	"github.com/google/uuid"
)

// lockTable enforces at most one in-flight stage execution per document.
// Acquisition never blocks; a held lock means the caller backs off with
// ErrBusy and decides whether to retry.
type lockTable struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

func newLockTable() *lockTable {
	return &lockTable{
		held: make(map[uuid.UUID]struct{}),
	}
}

func (t *lockTable) tryAcquire(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, taken := t.held[id]; taken {
		return false
	}
	t.held[id] = struct{}{}
	return true
}

func (t *lockTable) release(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, id)
}

func (t *lockTable) isHeld(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, taken := t.held[id]
	return taken
}
