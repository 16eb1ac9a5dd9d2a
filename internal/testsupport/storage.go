package testsupport

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/conduitworks/conduit/pkg/lifecycle"
	"github.com/conduitworks/conduit/pkg/storage"
)

// MemoryStorage is an in-memory storage.System for service tests.
type MemoryStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// UploadErr and DeleteErr, when set, are returned by the matching
	// operation to exercise failure paths.
	UploadErr error
	DeleteErr error
}

// NewMemoryStorage creates an empty in-memory blob store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

func (m *MemoryStorage) Start(lc *lifecycle.Coordinator) error {
	return nil
}

func (m *MemoryStorage) Upload(_ context.Context, key string, reader io.Reader, _ string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *MemoryStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *MemoryStorage) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[key]
	return ok, nil
}

// Keys returns the stored blob keys.
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	return keys
}
