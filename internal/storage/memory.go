package storage

import (
	"context"
	"strings"
	"sync"
)

const memoryScheme = "mem://"

// MemoryStore keeps blobs in process. Used for local runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (m *MemoryStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.blobs[key] = cp
	m.mu.Unlock()
	return memoryScheme + key, nil
}

func (m *MemoryStore) Get(_ context.Context, url string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[strings.TrimPrefix(url, memoryScheme)]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *MemoryStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	delete(m.blobs, strings.TrimPrefix(url, memoryScheme))
	m.mu.Unlock()
	return nil
}

// Len reports the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
