package blob

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in memory. Used by tests and local dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object
	puts    int
	BaseURL string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object), BaseURL: "mem://"}
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryStore) Put(_ context.Context, obj Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = obj
	m.puts++
	return nil
}

func (m *MemoryStore) URL(_ context.Context, key string) (string, error) {
	return m.BaseURL + key, nil
}

// Get returns the stored object for key.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Puts returns the number of Put calls so far.
func (m *MemoryStore) Puts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
