package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
)

// MemoryStore is a non-durable Store. Values are JSON encoded on write,
// so callers never share memory with stored values.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrapf(err, "failed to decode key %q", key)
	}
	return true, nil
}

// Set implements Store.
func (m *MemoryStore) Set(ctx context.Context, key string, value any) error {
	if value == nil {
		return m.Delete(ctx, key)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "failed to encode key %q", key)
	}
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
