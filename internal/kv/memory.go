package kv

import (
	"context"
	"sync"
)

// MemoryStore keeps a namespace in process memory. It backs STORE_DRIVER=memory
// and the service tests.
type MemoryStore struct {
	mu        sync.RWMutex
	namespace string
	keys      []string
	values    map[string][]byte
}

// NewMemoryStore creates an empty in-memory namespace
func NewMemoryStore(namespace string) *MemoryStore {
	return &MemoryStore{
		namespace: namespace,
		values:    make(map[string][]byte),
	}
}

// NewMemoryOpener returns an Opener that hands out one MemoryStore per namespace
func NewMemoryOpener() Opener {
	var mu sync.Mutex
	stores := make(map[string]*MemoryStore)
	return func(namespace string) Store {
		mu.Lock()
		defer mu.Unlock()
		s, ok := stores[namespace]
		if !ok {
			s = NewMemoryStore(namespace)
			stores[namespace] = s
		}
		return s
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, notFound(m.namespace, key)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; !ok {
		return nil
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return nil
}

// Iterate walks a snapshot so fn may modify the store.
func (m *MemoryStore) Iterate(ctx context.Context, fn func(key string, value []byte) error) error {
	m.mu.RLock()
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		values[k] = m.values[k]
	}
	m.mu.RUnlock()

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(k, values[k]); err != nil {
			return iterateDone(err)
		}
	}
	return nil
}
