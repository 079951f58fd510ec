package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps objects in process memory. It is meant for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*Object
	err     error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*Object)}
}

// Put stores obj under bucket/key.
func (m *MemoryStore) Put(bucket, key string, obj *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = obj
}

// FailWith makes every subsequent GetObject return err. A nil err restores
// normal behavior.
func (m *MemoryStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryStore) GetObject(ctx context.Context, bucket, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	obj, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("getting %s/%s: %w", bucket, key, ErrNotFound)
	}
	cp := *obj
	return &cp, nil
}
