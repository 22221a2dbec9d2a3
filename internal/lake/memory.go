package lake

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process ObjectStore used by tests and dry runs.
type MemoryStore struct {
	Bucket string

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{Bucket: bucket, objects: map[string][]byte{}}
}

func (m *MemoryStore) URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", m.Bucket, key)
}

func (m *MemoryStore) Put(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), body...)
	return m.URI(key), nil
}

func (m *MemoryStore) Get(_ context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	if bucket != m.Bucket {
		return nil, fmt.Errorf("lake: unknown bucket %q", bucket)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("lake: get %s: no such key", uri)
	}
	return data, nil
}

func (m *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}
