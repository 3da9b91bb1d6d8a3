// Package storage keeps media and document bytes in object storage and
// renders image thumbnails.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mediavault/internal/common"
	"github.com/google/uuid"
)

// Store is a flat key/value blob store.
type Store interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	// Get returns common.ErrorNotFound for unknown keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// NewObjectKey returns a fresh key of the form prefix/Y/M/D/uuid.
func NewObjectKey(prefix string, now time.Time) string {
	return fmt.Sprintf("%s/%d/%d/%d/%v", prefix, now.Year(), now.Month(), now.Day(), uuid.New())
}

// MemoryStore is an in-process Store for development without S3 and for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, key, _ string, body []byte) error {
	b := make([]byte, len(body))
	copy(b, body)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Len reports how many objects are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
