package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrNoData is returned by Storage.Load when nothing has been persisted yet.
var ErrNoData = errors.New("no cache data stored")

// Storage persists the serialized cache document under one fixed key.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Load returns the stored document, or ErrNoData if there is none.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored document.
	Save(ctx context.Context, data []byte) error

	// Clear deletes the stored document. Clearing an empty storage is not an error.
	Clear(ctx context.Context) error

	// Location describes where the document lives, for diagnostics.
	Location() string
}

// Initializer is implemented by storages that need preparation before first
// use, such as creating a directory or checking a connection.
type Initializer interface {
	Init(ctx context.Context) error
}

// MemoryStorage keeps the document in process memory.
type MemoryStorage struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStorage returns an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns a copy of the stored document.
func (m *MemoryStorage) Load(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return nil, ErrNoData
	}
	return append([]byte(nil), m.data...), nil
}

// Save stores a copy of data.
func (m *MemoryStorage) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = append([]byte(nil), data...)
	return nil
}

// Clear drops the stored document.
func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = nil
	return nil
}

// Location implements Storage.
func (m *MemoryStorage) Location() string {
	return "memory"
}
