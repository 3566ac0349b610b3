package storage

import (
	"context"
	"sync"
)

// MemoryBlob keeps the document in process memory.
// Safe for concurrent use.
type MemoryBlob struct {
	mu      sync.Mutex
	data    []byte
	exists  bool
	saveErr error
	saves   int
}

// NewMemoryBlob returns an empty MemoryBlob
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{}
}

// NewMemoryBlobWith returns a MemoryBlob already holding data
func NewMemoryBlobWith(data []byte) *MemoryBlob {
	m := &MemoryBlob{}
	m.set(data)
	return m
}

func (m *MemoryBlob) set(data []byte) {
	m.data = append([]byte(nil), data...)
	m.exists = true
}

// Load returns a copy of the stored bytes or ErrNotExist
func (m *MemoryBlob) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return nil, ErrNotExist
	}
	return append([]byte(nil), m.data...), nil
}

// Save stores a copy of data, or fails with the error set by FailSaves
func (m *MemoryBlob) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	m.set(data)
	m.saves++
	return nil
}

// FailSaves makes every later Save return err. Pass nil to recover.
func (m *MemoryBlob) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

// Saves returns how many times Save succeeded
func (m *MemoryBlob) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Bytes returns a copy of the stored document, nil if nothing was saved
func (m *MemoryBlob) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return nil
	}
	return append([]byte(nil), m.data...)
}
