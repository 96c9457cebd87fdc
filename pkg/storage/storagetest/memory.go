// Package storagetest provides an in-memory storage.System for tests.
package storagetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/JaimeStill/tribunal/pkg/lifecycle"
	"github.com/JaimeStill/tribunal/pkg/storage"
)

// Blob is a stored object.
type Blob struct {
	Data        []byte
	ContentType string
}

// Memory is a concurrency-safe in-memory blob store. FailKeys forces Put to
// fail for the listed keys.
type Memory struct {
	mu       sync.Mutex
	blobs    map[string]Blob
	FailKeys map[string]error
	MaxBytes int64
}

// New creates an empty Memory store.
func New() *Memory {
	return &Memory{
		blobs:    make(map[string]Blob),
		FailKeys: make(map[string]error),
	}
}

func (m *Memory) Start(lc *lifecycle.Coordinator) error { return nil }

func (m *Memory) MaxDocumentBytes() int64 { return m.MaxBytes }

func (m *Memory) Put(ctx context.Context, key string, data []byte, contentType string) (int64, error) {
	if key == "" {
		return 0, storage.ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailKeys[key]; ok {
		return 0, err
	}
	if m.MaxBytes > 0 && int64(len(data)) > m.MaxBytes {
		return 0, fmt.Errorf("%w: %s", storage.ErrTooLarge, key)
	}
	m.blobs[key] = Blob{Data: bytes.Clone(data), ContentType: contentType}
	return int64(len(data)), nil
}

func (m *Memory) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b.Data)), nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.blobs[key]
	return ok, nil
}

// Blob returns the stored blob at key.
func (m *Memory) Blob(key string) (Blob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.blobs[key]
	return b, ok
}

// Len returns the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
