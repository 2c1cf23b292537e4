package memory

import (
	"context"
	"sync"
)

// Backend is an in-memory store.Backend, useful for tests and demos.
type Backend struct {
	mu    sync.Mutex
	data  []byte
	ok    bool
	saves int
}

func NewBackend() *Backend {
	return &Backend{}
}

// Seed preloads the backend with a document, as if a prior run had saved it.
func (b *Backend) Seed(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	b.ok = true
}

func (b *Backend) Load(_ context.Context) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ok {
		return nil, false, nil
	}
	return append([]byte(nil), b.data...), true, nil
}

func (b *Backend) Save(_ context.Context, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append([]byte(nil), data...)
	b.ok = true
	b.saves++
	return nil
}

// SaveCount reports how many saves reached the backend; tests use it to assert
// debounce coalescing.
func (b *Backend) SaveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

// Data returns the last saved document.
func (b *Backend) Data() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.data...)
}
