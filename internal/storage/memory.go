package storage

import (
	"context"
	"log"
	"sync"
)

type memoryBackend struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool
}

// NewMemory returns a Store that keeps everything in memory.
func NewMemory(logger *log.Logger) *Store {
	return newStore(&memoryBackend{values: make(map[string][]byte)}, logger)
}

func (m *memoryBackend) get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, ErrClosed
	}
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memoryBackend) set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryBackend) remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.values, key)
	return nil
}

func (m *memoryBackend) close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *memoryBackend) String() string { return "memory" }
