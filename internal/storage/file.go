package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// fileBackend keeps each key in <dir>/<key>.json.
type fileBackend struct {
	mu  sync.Mutex
	dir string
}

// OpenFile returns a Store backed by JSON files in dir, creating dir if
// needed.
func OpenFile(dir string, logger *log.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return newStore(&fileBackend{dir: dir}, logger), nil
}

func (f *fileBackend) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *fileBackend) get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	// #nosec G304 - key is one of the package constants
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (f *fileBackend) set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return WriteAtomic(f.path(key), value)
}

// WriteAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new content.
func WriteAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (f *fileBackend) remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *fileBackend) close() error { return nil }

func (f *fileBackend) String() string {
	return "file:" + f.dir
}
