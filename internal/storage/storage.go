package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/studyreward/rewardbook/internal/schema"
)

// Storage keys.
const (
	DocumentKey = "study_reward_app_data"
	BackupKey   = "study_reward_app_data_backup"

	LegacyUserDataKey   = "study_reward_user_data"
	LegacyTasksKey      = "study_reward_tasks"
	LegacyExecutionsKey = "study_reward_task_executions"
	LegacyProductsKey   = "study_reward_products"
)

// LegacyKeys lists the keys written by releases before the document layout.
var LegacyKeys = []string{
	LegacyUserDataKey,
	LegacyTasksKey,
	LegacyExecutionsKey,
	LegacyProductsKey,
}

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage is closed")

// Adapter reads and writes the whole document.
type Adapter interface {
	// Read returns the stored document, or nil if there is none or it cannot
	// be decoded.
	Read(ctx context.Context) (*schema.Document, error)
	// Write copies the current value to the backup slot and then stores doc.
	Write(ctx context.Context, doc *schema.Document) error
	Exists(ctx context.Context) (bool, error)
	// Restore writes the backup back as the current document and returns it,
	// or nil if there is no usable backup.
	Restore(ctx context.Context) (*schema.Document, error)
	Close() error
}

// LegacySource gives access to data stored in the pre-document layout.
type LegacySource interface {
	HasLegacy(ctx context.Context) (bool, error)
	// ReadLegacy returns the raw value of every legacy key that is present.
	ReadLegacy(ctx context.Context) (map[string][]byte, error)
	// CleanupLegacy deletes the legacy keys. It refuses to do so while no
	// document has been written.
	CleanupLegacy(ctx context.Context) error
}

// backend is a minimal key/value store.
type backend interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, value []byte) error
	remove(ctx context.Context, key string) error
	close() error
	String() string
}

// swapper is implemented by backends that can write the backup and the new
// value atomically.
type swapper interface {
	swap(ctx context.Context, key, backupKey string, value []byte) error
}

// Store implements Adapter and LegacySource on top of a backend.
type Store struct {
	b      backend
	logger *log.Logger
}

func newStore(b backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{b: b, logger: logger}
}

// String describes the backend and its location.
func (s *Store) String() string {
	return s.b.String()
}

// Read implements Adapter.
func (s *Store) Read(ctx context.Context) (*schema.Document, error) {
	return s.decodeKey(ctx, DocumentKey)
}

func (s *Store) decodeKey(ctx context.Context, key string) (*schema.Document, error) {
	data, ok, err := s.b.get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}

	doc, err := schema.Decode(data)
	if err != nil {
		s.logger.Printf("Warning: ignoring unreadable %s: %v", key, err)
		return nil, nil
	}
	return doc, nil
}

// Write implements Adapter. A failure to take the backup is logged and does
// not stop the write.
func (s *Store) Write(ctx context.Context, doc *schema.Document) error {
	data, err := schema.Encode(doc)
	if err != nil {
		return err
	}

	if sw, ok := s.b.(swapper); ok {
		if err := sw.swap(ctx, DocumentKey, BackupKey, data); err != nil {
			return fmt.Errorf("failed to write document: %w", err)
		}
		return nil
	}

	s.backup(ctx)
	if err := s.b.set(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func (s *Store) backup(ctx context.Context) {
	current, ok, err := s.b.get(ctx, DocumentKey)
	if err != nil {
		s.logger.Printf("Warning: failed to back up document: %v", err)
		return
	}
	if !ok {
		return
	}
	if err := s.b.set(ctx, BackupKey, current); err != nil {
		s.logger.Printf("Warning: failed to back up document: %v", err)
	}
}

// Exists implements Adapter.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, ok, err := s.b.get(ctx, DocumentKey)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", DocumentKey, err)
	}
	return ok, nil
}

// Restore implements Adapter. The document being replaced becomes the new
// backup, so calling Restore twice returns to where it started.
func (s *Store) Restore(ctx context.Context) (*schema.Document, error) {
	doc, err := s.decodeKey(ctx, BackupKey)
	if err != nil || doc == nil {
		return nil, err
	}
	if err := s.Write(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to restore backup: %w", err)
	}
	return doc, nil
}

// Close implements Adapter.
func (s *Store) Close() error {
	return s.b.close()
}

// HasLegacy implements LegacySource.
func (s *Store) HasLegacy(ctx context.Context) (bool, error) {
	for _, key := range LegacyKeys {
		_, ok, err := s.b.get(ctx, key)
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ReadLegacy implements LegacySource.
func (s *Store) ReadLegacy(ctx context.Context) (map[string][]byte, error) {
	out := make(map[string][]byte)
	for _, key := range LegacyKeys {
		data, ok, err := s.b.get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if ok {
			out[key] = data
		}
	}
	return out, nil
}

// CleanupLegacy implements LegacySource.
func (s *Store) CleanupLegacy(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		s.logger.Printf("Warning: keeping legacy data, no document has been written yet")
		return nil
	}

	for _, key := range LegacyKeys {
		if err := s.b.remove(ctx, key); err != nil {
			return fmt.Errorf("failed to remove %s: %w", key, err)
		}
	}
	return nil
}

// PutRaw stores a value under key as-is. It exists for seeding legacy data
// and for tools that repair a damaged store by hand.
func (s *Store) PutRaw(ctx context.Context, key string, value []byte) error {
	if err := s.b.set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// GetRaw returns the raw value stored under key.
func (s *Store) GetRaw(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := s.b.get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, ok, nil
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// SQLiteFileName is the database file created inside the data directory.
const SQLiteFileName = "rewardbook.db"

// Open returns a Store for the named backend rooted at dir.
func Open(kind, dir string, logger *log.Logger) (*Store, error) {
	switch kind {
	case BackendFile, "":
		return OpenFile(dir, logger)
	case BackendSQLite:
		return OpenSQLite(filepath.Join(dir, SQLiteFileName), logger)
	case BackendMemory:
		return NewMemory(logger), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (valid: file, sqlite, memory)", kind)
	}
}
