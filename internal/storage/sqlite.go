package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// sqliteBackend stores keys in a single table of an embedded SQLite file.
type sqliteBackend struct {
	conn   *sql.DB
	path   string
	logger *log.Logger
}

// OpenSQLite returns a Store backed by the SQLite database at path. The
// database and its schema are created if they do not exist. The caller must
// Close the store.
func OpenSQLite(path string, logger *log.Logger) (*Store, error) {
	b, err := openSQLite(path, logger)
	if err != nil {
		return nil, err
	}
	return newStore(b, logger), nil
}

func openSQLite(path string, logger *log.Logger) (*sqliteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	b := &sqliteBackend{conn: conn, path: path, logger: logger}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = b.close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = b.close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := b.initSchema(context.Background()); err != nil {
		_ = b.close()
		return nil, err
	}

	return b, nil
}

func (b *sqliteBackend) initSchema(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`
	if _, err := b.conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

const upsertQuery = `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, e execer, key string, value []byte) error {
	_, err := e.ExecContext(ctx, upsertQuery, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

func (b *sqliteBackend) get(ctx context.Context, key string) ([]byte, bool, error) {
	if b.conn == nil {
		return nil, false, ErrClosed
	}
	var value []byte
	err := b.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *sqliteBackend) set(ctx context.Context, key string, value []byte) error {
	if b.conn == nil {
		return ErrClosed
	}
	return upsert(ctx, b.conn, key, value)
}

// swap copies the current value of key into backupKey and stores value in one
// transaction.
func (b *sqliteBackend) swap(ctx context.Context, key, backupKey string, value []byte) error {
	if b.conn == nil {
		return ErrClosed
	}

	tx, err := b.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const copyQuery = `
	INSERT INTO kv (key, value, updated_at)
	SELECT ?, value, updated_at FROM kv WHERE key = ?
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, copyQuery, backupKey, key); err != nil {
		return fmt.Errorf("failed to back up %s: %w", key, err)
	}
	if err := upsert(ctx, tx, key, value); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (b *sqliteBackend) remove(ctx context.Context, key string) error {
	if b.conn == nil {
		return ErrClosed
	}
	if _, err := b.conn.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// close checkpoints the WAL and closes the connection.
func (b *sqliteBackend) close() error {
	if b.conn == nil {
		return nil
	}

	if _, err := b.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil && b.logger != nil {
		b.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}

	if err := b.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	b.conn = nil
	return nil
}

func (b *sqliteBackend) String() string {
	return "sqlite:" + b.path
}
