package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/studyreward/rewardbook/internal/catalog"
	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/merge"
	"github.com/studyreward/rewardbook/internal/migrate"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/storage"
	"github.com/studyreward/rewardbook/internal/telemetry"
)

// ErrNoBackup is returned by Restore when there is no backup to restore.
var ErrNoBackup = errors.New("no backup available")

// Options configures a Manager.
type Options struct {
	Logger *log.Logger
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Manager owns the persisted document.
type Manager struct {
	mu      sync.Mutex
	adapter storage.Adapter
	merger  *merge.Engine
	logger  *log.Logger
	now     func() time.Time
}

// New creates a Manager on top of adapter. If adapter also implements
// storage.LegacySource, data in the legacy layout is converted on first load.
func New(adapter storage.Adapter, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		adapter: adapter,
		merger:  merge.New(logger),
		logger:  logger,
		now:     now,
	}
}

// Now returns the Manager's current time.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Load returns the current document, creating, converting or repairing it as
// needed.
func (m *Manager) Load(ctx context.Context) (*schema.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

// Update loads the document, applies fn and saves the result. If fn returns
// an error nothing is written and the error is returned unchanged.
func (m *Manager) Update(ctx context.Context, fn func(doc *schema.Document) error) (*schema.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := m.save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save stamps the version block, validates and writes doc.
func (m *Manager) Save(ctx context.Context, doc *schema.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.save(ctx, doc)
}

// Restore replaces the document with the backup taken before the last write
// and returns the restored document.
func (m *Manager) Restore(ctx context.Context) (*schema.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.adapter.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore backup: %w", err)
	}
	if doc == nil {
		return nil, ErrNoBackup
	}
	m.logger.Printf("restored backup (schema %d)", schemaVersion(doc))
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (*schema.Document, error) {
	doc, err := m.adapter.Read(ctx)
	if err != nil {
		return nil, err
	}

	if doc == nil {
		doc, err = m.fromLegacy(ctx)
		if err != nil {
			return nil, err
		}
	}

	if doc == nil {
		doc = DefaultDocument(m.now())
		if err := m.save(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to persist default document: %w", err)
		}
		return doc, nil
	}

	if migrate.Needed(doc) {
		migrated, res, err := migrate.Migrate(doc, m.now())
		if err != nil {
			return nil, err
		}
		doc = migrated
		if len(res.Applied) > 0 {
			m.logger.Printf("migrated document from schema %d to %d", res.From, res.To)
			telemetry.Migrations.WithLabelValues("stored").Inc()
		}
		if err := m.save(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to persist migrated document: %w", err)
		}
	}

	fixed := ledger.FixInventory(doc.UserData.Inventory)
	reconciled := catalog.Reconcile(doc)
	if fixed || reconciled {
		if err := m.save(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to persist repaired document: %w", err)
		}
	}

	return doc, nil
}

// fromLegacy converts and persists data in the legacy layout. It returns nil
// if there is none or it cannot be converted.
func (m *Manager) fromLegacy(ctx context.Context) (*schema.Document, error) {
	src, ok := m.adapter.(storage.LegacySource)
	if !ok {
		return nil, nil
	}

	has, err := src.HasLegacy(ctx)
	if err != nil || !has {
		return nil, err
	}

	raw, err := src.ReadLegacy(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := migrate.FromLegacy(migrate.LegacyData{
		UserData:   raw[storage.LegacyUserDataKey],
		Tasks:      raw[storage.LegacyTasksKey],
		Executions: raw[storage.LegacyExecutionsKey],
		Products:   raw[storage.LegacyProductsKey],
	}, m.now())
	if err != nil {
		m.logger.Printf("Warning: legacy data migration failed: %v", err)
		return nil, nil
	}
	if doc == nil {
		return nil, nil
	}

	if err := m.save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to persist migrated legacy data: %w", err)
	}
	telemetry.Migrations.WithLabelValues("legacy").Inc()
	m.logger.Printf("migrated legacy data")

	if err := src.CleanupLegacy(ctx); err != nil {
		m.logger.Printf("Warning: failed to clean up legacy data: %v", err)
	}
	return doc, nil
}

func (m *Manager) save(ctx context.Context, doc *schema.Document) error {
	now := schema.NowMillis(m.now())

	created := now
	if doc.Version != nil && doc.Version.CreatedAt > 0 {
		created = doc.Version.CreatedAt
	}
	updated := now
	if updated < created {
		updated = created
	}
	doc.Version = &schema.Version{
		Version:       schema.AppVersion,
		SchemaVersion: schema.CurrentSchemaVersion,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}

	doc.SetDefaults()
	if n := doc.DropBlankTemplates(); n > 0 {
		m.logger.Printf("dropped %d task template(s) with a blank name or description", n)
	}

	if err := doc.Validate(); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	if err := m.adapter.Write(ctx, doc); err != nil {
		return err
	}
	telemetry.DocumentWrites.Inc()
	return nil
}

// DefaultDocument returns the document created on first use: the built-in
// catalog and an empty ledger.
func DefaultDocument(now time.Time) *schema.Document {
	ms := schema.NowMillis(now)
	return &schema.Document{
		Version: &schema.Version{
			Version:       schema.AppVersion,
			SchemaVersion: schema.CurrentSchemaVersion,
			CreatedAt:     ms,
			UpdatedAt:     ms,
		},
		UserData: &schema.UserData{
			PointRecords: []schema.PointRecord{},
			Inventory:    []schema.InventoryItem{},
			CustomStyle:  schema.CustomStyle{},
		},
		TaskTemplates:  catalog.Templates(),
		Products:       catalog.Products(),
		TaskExecutions: []schema.TaskExecution{},
	}
}

func schemaVersion(doc *schema.Document) int {
	if doc.Version == nil {
		return 0
	}
	return doc.Version.SchemaVersion
}
