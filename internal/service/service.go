package service

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/store"
)

// Event types published through a Notifier.
const (
	EventPointsChanged   = "points_changed"
	EventRecordAdded     = "record_added"
	EventExecutionUpdate = "execution_update"
	EventCatalogChanged  = "catalog_changed"
	EventImportComplete  = "import_complete"
)

// Notifier receives change events. Implementations must not block.
type Notifier interface {
	Publish(eventType string, data any)
}

// Options configures a Service.
type Options struct {
	Logger   *log.Logger
	Notifier Notifier
}

// Service exposes the business operations.
type Service struct {
	store    *store.Manager
	logger   *log.Logger
	notifier Notifier
	newID    func() string
}

// New creates a Service backed by m.
func New(m *store.Manager, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		store:    m,
		logger:   logger,
		notifier: opts.Notifier,
		newID:    uuid.NewString,
	}
}

func (s *Service) now() time.Time {
	return s.store.Now()
}

func (s *Service) publish(eventType string, data any) {
	if s.notifier != nil {
		s.notifier.Publish(eventType, data)
	}
}

// UserData returns the balance, ledger, inventory and style.
func (s *Service) UserData(ctx context.Context) (*schema.UserData, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.UserData, nil
}

// Points returns the current balance.
func (s *Service) Points(ctx context.Context) (float64, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	return doc.UserData.Points, nil
}

// Inventory returns the current holdings.
func (s *Service) Inventory(ctx context.Context) ([]schema.InventoryItem, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.UserData.Inventory, nil
}

// CustomStyle returns the stored style map, never nil.
func (s *Service) CustomStyle(ctx context.Context) (schema.CustomStyle, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if doc.UserData.CustomStyle == nil {
		return schema.CustomStyle{}, nil
	}
	return doc.UserData.CustomStyle, nil
}

// UpdateCustomStyle merges patch into the stored style and returns the
// result.
func (s *Service) UpdateCustomStyle(ctx context.Context, patch schema.CustomStyle) (schema.CustomStyle, error) {
	doc, err := s.store.Update(ctx, func(doc *schema.Document) error {
		if doc.UserData.CustomStyle == nil {
			doc.UserData.CustomStyle = schema.CustomStyle{}
		}
		for k, v := range patch {
			doc.UserData.CustomStyle[k] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc.UserData.CustomStyle, nil
}

// Export returns the export envelope of the current document.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	return s.store.Export(ctx)
}

// Import merges an export envelope into the local document.
func (s *Service) Import(ctx context.Context, data []byte) store.ImportResult {
	res := s.store.Import(ctx, data)
	if res.Success {
		s.publish(EventImportComplete, res)
		if points, err := s.Points(ctx); err == nil {
			s.publish(EventPointsChanged, map[string]float64{"points": points})
		}
	}
	return res
}

// Restore swaps the backup slot back in.
func (s *Service) Restore(ctx context.Context) (*schema.Document, error) {
	doc, err := s.store.Restore(ctx)
	if errors.Is(err, store.ErrNoBackup) {
		return nil, NewError(ErrNotFound, "No backup available")
	}
	if err != nil {
		return nil, err
	}
	s.publish(EventPointsChanged, map[string]float64{"points": doc.UserData.Points})
	return doc, nil
}
