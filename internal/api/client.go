package api

import (
	"context"

	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/service"
	"github.com/studyreward/rewardbook/internal/store"
)

// Client is the full business API.
type Client interface {
	ListTemplates(ctx context.Context) ([]schema.TaskTemplate, error)
	CreateTemplate(ctx context.Context, req service.CreateTemplateRequest) (*schema.TaskTemplate, error)
	UpdateTemplate(ctx context.Context, id string, req service.UpdateTemplateRequest) (*schema.TaskTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error

	ListProducts(ctx context.Context) ([]schema.Product, error)
	CreateProduct(ctx context.Context, req service.CreateProductRequest) (*schema.Product, error)
	UpdateProduct(ctx context.Context, id string, req service.UpdateProductRequest) (*schema.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListExecutions(ctx context.Context) ([]schema.TaskExecution, error)
	ActiveExecution(ctx context.Context) (*schema.TaskExecution, error)
	StartExecution(ctx context.Context, req service.StartRequest) (*schema.TaskExecution, error)
	PauseExecution(ctx context.Context, id string) (*schema.TaskExecution, error)
	ResumeExecution(ctx context.Context, id string) (*schema.TaskExecution, error)
	CancelExecution(ctx context.Context, id string) (*schema.TaskExecution, error)
	CompleteExecution(ctx context.Context, id string) (*service.CompleteResult, error)

	UserData(ctx context.Context) (*schema.UserData, error)
	Points(ctx context.Context) (float64, error)
	PointRecords(ctx context.Context, q service.RecordQuery) (*service.RecordPage, error)
	Inventory(ctx context.Context) ([]schema.InventoryItem, error)
	CustomStyle(ctx context.Context) (schema.CustomStyle, error)
	UpdateCustomStyle(ctx context.Context, patch schema.CustomStyle) (schema.CustomStyle, error)
	Exchange(ctx context.Context, req service.ExchangeRequest) (*service.ExchangeResult, error)

	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) store.ImportResult
	Restore(ctx context.Context) (*schema.Document, error)
}

var (
	_ Client = (*service.Service)(nil)
	_ Client = (*HTTP)(nil)
)
