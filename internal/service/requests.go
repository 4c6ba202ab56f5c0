package service

import "github.com/studyreward/rewardbook/internal/schema"

// CreateTemplateRequest creates a user task template.
type CreateTemplateRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"required,notblank,max=500"`
}

// UpdateTemplateRequest changes the fields that are set.
type UpdateTemplateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,notblank,max=500"`
}

// CreateProductRequest creates a user product. A zero MinQuantity means 1.
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=100"`
	Description string  `json:"description" validate:"max=500"`
	Price       float64 `json:"price" validate:"gte=0"`
	MinQuantity float64 `json:"minQuantity" validate:"gte=0"`
	Unit        string  `json:"unit" validate:"max=20"`
}

// UpdateProductRequest changes the fields that are set.
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	MinQuantity *float64 `json:"minQuantity,omitempty" validate:"omitempty,gt=0"`
	Unit        *string  `json:"unit,omitempty" validate:"omitempty,max=20"`
}

// StartRequest starts an execution of a template.
type StartRequest struct {
	TaskTemplateID string `json:"taskTemplateId" validate:"required"`
}

// ExchangeRequest buys Quantity purchasable units of a product. A zero
// Quantity means 1.
type ExchangeRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
}

// RecordQuery selects a page of point records. Since and Until bound the
// timestamp (inclusive, exclusive) when non-zero.
type RecordQuery struct {
	Type     schema.RecordType `json:"type,omitempty" validate:"omitempty,oneof=earn spend"`
	Page     int               `json:"page" validate:"gte=0"`
	PageSize int               `json:"pageSize" validate:"gte=0,lte=1000"`
	Since    int64             `json:"since,omitempty"`
	Until    int64             `json:"until,omitempty"`
}

// RecordPage is one page of point records.
type RecordPage struct {
	Data     []schema.PointRecord `json:"data"`
	Total    int                  `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"pageSize"`
}

// CompleteResult is returned by CompleteExecution.
type CompleteResult struct {
	Execution *schema.TaskExecution `json:"data"`
	Reward    float64               `json:"reward"`
}

// ExchangeResult is returned by Exchange.
type ExchangeResult struct {
	Product         schema.Product `json:"product"`
	Quantity        float64        `json:"quantity"`
	PointsSpent     float64        `json:"pointsSpent"`
	RemainingPoints float64        `json:"remainingPoints"`
}
