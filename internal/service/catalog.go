package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/studyreward/rewardbook/internal/schema"
)

// ListTemplates returns every task template.
func (s *Service) ListTemplates(ctx context.Context) ([]schema.TaskTemplate, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.TaskTemplates, nil
}

// CreateTemplate adds a user template.
func (s *Service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*schema.TaskTemplate, error) {
	if err := check(req); err != nil {
		return nil, err
	}

	var created schema.TaskTemplate
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		name := strings.TrimSpace(req.Name)
		if err := templateNameFree(doc, name, ""); err != nil {
			return err
		}
		created = schema.TaskTemplate{
			ID:          s.newID(),
			Name:        name,
			Description: strings.TrimSpace(req.Description),
			CreatedAt:   schema.NowMillis(s.now()),
		}
		doc.TaskTemplates = append(doc.TaskTemplates, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventCatalogChanged, created)
	return &created, nil
}

// UpdateTemplate changes a user template.
func (s *Service) UpdateTemplate(ctx context.Context, id string, req UpdateTemplateRequest) (*schema.TaskTemplate, error) {
	if err := check(req); err != nil {
		return nil, err
	}

	var updated schema.TaskTemplate
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		i := doc.FindTemplate(id)
		if i < 0 {
			return NewError(ErrNotFound, "Task template not found")
		}
		t := &doc.TaskTemplates[i]
		if t.IsPreset {
			return NewError(ErrPresetImmutable, "Cannot update preset task template")
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if err := templateNameFree(doc, name, id); err != nil {
				return err
			}
			t.Name = name
		}
		if req.Description != nil {
			t.Description = strings.TrimSpace(*req.Description)
		}
		updated = *t
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventCatalogChanged, updated)
	return &updated, nil
}

// DeleteTemplate removes a user template that no execution refers to.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		i := doc.FindTemplate(id)
		if i < 0 {
			return NewError(ErrNotFound, "Task template not found")
		}
		if doc.TaskTemplates[i].IsPreset {
			return NewError(ErrPresetImmutable, "Cannot delete preset task template")
		}
		for _, e := range doc.TaskExecutions {
			if e.TaskTemplateID == id {
				return NewError(ErrInUse, "Cannot delete task template that has execution records")
			}
		}
		doc.TaskTemplates = append(doc.TaskTemplates[:i], doc.TaskTemplates[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(EventCatalogChanged, map[string]string{"deleted": id})
	return nil
}

// ListProducts returns every product.
func (s *Service) ListProducts(ctx context.Context) ([]schema.Product, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Products, nil
}

// CreateProduct adds a user product.
func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*schema.Product, error) {
	if err := check(req); err != nil {
		return nil, err
	}

	var created schema.Product
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		name := strings.TrimSpace(req.Name)
		if err := productNameFree(doc, name, ""); err != nil {
			return err
		}
		minQuantity := req.MinQuantity
		if minQuantity <= 0 {
			minQuantity = 1
		}
		created = schema.Product{
			ID:          s.newID(),
			Name:        name,
			Description: req.Description,
			Price:       req.Price,
			MinQuantity: minQuantity,
			Unit:        strings.TrimSpace(req.Unit),
			CreatedAt:   schema.NowMillis(s.now()),
		}
		doc.Products = append(doc.Products, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventCatalogChanged, created)
	return &created, nil
}

// UpdateProduct changes a user product.
func (s *Service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*schema.Product, error) {
	if err := check(req); err != nil {
		return nil, err
	}

	var updated schema.Product
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		i := doc.FindProduct(id)
		if i < 0 {
			return NewError(ErrNotFound, "Product not found")
		}
		p := &doc.Products[i]
		if p.IsPreset {
			return NewError(ErrPresetImmutable, "Cannot update preset product")
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if err := productNameFree(doc, name, id); err != nil {
				return err
			}
			p.Name = name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Price != nil {
			p.Price = *req.Price
		}
		if req.MinQuantity != nil {
			p.MinQuantity = *req.MinQuantity
		}
		if req.Unit != nil {
			p.Unit = strings.TrimSpace(*req.Unit)
		}
		updated = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(EventCatalogChanged, updated)
	return &updated, nil
}

// DeleteProduct removes a user product that has never been bought.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		i := doc.FindProduct(id)
		if i < 0 {
			return NewError(ErrNotFound, "Product not found")
		}
		if doc.Products[i].IsPreset {
			return NewError(ErrPresetImmutable, "Cannot delete preset product")
		}
		for _, r := range doc.UserData.PointRecords {
			if r.Type == schema.RecordSpend && r.RelatedID == id {
				return NewError(ErrInUse, "Cannot delete product that has exchange records")
			}
		}
		for _, item := range doc.UserData.Inventory {
			if item.ProductID == id {
				return NewError(ErrInUse, "Cannot delete product that exists in inventory")
			}
		}
		doc.Products = append(doc.Products[:i], doc.Products[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(EventCatalogChanged, map[string]string{"deleted": id})
	return nil
}

func templateNameFree(doc *schema.Document, name, selfID string) error {
	for _, t := range doc.TaskTemplates {
		if t.Name == name && t.ID != selfID {
			return NewError(ErrDuplicateName, fmt.Sprintf("task template %q already exists", name))
		}
	}
	return nil
}

func productNameFree(doc *schema.Document, name, selfID string) error {
	for _, p := range doc.Products {
		if p.Name == name && p.ID != selfID {
			return NewError(ErrDuplicateName, fmt.Sprintf("product %q already exists", name))
		}
	}
	return nil
}
