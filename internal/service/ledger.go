package service

import (
	"context"
	"fmt"

	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/schema"
	"github.com/studyreward/rewardbook/internal/telemetry"
)

// Default paging for PointRecords.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// PointRecords returns one page of the ledger, newest first. Without a type
// filter the page also contains a display-only row for every completed
// execution that earned nothing.
func (s *Service) PointRecords(ctx context.Context, q RecordQuery) (*RecordPage, error) {
	if err := check(q); err != nil {
		return nil, err
	}
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]schema.PointRecord, 0, len(doc.UserData.PointRecords))
	records = append(records, doc.UserData.PointRecords...)
	if q.Type == "" {
		records = append(records, zeroRewardRows(doc.TaskExecutions)...)
	}

	filtered := records[:0]
	for _, r := range records {
		if q.Type != "" && r.Type != q.Type {
			continue
		}
		if q.Since > 0 && r.Timestamp < q.Since {
			continue
		}
		if q.Until > 0 && r.Timestamp >= q.Until {
			continue
		}
		filtered = append(filtered, r)
	}
	ledger.SortNewestFirst(filtered)

	page := &RecordPage{
		Data:     []schema.PointRecord{},
		Total:    len(filtered),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	start := (q.Page - 1) * q.PageSize
	if start < len(filtered) {
		end := min(start+q.PageSize, len(filtered))
		page.Data = filtered[start:end]
	}
	return page, nil
}

// zeroRewardRows synthesizes the display rows for completed executions
// without a reward. They are never stored.
func zeroRewardRows(execs []schema.TaskExecution) []schema.PointRecord {
	var rows []schema.PointRecord
	for _, e := range execs {
		if e.Status != schema.StatusCompleted || e.ActualReward != 0 || e.EndTime == 0 {
			continue
		}
		rows = append(rows, schema.PointRecord{
			ID:          ledger.SyntheticPrefix + e.ID,
			Type:        schema.RecordEarn,
			Description: ledger.ZeroRewardDescription(e.TaskName, e.ActualDuration),
			Timestamp:   e.EndTime,
			RelatedID:   e.ID,
			EntityName:  e.TaskName,
			ExecutionID: e.ID,
		})
	}
	return rows
}

// Exchange buys units of a product if the balance covers the cost.
func (s *Service) Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	units := req.Quantity
	if units <= 0 {
		units = 1
	}

	var (
		result ExchangeResult
		record schema.PointRecord
	)
	_, err := s.store.Update(ctx, func(doc *schema.Document) error {
		i := doc.FindProduct(req.ProductID)
		if i < 0 {
			return NewError(ErrNotFound, "Product not found")
		}
		p := doc.Products[i]

		spent, quantity := ledger.ExchangeCost(p.Price, p.MinQuantity, units, p.Unit)
		if doc.UserData.Points < spent {
			return NewError(ErrInsufficientPoints, fmt.Sprintf("积分不足！当前积分: %s，需要: %s",
				ledger.FormatNumber(doc.UserData.Points), ledger.FormatNumber(spent)))
		}

		record = schema.PointRecord{
			ID:          s.newID(),
			Type:        schema.RecordSpend,
			Amount:      spent,
			Description: ledger.SpendDescription(p.Name, quantity, p.Unit),
			Timestamp:   schema.NowMillis(s.now()),
			RelatedID:   p.ID,
			Quantity:    quantity,
			Unit:        p.Unit,
			EntityName:  p.Name,
		}
		doc.UserData.Points = ledger.RoundPoints(doc.UserData.Points - spent)
		doc.UserData.PointRecords = ledger.Prepend(doc.UserData.PointRecords, record)
		doc.UserData.Inventory = ledger.AddToInventory(doc.UserData.Inventory, p.ID, p.Name, p.Unit, quantity)

		if p.MinQuantity <= 0 {
			p.MinQuantity = 1
		}
		result = ExchangeResult{
			Product:         p,
			Quantity:        quantity,
			PointsSpent:     spent,
			RemainingPoints: doc.UserData.Points,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.PointsSpent.Add(result.PointsSpent)
	s.publish(EventRecordAdded, record)
	s.publish(EventPointsChanged, map[string]float64{"points": result.RemainingPoints})
	return &result, nil
}
