package merge

import (
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/schema"
)

// Stats counts what a merge did across templates, products and records.
type Stats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Merged  int `json:"merged"`
}

// Engine merges documents. The zero value is not usable; call New.
type Engine struct {
	logger *log.Logger
	newID  func() string
}

// New creates an Engine. A nil logger discards output.
func New(logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Engine{
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Merge combines imported into local and returns the candidate document.
// Neither input is modified. Both must already be at the current schema
// version. On any conflict Merge returns a *ConflictError and no document.
func (e *Engine) Merge(local, imported *schema.Document) (*schema.Document, Stats, error) {
	var stats Stats

	if local == nil || local.UserData == nil {
		return nil, stats, fmt.Errorf("local document is incomplete")
	}
	if imported == nil || imported.UserData == nil {
		return nil, stats, fmt.Errorf("imported document is incomplete")
	}

	out, err := local.Clone()
	if err != nil {
		return nil, stats, err
	}
	in, err := imported.Clone()
	if err != nil {
		return nil, stats, err
	}

	m := &merger{engine: e, stats: &stats}

	var templateRemap, productRemap map[string]string
	out.TaskTemplates, templateRemap = mergeCatalog(m, templateOps, out.TaskTemplates, in.TaskTemplates)
	out.Products, productRemap = mergeCatalog(m, productOps, out.Products, in.Products)
	records := m.mergeRecords(out, in, templateRemap, productRemap)

	if len(m.conflicts) > 0 {
		return nil, Stats{}, &ConflictError{Conflicts: m.conflicts}
	}

	products := make(map[string]schema.Product, len(out.Products))
	for _, p := range out.Products {
		products[p.ID] = p
	}
	inventory := ledger.RebuildInventory(records, func(id string) (schema.Product, bool) {
		p, ok := products[id]
		return p, ok
	})

	records = ledger.Trim(records, schema.MaxPointRecords)
	out.UserData.PointRecords = records
	out.UserData.Points = ledger.Balance(records)
	out.UserData.Inventory = inventory

	if len(out.UserData.CustomStyle) == 0 && len(in.UserData.CustomStyle) > 0 {
		out.UserData.CustomStyle = in.UserData.CustomStyle
	}

	if m.relinked > 0 {
		e.logger.Printf("relinked %d imported record(s) by entity name", m.relinked)
	}

	return out, stats, nil
}

// merger carries the state of one Merge call.
type merger struct {
	engine    *Engine
	stats     *Stats
	conflicts []Conflict
	relinked  int
}

func (m *merger) conflict(kind, name string, fields []FieldDiff) {
	m.conflicts = append(m.conflicts, Conflict{Kind: kind, Name: name, Fields: fields})
}
