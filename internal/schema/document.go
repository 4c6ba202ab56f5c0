package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CurrentSchemaVersion is the schema version written by this build.
const CurrentSchemaVersion = 3

// AppVersion is the semantic version stamped into every written document.
const AppVersion = "1.2.0"

// MaxPointRecords caps the ledger length.
const MaxPointRecords = 1000

// RecordType distinguishes point gains from point spends.
type RecordType string

const (
	RecordEarn  RecordType = "earn"
	RecordSpend RecordType = "spend"
)

// Version is the document's version block.
type Version struct {
	Version       string `json:"version"`
	SchemaVersion int    `json:"schemaVersion"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

// CustomStyle is a free-form style map owned by the presentation layer.
type CustomStyle map[string]any

// UserData holds the balance, ledger and inventory.
type UserData struct {
	Points       float64         `json:"points"`
	PointRecords []PointRecord   `json:"pointRecords"`
	Inventory    []InventoryItem `json:"inventory"`
	CustomStyle  CustomStyle     `json:"customStyle,omitempty"`
}

// TaskTemplate is a reusable kind of study session.
type TaskTemplate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPreset    bool   `json:"isPreset"`
	CreatedAt   int64  `json:"createdAt"`

	presetSet bool
}

// HasPresetFlag reports whether isPreset was present when t was decoded.
func (t TaskTemplate) HasPresetFlag() bool { return t.presetSet }

// Equal compares the stored fields of t and o.
func (t TaskTemplate) Equal(o TaskTemplate) bool {
	return t.ID == o.ID && t.Name == o.Name && t.Description == o.Description &&
		t.IsPreset == o.IsPreset && t.CreatedAt == o.CreatedAt
}

// UnmarshalJSON records whether isPreset was present.
func (t *TaskTemplate) UnmarshalJSON(data []byte) error {
	type plain TaskTemplate
	var aux struct {
		plain
		IsPreset *bool `json:"isPreset"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = TaskTemplate(aux.plain)
	if aux.IsPreset != nil {
		t.IsPreset, t.presetSet = *aux.IsPreset, true
	}
	return nil
}

// Product is something points can be exchanged for.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`       // points per unit
	MinQuantity float64 `json:"minQuantity"` // size of one purchasable unit
	Unit        string  `json:"unit"`
	IsPreset    bool    `json:"isPreset"`
	CreatedAt   int64   `json:"createdAt"`

	presetSet bool
}

// HasPresetFlag reports whether isPreset was present when p was decoded.
func (p Product) HasPresetFlag() bool { return p.presetSet }

// Equal compares the stored fields of p and o.
func (p Product) Equal(o Product) bool {
	return p.ID == o.ID && p.Name == o.Name && p.Description == o.Description &&
		p.Price == o.Price && p.MinQuantity == o.MinQuantity && p.Unit == o.Unit &&
		p.IsPreset == o.IsPreset && p.CreatedAt == o.CreatedAt
}

// UnmarshalJSON records whether isPreset was present.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var aux struct {
		plain
		IsPreset *bool `json:"isPreset"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Product(aux.plain)
	if aux.IsPreset != nil {
		p.IsPreset, p.presetSet = *aux.IsPreset, true
	}
	return nil
}

// PointRecord is one ledger entry.
//
// Quantity, Unit, EntityName and ExecutionID are written at creation time.
// Records produced by older releases only carry Description, which embeds the
// same information as prose.
type PointRecord struct {
	ID          string     `json:"id"`
	Type        RecordType `json:"type"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Timestamp   int64      `json:"timestamp"`
	RelatedID   string     `json:"relatedId,omitempty"`

	Quantity    float64 `json:"quantity,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	EntityName  string  `json:"entityName,omitempty"`
	ExecutionID string  `json:"executionId,omitempty"`
}

// Signed returns the record's contribution to the balance.
func (r PointRecord) Signed() float64 {
	if r.Type == RecordSpend {
		return -r.Amount
	}
	return r.Amount
}

// InventoryItem is an aggregated holding of one product.
type InventoryItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// Document is the entire persisted state.
type Document struct {
	Version        *Version        `json:"version"`
	UserData       *UserData       `json:"userData"`
	TaskTemplates  []TaskTemplate  `json:"taskTemplates"`
	Products       []Product       `json:"products"`
	TaskExecutions []TaskExecution `json:"taskExecutions"`
}

// NowMillis returns t as epoch milliseconds.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// Validate checks the structural requirements every persisted document must
// meet. It does not repair anything; see SetDefaults and DropBlankTemplates.
func (d *Document) Validate() error {
	if d.Version == nil {
		return fmt.Errorf("data version is required")
	}
	if d.UserData == nil {
		return fmt.Errorf("user data is required")
	}
	if d.TaskTemplates == nil {
		return fmt.Errorf("task templates must be an array")
	}
	if d.Products == nil {
		return fmt.Errorf("products must be an array")
	}
	if d.TaskExecutions == nil {
		return fmt.Errorf("task executions must be an array")
	}
	if d.Version.UpdatedAt < d.Version.CreatedAt {
		return fmt.Errorf("updatedAt (%d) precedes createdAt (%d)", d.Version.UpdatedAt, d.Version.CreatedAt)
	}
	return nil
}

// SetDefaults fills nil collections so a decoded document is safe to use.
func (d *Document) SetDefaults() {
	if d.UserData != nil {
		if d.UserData.PointRecords == nil {
			d.UserData.PointRecords = []PointRecord{}
		}
		if d.UserData.Inventory == nil {
			d.UserData.Inventory = []InventoryItem{}
		}
	}
	if d.TaskTemplates == nil {
		d.TaskTemplates = []TaskTemplate{}
	}
	if d.Products == nil {
		d.Products = []Product{}
	}
	if d.TaskExecutions == nil {
		d.TaskExecutions = []TaskExecution{}
	}
}

// DropBlankTemplates removes templates with an empty name or description.
// Such entries only come from damaged imports and are discarded silently.
func (d *Document) DropBlankTemplates() int {
	kept := d.TaskTemplates[:0]
	dropped := 0
	for _, t := range d.TaskTemplates {
		if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Description) == "" {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	d.TaskTemplates = kept
	return dropped
}

// FindTemplate returns the index of the template with the given id, or -1.
func (d *Document) FindTemplate(id string) int {
	for i := range d.TaskTemplates {
		if d.TaskTemplates[i].ID == id {
			return i
		}
	}
	return -1
}

// FindProduct returns the index of the product with the given id, or -1.
func (d *Document) FindProduct(id string) int {
	for i := range d.Products {
		if d.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// FindExecution returns the index of the execution with the given id, or -1.
func (d *Document) FindExecution(id string) int {
	for i := range d.TaskExecutions {
		if d.TaskExecutions[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy via a JSON round trip.
func (d *Document) Clone() (*Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	out.SetDefaults()

	// marshalling always writes isPreset; keep what the source knew
	for i := range d.TaskTemplates {
		out.TaskTemplates[i].presetSet = d.TaskTemplates[i].presetSet
	}
	for i := range d.Products {
		out.Products[i].presetSet = d.Products[i].presetSet
	}
	return &out, nil
}

// Decode parses a document. Missing collections are defaulted.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	doc.SetDefaults()
	return &doc, nil
}

// Encode serializes a document compactly for storage.
func Encode(d *Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}
