package schema

import (
	"strings"
	"testing"
)

func validDocument() *Document {
	return &Document{
		Version:        &Version{Version: AppVersion, SchemaVersion: CurrentSchemaVersion, CreatedAt: 1000, UpdatedAt: 2000},
		UserData:       &UserData{PointRecords: []PointRecord{}, Inventory: []InventoryItem{}},
		TaskTemplates:  []TaskTemplate{},
		Products:       []Product{},
		TaskExecutions: []TaskExecution{},
	}
}

func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Document)
		wantErr string
	}{
		{name: "valid document", mutate: func(d *Document) {}},
		{name: "missing version", mutate: func(d *Document) { d.Version = nil }, wantErr: "data version is required"},
		{name: "missing user data", mutate: func(d *Document) { d.UserData = nil }, wantErr: "user data is required"},
		{name: "nil templates", mutate: func(d *Document) { d.TaskTemplates = nil }, wantErr: "task templates must be an array"},
		{name: "nil products", mutate: func(d *Document) { d.Products = nil }, wantErr: "products must be an array"},
		{name: "nil executions", mutate: func(d *Document) { d.TaskExecutions = nil }, wantErr: "task executions must be an array"},
		{
			name:    "updated before created",
			mutate:  func(d *Document) { d.Version.UpdatedAt = 10 },
			wantErr: "precedes createdAt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDocument()
			tt.mutate(d)
			err := d.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDecode_SetsDefaults(t *testing.T) {
	doc, err := Decode([]byte(`{"version":{"version":"1.0.0","schemaVersion":1},"userData":{"points":3}}`))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if doc.TaskTemplates == nil || doc.Products == nil || doc.TaskExecutions == nil {
		t.Error("Decode() left nil catalogs")
	}
	if doc.UserData.PointRecords == nil || doc.UserData.Inventory == nil {
		t.Error("Decode() left nil user collections")
	}
	if doc.UserData.Points != 3 {
		t.Errorf("Points = %v, want 3", doc.UserData.Points)
	}
}

func TestDropBlankTemplates(t *testing.T) {
	d := validDocument()
	d.TaskTemplates = []TaskTemplate{
		{ID: "a", Name: "Reading", Description: "read a chapter"},
		{ID: "b", Name: "  ", Description: "blank name"},
		{ID: "c", Name: "Writing", Description: ""},
	}

	dropped := d.DropBlankTemplates()
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if len(d.TaskTemplates) != 1 || d.TaskTemplates[0].ID != "a" {
		t.Errorf("TaskTemplates = %+v, want only a", d.TaskTemplates)
	}
}

func TestPointRecord_Signed(t *testing.T) {
	if got := (PointRecord{Type: RecordEarn, Amount: 5}).Signed(); got != 5 {
		t.Errorf("earn Signed() = %v, want 5", got)
	}
	if got := (PointRecord{Type: RecordSpend, Amount: 5}).Signed(); got != -5 {
		t.Errorf("spend Signed() = %v, want -5", got)
	}
}

func TestClone_IsDeep(t *testing.T) {
	d := validDocument()
	d.Products = append(d.Products, Product{ID: "p", Name: "Gold", Price: 4.8})

	c, err := d.Clone()
	if err != nil {
		t.Fatalf("Clone() failed: %v", err)
	}
	c.Products[0].Price = 99
	c.Version.UpdatedAt = 5

	if d.Products[0].Price != 4.8 {
		t.Errorf("original product mutated: %v", d.Products[0].Price)
	}
	if d.Version.UpdatedAt != 2000 {
		t.Errorf("original version mutated: %v", d.Version.UpdatedAt)
	}
}

func TestExecutionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to ExecutionStatus
		want     bool
	}{
		{StatusRunning, StatusPaused, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusRunning, false},
		{StatusPaused, StatusRunning, true},
		{StatusPaused, StatusCompleted, true},
		{StatusPaused, StatusPaused, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusCompleted, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestActiveExecution(t *testing.T) {
	d := validDocument()
	if d.ActiveExecution() != nil {
		t.Fatal("empty document reported an active execution")
	}

	d.TaskExecutions = []TaskExecution{
		{ID: "1", Status: StatusCompleted},
		{ID: "2", Status: StatusPaused},
	}
	active := d.ActiveExecution()
	if active == nil || active.ID != "2" {
		t.Fatalf("ActiveExecution() = %+v, want execution 2", active)
	}

	if err := active.Transition(StatusRunning); err != nil {
		t.Fatalf("Transition() failed: %v", err)
	}
	if d.TaskExecutions[1].Status != StatusRunning {
		t.Error("Transition() did not update the document in place")
	}
	if err := d.TaskExecutions[0].Transition(StatusRunning); err == nil {
		t.Error("Transition() from completed should fail")
	}
}

func TestDecode_PresetFlagPresence(t *testing.T) {
	doc, err := Decode([]byte(`{"taskTemplates":[{"id":"a","isPreset":false},{"id":"b"}],"products":[{"id":"c","isPreset":true}]}`))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	clone, err := doc.Clone()
	if err != nil {
		t.Fatalf("Clone() failed: %v", err)
	}

	for _, d := range []*Document{doc, clone} {
		if !d.TaskTemplates[0].HasPresetFlag() {
			t.Error("explicit isPreset=false not recorded")
		}
		if d.TaskTemplates[1].HasPresetFlag() {
			t.Error("missing isPreset recorded as present")
		}
		if !d.Products[0].HasPresetFlag() || !d.Products[0].IsPreset {
			t.Errorf("product = %+v, want explicit preset", d.Products[0])
		}
	}
	if !doc.TaskTemplates[1].Equal(clone.TaskTemplates[1]) {
		t.Error("Clone() changed a template")
	}
}
