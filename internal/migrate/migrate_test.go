package migrate

import (
	"errors"
	"testing"
	"time"

	"github.com/studyreward/rewardbook/internal/catalog"
	"github.com/studyreward/rewardbook/internal/schema"
)

var testNow = time.UnixMilli(1_720_000_000_000)

func v1Document() *schema.Document {
	return &schema.Document{
		Version:  &schema.Version{Version: "1.0.0", SchemaVersion: 1, CreatedAt: 100, UpdatedAt: 200},
		UserData: &schema.UserData{Points: 12},
		TaskTemplates: []schema.TaskTemplate{
			{ID: "1", Name: "结构化", Description: "进行结构化学习"},
			{ID: "t-9", Name: "Reading", Description: "read a chapter"},
		},
		Products: []schema.Product{
			{ID: "2", Name: "黄金0.1g", Price: 48, Unit: "g"},
			{ID: "p-7", Name: "Coffee", Price: 30, Unit: "cup", CreatedAt: 55},
			{ID: "p-8", Name: "Gold bar", Price: 500, Unit: "g"},
		},
	}
}

func TestMigrate_FromV1(t *testing.T) {
	in := v1Document()

	out, res, err := Migrate(in, testNow)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	if out.Version.SchemaVersion != schema.CurrentSchemaVersion {
		t.Errorf("schemaVersion = %d, want %d", out.Version.SchemaVersion, schema.CurrentSchemaVersion)
	}
	if res.From != 1 || res.To != schema.CurrentSchemaVersion || len(res.Applied) != len(Steps) {
		t.Errorf("result = %+v", res)
	}
	if out.UserData.CustomStyle == nil {
		t.Error("customStyle not initialized")
	}

	if !out.TaskTemplates[0].IsPreset {
		t.Error("template 1 should be flagged preset by id")
	}
	if out.TaskTemplates[1].IsPreset {
		t.Error("user template flagged preset")
	}
	for _, tpl := range out.TaskTemplates {
		if tpl.CreatedAt != testNow.UnixMilli() {
			t.Errorf("template %s createdAt = %d, want now", tpl.ID, tpl.CreatedAt)
		}
	}

	wantMin := map[string]float64{"2": 0.01, "p-7": 1, "p-8": 0.01}
	for _, p := range out.Products {
		if p.MinQuantity != wantMin[p.ID] {
			t.Errorf("product %s minQuantity = %v, want %v", p.ID, p.MinQuantity, wantMin[p.ID])
		}
	}
	if !out.Products[0].IsPreset {
		t.Error("retired preset id 2 should still count as preset")
	}
	if out.Products[1].CreatedAt != 55 {
		t.Errorf("existing createdAt overwritten: %d", out.Products[1].CreatedAt)
	}

	// input untouched
	if in.Version.SchemaVersion != 1 || in.Products[0].MinQuantity != 0 || in.UserData.CustomStyle != nil {
		t.Error("Migrate() modified its input")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	once, _, err := Migrate(v1Document(), testNow)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	twice, res, err := Migrate(once, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
	if len(res.Applied) != 0 {
		t.Errorf("second pass applied %v", res.Applied)
	}
	if Needed(twice) {
		t.Error("Needed() true after migration")
	}
	for i := range once.Products {
		if !once.Products[i].Equal(twice.Products[i]) {
			t.Errorf("product %d changed on second pass", i)
		}
	}
}

func TestMigrate_MissingVersion(t *testing.T) {
	doc := &schema.Document{}
	out, res, err := Migrate(doc, testNow)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if res.From != 1 {
		t.Errorf("From = %d, want 1", res.From)
	}
	if out.UserData == nil || out.Version == nil {
		t.Fatal("missing blocks not created")
	}
	if err := out.Validate(); err != nil {
		t.Errorf("migrated document invalid: %v", err)
	}
}

func TestMigrate_TooNew(t *testing.T) {
	doc := v1Document()
	doc.Version.SchemaVersion = schema.CurrentSchemaVersion + 1

	_, _, err := Migrate(doc, testNow)
	if !errors.Is(err, ErrSchemaTooNew) {
		t.Fatalf("Migrate() error = %v, want ErrSchemaTooNew", err)
	}
}

func TestFromLegacy(t *testing.T) {
	l := LegacyData{
		UserData:   []byte(`{"points":7,"pointRecords":[{"id":"r1","type":"earn","amount":7,"description":"完成任务: 刷题 (7分钟)","timestamp":5}],"inventory":[]}`),
		Executions: []byte(`[{"id":"e1","taskTemplateId":"3","taskName":"刷题","startTime":1,"endTime":2,"totalPausedDuration":0,"actualReward":7,"status":"completed"}]`),
		Tasks:      []byte(`[{"id":"1","name":"结构化","description":"old","isPreset":true},{"id":"c1","name":"Essay","description":"write","isPreset":false}]`),
		Products:   []byte(`[{"id":"3","name":"黄金1g","price":480,"unit":"g","isPreset":true},{"id":"c2","name":"Snack","price":20,"unit":"个"}]`),
	}

	doc, err := FromLegacy(l, testNow)
	if err != nil {
		t.Fatalf("FromLegacy() failed: %v", err)
	}
	if doc.Version.SchemaVersion != schema.CurrentSchemaVersion {
		t.Errorf("schemaVersion = %d", doc.Version.SchemaVersion)
	}
	if doc.UserData.Points != 7 || len(doc.UserData.PointRecords) != 1 {
		t.Errorf("user data not carried over: %+v", doc.UserData)
	}
	if len(doc.TaskExecutions) != 1 {
		t.Errorf("executions = %d, want 1", len(doc.TaskExecutions))
	}
	if got, want := len(doc.TaskTemplates), len(catalog.Templates())+1; got != want {
		t.Errorf("templates = %d, want %d", got, want)
	}
	if got, want := len(doc.Products), len(catalog.Products())+1; got != want {
		t.Errorf("products = %d, want %d", got, want)
	}
	last := doc.Products[len(doc.Products)-1]
	if last.ID != "c2" || last.MinQuantity != 1 {
		t.Errorf("custom product = %+v", last)
	}
}

func TestFromLegacy_Empty(t *testing.T) {
	doc, err := FromLegacy(LegacyData{Tasks: []byte(`[]`)}, testNow)
	if err != nil || doc != nil {
		t.Errorf("FromLegacy() = (%v, %v), want (nil, nil)", doc, err)
	}
}

func TestFromLegacy_Corrupt(t *testing.T) {
	if _, err := FromLegacy(LegacyData{UserData: []byte(`{not json`)}, testNow); err == nil {
		t.Error("FromLegacy() accepted corrupt user data")
	}
}

func TestMigrate_KeepsExplicitPresetFlag(t *testing.T) {
	// template 2 and product 2 reuse catalog ids but say they are user entries
	data := []byte(`{
		"version": {"version": "1.0.0", "schemaVersion": 1},
		"userData": {"points": 0},
		"taskTemplates": [
			{"id": "1", "name": "结构化", "description": "进行结构化学习"},
			{"id": "2", "name": "Mine", "description": "my own", "isPreset": false}
		],
		"products": [
			{"id": "2", "name": "My gold", "price": 50, "unit": "g", "isPreset": false},
			{"id": "3", "name": "黄金1g", "price": 480, "unit": "g"}
		]
	}`)
	doc, err := schema.Decode(data)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	out, _, err := Migrate(doc, testNow)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	if !out.TaskTemplates[0].IsPreset {
		t.Error("template 1 without isPreset should be flagged by id")
	}
	if out.TaskTemplates[1].IsPreset {
		t.Errorf("template %+v: explicit isPreset=false overwritten", out.TaskTemplates[1])
	}
	if out.Products[0].IsPreset {
		t.Errorf("product %+v: explicit isPreset=false overwritten", out.Products[0])
	}
	if !out.Products[1].IsPreset {
		t.Error("product 3 without isPreset should be flagged by id")
	}
}

func TestNeeded(t *testing.T) {
	current := &schema.Document{
		Version:  &schema.Version{SchemaVersion: schema.CurrentSchemaVersion},
		UserData: &schema.UserData{},
	}
	tests := []struct {
		name string
		doc  *schema.Document
		want bool
	}{
		{"current", current, false},
		{"no version", &schema.Document{UserData: &schema.UserData{}}, true},
		{"no user data", &schema.Document{Version: current.Version}, true},
		{"older", v1Document(), true},
		{"newer", &schema.Document{Version: &schema.Version{SchemaVersion: schema.CurrentSchemaVersion + 1}, UserData: &schema.UserData{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Needed(tt.doc); got != tt.want {
				t.Errorf("Needed() = %v, want %v", got, tt.want)
			}
		})
	}
}
