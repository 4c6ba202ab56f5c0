package catalog

import (
	"testing"

	"github.com/studyreward/rewardbook/internal/schema"
)

func TestReconcileProducts_PresetsMatchCatalog(t *testing.T) {
	stored := []schema.Product{
		{ID: "1", Name: "黄金1g", Description: "兑换1克黄金", Price: 480, Unit: "g", IsPreset: true, CreatedAt: 5},
		{ID: "2", Name: "黄金0.1g", Description: "兑换0.1克黄金", Price: 48, Unit: "g", IsPreset: true},
		{ID: "u1", Name: "Coffee", Description: "one cup", Price: 30, MinQuantity: 1, Unit: "cup"},
		{ID: "4", Name: "玩手机60分钟", Price: 60, Unit: "分钟", IsPreset: true},
	}

	out, changed := ReconcileProducts(stored)
	if !changed {
		t.Fatal("ReconcileProducts() reported no change for stale presets")
	}

	builtins := map[string]schema.Product{}
	for _, p := range Products() {
		builtins[p.ID] = p
	}

	var sawUser bool
	for _, p := range out {
		if p.IsPreset {
			want, ok := builtins[p.ID]
			if !ok {
				t.Errorf("retired preset %s survived reconciliation", p.ID)
				continue
			}
			if !p.Equal(want) {
				t.Errorf("preset %s = %+v, want %+v", p.ID, p, want)
			}
			delete(builtins, p.ID)
			continue
		}
		if p.ID == "u1" {
			sawUser = true
			if !p.Equal(stored[2]) {
				t.Errorf("user product modified: %+v", p)
			}
		}
	}
	if len(builtins) != 0 {
		t.Errorf("missing built-ins after reconciliation: %v", builtins)
	}
	if !sawUser {
		t.Error("user product dropped")
	}

	again, changed := ReconcileProducts(out)
	if changed {
		t.Errorf("second ReconcileProducts() changed output: %+v", again)
	}
}

func TestReconcileProducts_DedupeByName(t *testing.T) {
	stored := []schema.Product{
		{ID: "a", Name: "Gold", Price: 480, MinQuantity: 1, Unit: "g"},
		{ID: "b", Name: "Gold", Price: 4.8, MinQuantity: 0.01, Unit: "g"},
		{ID: "c", Name: "黄金", Price: 1, MinQuantity: 0.001, Unit: "g"},
	}

	out, _ := ReconcileProducts(stored)

	var gold, preset *schema.Product
	count := map[string]int{}
	for i := range out {
		count[out[i].Name]++
		if out[i].Name == "Gold" {
			gold = &out[i]
		}
		if out[i].Name == "黄金" {
			preset = &out[i]
		}
	}
	for name, n := range count {
		if n > 1 {
			t.Errorf("name %q appears %d times", name, n)
		}
	}
	if gold == nil || gold.ID != "b" {
		t.Errorf("Gold kept = %+v, want the smaller minQuantity entry b", gold)
	}
	if preset == nil || !preset.IsPreset || preset.ID != GoldProductID {
		t.Errorf("黄金 kept = %+v, want the built-in preset", preset)
	}
}

func TestReconcileTemplates(t *testing.T) {
	stored := []schema.TaskTemplate{
		{ID: "1", Name: "结构化", Description: "edited by hand", IsPreset: true},
		{ID: "u1", Name: "Reading", Description: "read", CreatedAt: 10},
		{ID: "u2", Name: "试讲", Description: "user copy of a preset name"},
	}

	out, changed := ReconcileTemplates(stored)
	if !changed {
		t.Fatal("ReconcileTemplates() reported no change")
	}
	if len(out) != 4 {
		t.Fatalf("len(out) = %d, want 4: %+v", len(out), out)
	}
	if out[0] != Templates()[0] {
		t.Errorf("out[0] = %+v, want built-in 结构化", out[0])
	}
	if out[1].ID != "u1" {
		t.Errorf("out[1] = %+v, want user template u1", out[1])
	}
	for _, tpl := range out {
		if tpl.Name == "试讲" && !tpl.IsPreset {
			t.Errorf("user template shadowed preset name: %+v", tpl)
		}
	}
}

func TestReconcile_DefaultDocumentIsStable(t *testing.T) {
	doc := &schema.Document{TaskTemplates: Templates(), Products: Products()}
	if Reconcile(doc) {
		t.Error("Reconcile() changed a document built from the catalog")
	}
}

func TestInferMinQuantity(t *testing.T) {
	tests := []struct {
		p    schema.Product
		want float64
	}{
		{schema.Product{ID: GoldProductID}, 0.01},
		{schema.Product{ID: PhoneProductID}, 1},
		{schema.Product{ID: "x", Name: "黄金0.1g"}, 0.01},
		{schema.Product{ID: "y", Name: "Gold bar"}, 0.01},
		{schema.Product{ID: "z", Name: "Coffee"}, 1},
	}
	for _, tt := range tests {
		if got := InferMinQuantity(tt.p); got != tt.want {
			t.Errorf("InferMinQuantity(%+v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}
