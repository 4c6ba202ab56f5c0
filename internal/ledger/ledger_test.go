package ledger

import (
	"fmt"
	"testing"

	"github.com/studyreward/rewardbook/internal/schema"
)

func TestRoundQuantity(t *testing.T) {
	tests := []struct {
		q    float64
		unit string
		want float64
	}{
		{0.1 + 0.2, "g", 0.3},
		{1.006, "克", 1.01},
		{0.03, "g", 0.03},
		{2.25, "分钟", 2.3},
		{59.94, "分钟", 59.9},
		{3, "", 3},
	}
	for _, tt := range tests {
		got := RoundQuantity(tt.q, tt.unit)
		if got != tt.want {
			t.Errorf("RoundQuantity(%v, %q) = %v, want %v", tt.q, tt.unit, got, tt.want)
		}
		if again := RoundQuantity(got, tt.unit); again != got {
			t.Errorf("RoundQuantity not idempotent for %v %q: %v then %v", tt.q, tt.unit, got, again)
		}
	}
}

func TestFixInventory_Idempotent(t *testing.T) {
	items := []schema.InventoryItem{
		{ProductID: "1", Quantity: 0.1 + 0.2, Unit: "g"},
		{ProductID: "4", Quantity: 60.04, Unit: "分钟"},
	}
	if !FixInventory(items) {
		t.Fatal("FixInventory() reported no change on drifted quantities")
	}
	once := append([]schema.InventoryItem(nil), items...)
	if FixInventory(items) {
		t.Error("second FixInventory() reported a change")
	}
	for i := range items {
		if items[i] != once[i] {
			t.Errorf("item %d changed on second pass: %+v vs %+v", i, items[i], once[i])
		}
	}
}

func TestElapsedMinutes(t *testing.T) {
	start := int64(1_700_000_000_000)
	tests := []struct {
		name   string
		now    int64
		paused float64
		want   int
	}{
		{"150s with 30s pause", start + 150_000, 30, 2},
		{"59s", start + 59_000, 0, 0},
		{"exactly one minute", start + 60_000, 0, 1},
		{"pause longer than run", start + 10_000, 30, 0},
		{"fractional pause", start + 120_500, 0.4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedMinutes(start, tt.now, tt.paused); got != tt.want {
				t.Errorf("ElapsedMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
	if Reward(2) != 2 {
		t.Errorf("Reward(2) = %v, want 2", Reward(2))
	}
}

func TestExchangeCost(t *testing.T) {
	spent, qty := ExchangeCost(4.8, 0.01, 3, "g")
	if spent != 14.4 {
		t.Errorf("pointsSpent = %v, want 14.4", spent)
	}
	if qty != 0.03 {
		t.Errorf("quantity = %v, want 0.03", qty)
	}

	spent, qty = ExchangeCost(60, 0, 2, "分钟")
	if spent != 120 || qty != 2 {
		t.Errorf("ExchangeCost with zero minQuantity = (%v, %v), want (120, 2)", spent, qty)
	}
}

func TestNameFromDescription(t *testing.T) {
	tests := []struct {
		typ      schema.RecordType
		desc     string
		wantName string
		wantOK   bool
	}{
		{schema.RecordEarn, "完成任务: 刷题 (25分钟)", "刷题", true},
		{schema.RecordEarn, "完成任务: Reading (Chapter 1) (3分钟)", "Reading (Chapter 1)", true},
		{schema.RecordEarn, "完成任务: 试讲", "试讲", true},
		{schema.RecordSpend, "兑换黄金0.1g: 0.1g", "黄金0.1g", true},
		{schema.RecordSpend, "兑换玩手机60分钟: 1分钟", "玩手机60分钟", true},
		{schema.RecordSpend, "manual adjustment", "", false},
		{schema.RecordEarn, "兑换黄金: 1g", "", false},
	}
	for _, tt := range tests {
		name, ok := NameFromDescription(tt.typ, tt.desc)
		if name != tt.wantName || ok != tt.wantOK {
			t.Errorf("NameFromDescription(%s, %q) = (%q, %v), want (%q, %v)",
				tt.typ, tt.desc, name, ok, tt.wantName, tt.wantOK)
		}
	}
}

func TestQuantityFromDescription(t *testing.T) {
	tests := []struct {
		desc   string
		unit   string
		want   float64
		wantOK bool
	}{
		{"兑换黄金0.1g: 0.1g", "g", 0.1, true},
		{"兑换黄金1g: 1g", "g", 1, true},
		{"兑换黄金: 0.03g", "g", 0.03, true},
		{"兑换玩手机60分钟: 60分钟", "分钟", 60, true},
		{"兑换黄金: 2克", "g", 0, false},
		{"兑换黄金: many", "g", 0, false},
	}
	for _, tt := range tests {
		got, ok := QuantityFromDescription(tt.desc, tt.unit)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("QuantityFromDescription(%q, %q) = (%v, %v), want (%v, %v)",
				tt.desc, tt.unit, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStructuredFieldsWin(t *testing.T) {
	r := schema.PointRecord{
		Type:        schema.RecordSpend,
		Description: "兑换旧名字: 5g",
		EntityName:  "黄金",
		Quantity:    0.02,
	}
	if name, _ := EntityName(r); name != "黄金" {
		t.Errorf("EntityName() = %q, want 黄金", name)
	}
	if q, _ := Quantity(r, "g"); q != 0.02 {
		t.Errorf("Quantity() = %v, want 0.02", q)
	}
}

func TestPrependAndTrim_PreserveBalance(t *testing.T) {
	var records []schema.PointRecord
	for i := 0; i < schema.MaxPointRecords+25; i++ {
		typ := schema.RecordEarn
		if i%3 == 0 {
			typ = schema.RecordSpend
		}
		records = Prepend(records, schema.PointRecord{
			ID:        fmt.Sprintf("r%d", i),
			Type:      typ,
			Amount:    float64(i%7) + 0.5,
			Timestamp: int64(1000 + i),
		})
	}

	if len(records) != schema.MaxPointRecords {
		t.Fatalf("len(records) = %d, want %d", len(records), schema.MaxPointRecords)
	}

	// recompute what the balance would be without trimming
	var want float64
	for i := 0; i < schema.MaxPointRecords+25; i++ {
		amount := float64(i%7) + 0.5
		if i%3 == 0 {
			want -= amount
		} else {
			want += amount
		}
	}
	if got := Balance(records); got != RoundPoints(want) {
		t.Errorf("Balance() after trim = %v, want %v", got, RoundPoints(want))
	}

	if records[0].ID != fmt.Sprintf("r%d", schema.MaxPointRecords+24) {
		t.Errorf("newest record = %s, want the last prepended", records[0].ID)
	}
	tail := records[len(records)-1]
	if tail.Description != CarryDescription {
		t.Errorf("tail description = %q, want carry record", tail.Description)
	}
}

func TestTrim_CarriesPurchases(t *testing.T) {
	products := map[string]schema.Product{
		"gold":  {ID: "gold", Name: "黄金", Unit: "g", MinQuantity: 0.01},
		"phone": {ID: "phone", Name: "玩手机", Unit: "分钟", MinQuantity: 1},
	}
	resolve := func(id string) (schema.Product, bool) {
		p, ok := products[id]
		return p, ok
	}

	var records []schema.PointRecord
	records = Prepend(records, schema.PointRecord{
		ID: "g1", Type: schema.RecordSpend, Amount: 9.6, Description: "兑换黄金: 0.02g",
		Timestamp: 1, RelatedID: "gold", EntityName: "黄金", Quantity: 0.02, Unit: "g",
	})
	// description only, as written by older releases
	records = Prepend(records, schema.PointRecord{
		ID: "p1", Type: schema.RecordSpend, Amount: 4.6, Description: "兑换玩手机: 30分钟",
		Timestamp: 2, RelatedID: "phone",
	})
	records = Prepend(records, schema.PointRecord{
		ID: "g2", Type: schema.RecordSpend, Amount: 4.8, Description: "兑换黄金: 0.01g",
		Timestamp: 3, RelatedID: "gold", EntityName: "黄金", Quantity: 0.01, Unit: "g",
	})
	before := RebuildInventory(records, resolve)

	var want float64 = -9.6 - 4.6 - 4.8
	for i := 0; i < schema.MaxPointRecords+10; i++ {
		records = Prepend(records, schema.PointRecord{
			ID: fmt.Sprintf("e%d", i), Type: schema.RecordEarn, Amount: 1, Timestamp: int64(100 + i),
		})
		want++
	}

	if len(records) > schema.MaxPointRecords {
		t.Fatalf("len(records) = %d, want at most %d", len(records), schema.MaxPointRecords)
	}
	if got := Balance(records); got != RoundPoints(want) {
		t.Errorf("Balance() after trim = %v, want %v", got, RoundPoints(want))
	}

	after := RebuildInventory(records, resolve)
	if len(after) != len(before) {
		t.Fatalf("inventory after trim = %+v, want %+v", after, before)
	}
	for i := range before {
		if after[i].ProductID != before[i].ProductID || after[i].Quantity != before[i].Quantity {
			t.Errorf("inventory[%d] = %+v, want %+v", i, after[i], before[i])
		}
	}

	var spendCarries int
	for _, r := range records {
		if r.Type == schema.RecordSpend && r.RelatedID != "" {
			spendCarries++
			if r.Quantity == 0 || r.Unit == "" || r.EntityName == "" {
				t.Errorf("carry %+v lacks quantity, unit or name", r)
			}
		}
	}
	if spendCarries != 2 {
		t.Errorf("spend carries = %d, want one per product", spendCarries)
	}
}

func TestQuantityFromDescription_Units(t *testing.T) {
	tests := []struct {
		desc string
		unit string
		want float64
		ok   bool
	}{
		{"兑换黄金: 0.03g", "g", 0.03, true},
		{"兑换玩手机: 30分钟", "分钟", 30, true},
		{"兑换黄金0.1g: 2g", "g", 2, true},
		{"兑换黄金: 0.03g", "分钟", 0, false},
		{"兑换黄金: g", "g", 0, false},
	}
	for _, tt := range tests {
		got, ok := QuantityFromDescription(tt.desc, tt.unit)
		if ok != tt.ok || got != tt.want {
			t.Errorf("QuantityFromDescription(%q, %q) = (%v, %v), want (%v, %v)", tt.desc, tt.unit, got, ok, tt.want, tt.ok)
		}
	}
}

func TestIsSynthetic(t *testing.T) {
	if !IsSynthetic(schema.PointRecord{ID: "task-123", Type: schema.RecordEarn}) {
		t.Error("zero-amount task- row should be synthetic")
	}
	if IsSynthetic(schema.PointRecord{ID: "task-123", Type: schema.RecordEarn, Amount: 3}) {
		t.Error("rewarded record should not be synthetic")
	}
	if IsSynthetic(schema.PointRecord{ID: "abc", Type: schema.RecordEarn}) {
		t.Error("plain id should not be synthetic")
	}
}

func TestRebuildInventory(t *testing.T) {
	products := map[string]schema.Product{
		"gold":  {ID: "gold", Name: "黄金", Unit: "g", MinQuantity: 0.01},
		"phone": {ID: "phone", Name: "玩手机", Unit: "分钟", MinQuantity: 1},
	}
	resolve := func(id string) (schema.Product, bool) {
		p, ok := products[id]
		return p, ok
	}

	// newest first
	records := []schema.PointRecord{
		{Type: schema.RecordSpend, RelatedID: "gold", Description: "兑换黄金: 0.02g", Quantity: 0.02},
		{Type: schema.RecordSpend, RelatedID: "phone", Description: "兑换玩手机: 30分钟"},
		{Type: schema.RecordEarn, RelatedID: "gold", Amount: 10, Description: "完成任务: x (10分钟)"},
		{Type: schema.RecordSpend, RelatedID: "missing", Description: "兑换旧商品: 1g"},
		{Type: schema.RecordSpend, RelatedID: "gold", Description: "兑换黄金: 0.01g"},
	}

	items := RebuildInventory(records, resolve)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2: %+v", len(items), items)
	}
	if items[0].ProductID != "gold" || items[0].Quantity != 0.03 {
		t.Errorf("items[0] = %+v, want gold 0.03", items[0])
	}
	if items[1].ProductID != "phone" || items[1].Quantity != 30 {
		t.Errorf("items[1] = %+v, want phone 30", items[1])
	}
}

func TestAddToInventory(t *testing.T) {
	items := AddToInventory(nil, "gold", "黄金", "g", 0.1)
	items = AddToInventory(items, "gold", "黄金", "g", 0.2)
	if len(items) != 1 || items[0].Quantity != 0.3 {
		t.Errorf("items = %+v, want single entry with 0.3", items)
	}
}
