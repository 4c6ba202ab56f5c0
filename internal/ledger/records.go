package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/studyreward/rewardbook/internal/schema"
)

// CarryDescription labels the record that folds trimmed history into one entry.
const CarryDescription = "结转余额"

// SyntheticPrefix marks display-only records manufactured from executions.
const SyntheticPrefix = "task-"

// EarnDescription is the description written for a rewarded task.
func EarnDescription(taskName string, minutes int) string {
	return fmt.Sprintf("完成任务: %s (%d分钟)", taskName, minutes)
}

// SpendDescription is the description written for an exchange.
func SpendDescription(productName string, quantity float64, unit string) string {
	return fmt.Sprintf("兑换%s: %s%s", productName, FormatNumber(quantity), unit)
}

// ZeroRewardDescription describes a completed execution that earned nothing.
func ZeroRewardDescription(taskName string, minutes int) string {
	if minutes > 0 {
		return fmt.Sprintf("未完成，无积分: %s (%d分钟)", taskName, minutes)
	}
	return "未完成，无积分: " + taskName
}

// IsSynthetic reports whether r is a display-only zero-reward row rather than
// a ledger entry.
func IsSynthetic(r schema.PointRecord) bool {
	return r.Type == schema.RecordEarn && r.Amount == 0 &&
		len(r.ID) > len(SyntheticPrefix) && r.ID[:len(SyntheticPrefix)] == SyntheticPrefix
}

// Balance returns the signed sum of records, rounded to two decimals.
func Balance(records []schema.PointRecord) float64 {
	var sum float64
	for _, r := range records {
		sum += r.Signed()
	}
	return RoundPoints(sum)
}

// Prepend inserts rec at the head (newest first) and enforces the length cap.
func Prepend(records []schema.PointRecord, rec schema.PointRecord) []schema.PointRecord {
	out := make([]schema.PointRecord, 0, len(records)+1)
	out = append(out, rec)
	out = append(out, records...)
	return Trim(out, schema.MaxPointRecords)
}

// Trim caps records at limit entries. The oldest entries beyond the cap are
// folded into carry records at the tail: one spend carry per purchased
// product holding its points and quantity, and one record for the rest of
// the balance. The balance and the inventory derived from spend records are
// unchanged. records must be ordered newest first.
func Trim(records []schema.PointRecord, limit int) []schema.PointRecord {
	if limit <= 0 || len(records) <= limit {
		return records
	}

	// carries take slots too; drop more until kept plus carries fit
	keep := limit - 1
	carries := foldCarries(records[keep:])
	for keep > 0 && keep+len(carries) > limit {
		keep = max(min(keep-1, limit-len(carries)), 0)
		carries = foldCarries(records[keep:])
	}

	out := make([]schema.PointRecord, 0, keep+len(carries))
	out = append(out, records[:keep]...)
	return append(out, carries...)
}

// purchase accumulates the trimmed spend records of one product.
type purchase struct {
	relatedID string
	name      string
	unit      string
	amount    float64
	quantity  float64
}

// foldCarries summarises dropped records, newest first, into carry records.
func foldCarries(dropped []schema.PointRecord) []schema.PointRecord {
	newest := dropped[0].Timestamp
	var rest float64
	var order []string
	purchases := make(map[string]*purchase)

	// oldest first so order lists products by first purchase
	for i := len(dropped) - 1; i >= 0; i-- {
		r := dropped[i]
		if r.Timestamp > newest {
			newest = r.Timestamp
		}
		if p, q, ok := purchaseOf(r, purchases); ok {
			if p.relatedID == "" {
				p.relatedID = r.RelatedID
				order = append(order, r.RelatedID)
				purchases[r.RelatedID] = p
			}
			p.amount += r.Amount
			p.quantity += q
			continue
		}
		rest += r.Signed()
	}

	// the earliest purchase goes nearest the tail
	out := make([]schema.PointRecord, 0, len(order)+1)
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		p := purchases[id]
		quantity := RoundQuantity(p.quantity, p.unit)
		out = append(out, schema.PointRecord{
			ID:          fmt.Sprintf("carry-%d-%s", newest, id),
			Type:        schema.RecordSpend,
			Amount:      RoundPoints(p.amount),
			Description: fmt.Sprintf("%s: %s %s%s", CarryDescription, p.name, FormatNumber(quantity), p.unit),
			Timestamp:   newest,
			RelatedID:   id,
			Quantity:    quantity,
			Unit:        p.unit,
			EntityName:  p.name,
		})
	}

	rest = RoundPoints(rest)
	if rest == 0 && len(out) > 0 {
		return out
	}
	carry := schema.PointRecord{
		ID:          fmt.Sprintf("carry-%d", newest),
		Type:        schema.RecordEarn,
		Amount:      math.Abs(rest),
		Description: CarryDescription,
		Timestamp:   newest,
	}
	if rest < 0 {
		carry.Type = schema.RecordSpend
	}
	return append(out, carry)
}

// purchaseOf returns the accumulator r belongs to and the quantity it
// bought. Records without a product or a readable quantity, and records in a
// unit other than the one already seen for their product, are not purchases.
// A new accumulator has an empty relatedID.
func purchaseOf(r schema.PointRecord, purchases map[string]*purchase) (*purchase, float64, bool) {
	if r.Type != schema.RecordSpend || r.RelatedID == "" {
		return nil, 0, false
	}

	q, unit := r.Quantity, r.Unit
	if q <= 0 || unit == "" {
		pq, pu, ok := splitQuantity(r.Description)
		if !ok || (unit != "" && pu != unit) {
			return nil, 0, false
		}
		if q <= 0 {
			q = pq
		}
		unit = pu
	}

	if p, ok := purchases[r.RelatedID]; ok {
		if p.unit != unit {
			return nil, 0, false
		}
		return p, q, true
	}

	name, ok := EntityName(r)
	if !ok {
		name = r.RelatedID
	}
	return &purchase{name: name, unit: unit}, q, true
}

// SortNewestFirst orders records by timestamp descending, keeping the
// relative order of equal timestamps.
func SortNewestFirst(records []schema.PointRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}
