package ledger

import (
	"github.com/studyreward/rewardbook/internal/schema"
)

// AddToInventory adds quantity of a product to items, creating the entry if
// needed, and rounds the result to the unit's precision.
func AddToInventory(items []schema.InventoryItem, productID, productName, unit string, quantity float64) []schema.InventoryItem {
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = RoundQuantity(items[i].Quantity+quantity, items[i].Unit)
			return items
		}
	}
	return append(items, schema.InventoryItem{
		ProductID:   productID,
		ProductName: productName,
		Quantity:    RoundQuantity(quantity, unit),
		Unit:        unit,
	})
}

// ProductResolver looks up a product by id.
type ProductResolver func(id string) (schema.Product, bool)

// RebuildInventory derives the inventory from spend records alone. Records
// whose relatedId does not resolve to a product, or whose quantity cannot be
// determined, are skipped. Holdings are keyed by product name and unit and
// listed in order of first purchase.
func RebuildInventory(records []schema.PointRecord, resolve ProductResolver) []schema.InventoryItem {
	type key struct{ name, unit string }
	index := make(map[key]int)
	items := []schema.InventoryItem{}

	// records are newest first; walk oldest first so order follows purchases
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if r.Type != schema.RecordSpend || r.RelatedID == "" {
			continue
		}
		p, ok := resolve(r.RelatedID)
		if !ok {
			continue
		}
		q, ok := Quantity(r, p.Unit)
		if !ok {
			continue
		}

		k := key{p.Name, p.Unit}
		if idx, exists := index[k]; exists {
			items[idx].Quantity = RoundQuantity(items[idx].Quantity+q, p.Unit)
			continue
		}
		index[k] = len(items)
		items = append(items, schema.InventoryItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    RoundQuantity(q, p.Unit),
			Unit:        p.Unit,
		})
	}

	return items
}
