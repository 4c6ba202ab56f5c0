// Package ledger implements point accounting: reward calculation, the
// append-only point-record list, description formats and inventory
// aggregation with unit-dependent precision.
package ledger

import (
	"math"
	"strconv"

	"github.com/studyreward/rewardbook/internal/schema"
)

// PrecisionForUnit returns the number of decimals kept for quantities in unit.
// Mass-like units keep two decimals, everything else keeps one.
func PrecisionForUnit(unit string) int {
	if unit == "g" || unit == "克" {
		return 2
	}
	return 1
}

// Round rounds n to the given number of decimals, half away from zero.
func Round(n float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(n*p) / p
}

// RoundQuantity rounds a quantity to its unit's precision. It is idempotent.
func RoundQuantity(q float64, unit string) float64 {
	return Round(q, PrecisionForUnit(unit))
}

// RoundPoints rounds a point amount to two decimals to keep fractional prices
// from accumulating float noise.
func RoundPoints(p float64) float64 {
	return Round(p, 2)
}

// FixInventory rounds every item to its unit's precision in place and reports
// whether anything changed.
func FixInventory(items []schema.InventoryItem) bool {
	changed := false
	for i := range items {
		fixed := RoundQuantity(items[i].Quantity, items[i].Unit)
		if fixed != items[i].Quantity {
			items[i].Quantity = fixed
			changed = true
		}
	}
	return changed
}

// FormatNumber renders n the shortest way that round-trips, e.g. 0.1, 2, 4.8.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
