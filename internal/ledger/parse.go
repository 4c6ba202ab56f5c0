package ledger

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/studyreward/rewardbook/internal/schema"
)

// Records written before structured fields existed carry the related entity
// and quantity only inside their description. These helpers recover them.

var (
	earnNamePattern  = regexp.MustCompile(`^完成任务:\s*(.+?)(?:\s*\(\d+分钟\))?\s*$`)
	spendNamePattern = regexp.MustCompile(`^兑换(.+?):`)
	quantityPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)([^\d\s]*)$`)
)

// EntityName returns the template or product name a record refers to,
// preferring the structured field over the description.
func EntityName(r schema.PointRecord) (string, bool) {
	if r.EntityName != "" {
		return r.EntityName, true
	}
	return NameFromDescription(r.Type, r.Description)
}

// NameFromDescription extracts the entity name from a description in the
// "完成任务: <name>" or "兑换<name>:" format.
func NameFromDescription(typ schema.RecordType, description string) (string, bool) {
	var m []string
	switch typ {
	case schema.RecordEarn:
		m = earnNamePattern.FindStringSubmatch(description)
	case schema.RecordSpend:
		m = spendNamePattern.FindStringSubmatch(description)
	}
	if len(m) < 2 {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	return name, name != ""
}

// Quantity returns the transacted quantity of a spend record, preferring the
// structured field over the description.
func Quantity(r schema.PointRecord, unit string) (float64, bool) {
	if r.Quantity > 0 {
		return r.Quantity, true
	}
	return QuantityFromDescription(r.Description, unit)
}

// QuantityFromDescription finds a number immediately followed by unit at the
// end of the description, looking only past the name separator so digits in
// a product name such as "黄金0.1g" are not mistaken for the quantity.
func QuantityFromDescription(description, unit string) (float64, bool) {
	q, u, ok := splitQuantity(description)
	if !ok || u != unit {
		return 0, false
	}
	return q, true
}

// splitQuantity returns the trailing quantity of a description and the unit
// written after it.
func splitQuantity(description string) (float64, string, bool) {
	tail := description
	if i := strings.LastIndex(description, ":"); i >= 0 {
		tail = description[i+1:]
	}
	m := quantityPattern.FindStringSubmatch(strings.TrimSpace(tail))
	if len(m) < 3 {
		return 0, "", false
	}
	q, err := strconv.ParseFloat(m[1], 64)
	if err != nil || q <= 0 {
		return 0, "", false
	}
	return q, m[2], true
}
