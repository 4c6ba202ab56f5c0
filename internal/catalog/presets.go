// Package catalog holds the built-in task templates and shop products and
// keeps stored documents in step with them.
package catalog

import (
	"strings"

	"github.com/studyreward/rewardbook/internal/schema"
)

// PresetCreatedAt is the fixed creation time stamped on every built-in entry
// (2024-01-01T00:00:00Z) so reconciled presets compare equal across runs.
const PresetCreatedAt int64 = 1704067200000

// Well-known preset ids.
const (
	GoldProductID  = "1"
	PhoneProductID = "4"
)

// Templates returns a fresh copy of the built-in task templates.
func Templates() []schema.TaskTemplate {
	return []schema.TaskTemplate{
		{ID: "1", Name: "结构化", Description: "进行结构化学习", IsPreset: true, CreatedAt: PresetCreatedAt},
		{ID: "2", Name: "试讲", Description: "进行试讲练习", IsPreset: true, CreatedAt: PresetCreatedAt},
		{ID: "3", Name: "刷题", Description: "进行题目练习", IsPreset: true, CreatedAt: PresetCreatedAt},
	}
}

// Products returns a fresh copy of the built-in products.
func Products() []schema.Product {
	return []schema.Product{
		{
			ID:          GoldProductID,
			Name:        "黄金",
			Description: "兑换黄金，最小单位0.01克",
			Price:       4.8,
			MinQuantity: 0.01,
			Unit:        "g",
			IsPreset:    true,
			CreatedAt:   PresetCreatedAt,
		},
		{
			ID:          PhoneProductID,
			Name:        "玩手机",
			Description: "1分钟学习 = 1分钟玩手机（比例1:1）",
			Price:       1,
			MinQuantity: 1,
			Unit:        "分钟",
			IsPreset:    true,
			CreatedAt:   PresetCreatedAt,
		},
	}
}

// IsPresetTemplateID reports whether id belongs to a built-in template.
func IsPresetTemplateID(id string) bool {
	for _, t := range Templates() {
		if t.ID == id {
			return true
		}
	}
	return false
}

// IsPresetProductID reports whether id belongs to a built-in product. The
// retired gold denominations ("2", "3") still count so that documents from
// releases that shipped them are classified correctly during migration.
func IsPresetProductID(id string) bool {
	switch id {
	case "1", "2", "3", "4":
		return true
	}
	return false
}

// InferMinQuantity guesses the purchasable unit size for a product stored
// before minQuantity existed.
func InferMinQuantity(p schema.Product) float64 {
	switch p.ID {
	case GoldProductID:
		return 0.01
	case PhoneProductID:
		return 1
	}
	name := strings.ToLower(p.Name)
	if strings.Contains(name, "黄金") || strings.Contains(name, "gold") {
		return 0.01
	}
	return 1
}
