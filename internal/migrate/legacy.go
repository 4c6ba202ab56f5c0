package migrate

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/studyreward/rewardbook/internal/catalog"
	"github.com/studyreward/rewardbook/internal/schema"
)

// LegacyData holds the raw values of the four keys used before the data lived
// in a single document. A nil field means the key was absent.
type LegacyData struct {
	UserData   []byte
	Tasks      []byte
	Executions []byte
	Products   []byte
}

// Empty reports whether there is nothing worth converting. Templates and
// products alone are not enough: without user data or executions there is no
// user state to carry over.
func (l LegacyData) Empty() bool {
	return l.UserData == nil && l.Executions == nil
}

// FromLegacy converts the legacy layout into a current document. It returns
// nil without error when l is Empty.
//
// The built-in templates and products are taken from the catalog; only the
// user's own entries are carried over from the legacy keys.
func FromLegacy(l LegacyData, now time.Time) (*schema.Document, error) {
	if l.Empty() {
		return nil, nil
	}

	nowMs := schema.NowMillis(now)
	doc := &schema.Document{
		Version: &schema.Version{
			Version:       schema.AppVersion,
			SchemaVersion: 1,
			CreatedAt:     nowMs,
			UpdatedAt:     nowMs,
		},
		UserData:      &schema.UserData{},
		TaskTemplates: catalog.Templates(),
		Products:      catalog.Products(),
	}

	if l.UserData != nil {
		if err := json.Unmarshal(l.UserData, doc.UserData); err != nil {
			return nil, fmt.Errorf("failed to parse legacy user data: %w", err)
		}
	}

	if l.Executions != nil {
		if err := json.Unmarshal(l.Executions, &doc.TaskExecutions); err != nil {
			return nil, fmt.Errorf("failed to parse legacy executions: %w", err)
		}
	}

	if l.Tasks != nil {
		var tasks []schema.TaskTemplate
		if err := json.Unmarshal(l.Tasks, &tasks); err != nil {
			return nil, fmt.Errorf("failed to parse legacy tasks: %w", err)
		}
		for _, t := range tasks {
			if t.IsPreset || catalog.IsPresetTemplateID(t.ID) {
				continue
			}
			doc.TaskTemplates = append(doc.TaskTemplates, t)
		}
	}

	if l.Products != nil {
		var products []schema.Product
		if err := json.Unmarshal(l.Products, &products); err != nil {
			return nil, fmt.Errorf("failed to parse legacy products: %w", err)
		}
		for _, p := range products {
			if p.IsPreset || catalog.IsPresetProductID(p.ID) {
				continue
			}
			doc.Products = append(doc.Products, p)
		}
	}

	doc.SetDefaults()

	out, _, err := Migrate(doc, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade legacy data: %w", err)
	}
	return out, nil
}
