// Package migrate upgrades stored documents to the current schema version and
// converts the pre-document legacy layout into a document.
package migrate

import (
	"errors"
	"fmt"
	"time"

	"github.com/studyreward/rewardbook/internal/catalog"
	"github.com/studyreward/rewardbook/internal/schema"
)

// ErrSchemaTooNew is returned for documents written by a newer release.
var ErrSchemaTooNew = errors.New("document schema is newer than this build supports")

// Step upgrades a document from To-1 to To.
type Step struct {
	To    int
	Name  string
	Apply func(doc *schema.Document, now int64)
}

// Steps lists every schema upgrade in order.
var Steps = []Step{
	{To: 2, Name: "custom style, preset flags, creation times", Apply: toV2},
	{To: 3, Name: "product minimum quantity", Apply: toV3},
}

// Result describes what Migrate did.
type Result struct {
	From    int
	To      int
	Applied []string
}

// Needed reports whether doc has to go through Migrate: it lacks a version
// or user data block, or its schema is not the current one. Newer schemas
// are refused by Migrate.
func Needed(doc *schema.Document) bool {
	return doc.Version == nil || doc.UserData == nil ||
		doc.Version.SchemaVersion != schema.CurrentSchemaVersion
}

// Migrate returns a copy of doc upgraded to the current schema version. The
// input is not modified. A document without a version block is treated as
// schema version 1.
func Migrate(doc *schema.Document, now time.Time) (*schema.Document, *Result, error) {
	out, err := doc.Clone()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to copy document: %w", err)
	}

	nowMs := schema.NowMillis(now)
	if out.Version == nil {
		out.Version = &schema.Version{SchemaVersion: 1, CreatedAt: nowMs, UpdatedAt: nowMs}
	}
	if out.Version.SchemaVersion < 1 {
		out.Version.SchemaVersion = 1
	}
	if out.Version.SchemaVersion > schema.CurrentSchemaVersion {
		return nil, nil, fmt.Errorf("%w: schema %d > %d", ErrSchemaTooNew, out.Version.SchemaVersion, schema.CurrentSchemaVersion)
	}
	if out.UserData == nil {
		out.UserData = &schema.UserData{}
	}
	out.SetDefaults()

	result := &Result{From: out.Version.SchemaVersion}
	for _, step := range Steps {
		if out.Version.SchemaVersion >= step.To {
			continue
		}
		step.Apply(out, nowMs)
		out.Version.SchemaVersion = step.To
		result.Applied = append(result.Applied, step.Name)
	}
	result.To = out.Version.SchemaVersion

	return out, result, nil
}

func toV2(doc *schema.Document, now int64) {
	if doc.UserData.CustomStyle == nil {
		doc.UserData.CustomStyle = schema.CustomStyle{}
	}

	for i := range doc.TaskTemplates {
		t := &doc.TaskTemplates[i]
		if !t.IsPreset && !t.HasPresetFlag() {
			t.IsPreset = catalog.IsPresetTemplateID(t.ID)
		}
		if t.CreatedAt == 0 {
			t.CreatedAt = now
		}
	}

	for i := range doc.Products {
		p := &doc.Products[i]
		if !p.IsPreset && !p.HasPresetFlag() {
			p.IsPreset = catalog.IsPresetProductID(p.ID)
		}
		if p.CreatedAt == 0 {
			p.CreatedAt = now
		}
	}
}

func toV3(doc *schema.Document, _ int64) {
	for i := range doc.Products {
		p := &doc.Products[i]
		if p.MinQuantity <= 0 {
			p.MinQuantity = catalog.InferMinQuantity(*p)
		}
	}
}
