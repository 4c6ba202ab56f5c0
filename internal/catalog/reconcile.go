package catalog

import (
	"slices"

	"github.com/studyreward/rewardbook/internal/schema"
)

// Reconcile brings the preset entries of doc in line with the built-in
// catalog and reports whether anything changed. Entries with isPreset=false
// are never modified; they are only dropped when they duplicate another
// entry's name.
func Reconcile(doc *schema.Document) bool {
	templates, tChanged := ReconcileTemplates(doc.TaskTemplates)
	products, pChanged := ReconcileProducts(doc.Products)
	doc.TaskTemplates = templates
	doc.Products = products
	return tChanged || pChanged
}

// ReconcileTemplates replaces stored preset templates with the built-in
// definitions, appends missing built-ins and removes duplicate names.
func ReconcileTemplates(stored []schema.TaskTemplate) ([]schema.TaskTemplate, bool) {
	builtins := Templates()
	byID := make(map[string]schema.TaskTemplate, len(builtins))
	for _, t := range builtins {
		byID[t.ID] = t
	}

	merged := make([]schema.TaskTemplate, 0, len(stored)+len(builtins))
	emitted := make(map[string]bool)
	for _, t := range stored {
		if !t.IsPreset {
			merged = append(merged, t)
			continue
		}
		if b, ok := byID[t.ID]; ok && !emitted[t.ID] {
			merged = append(merged, b)
			emitted[t.ID] = true
		}
	}
	for _, b := range builtins {
		if !emitted[b.ID] {
			merged = append(merged, b)
		}
	}

	out := dedupe(merged, func(t schema.TaskTemplate) string { return t.Name },
		func(candidate, current schema.TaskTemplate) bool {
			return candidate.IsPreset && !current.IsPreset
		})
	return out, !slices.EqualFunc(stored, out, schema.TaskTemplate.Equal)
}

// ReconcileProducts replaces stored preset products with the built-in
// definitions, appends missing built-ins and removes duplicate names. On a
// name collision a preset beats a user entry; between user entries the one
// with the smaller minQuantity is kept.
func ReconcileProducts(stored []schema.Product) ([]schema.Product, bool) {
	builtins := Products()
	byID := make(map[string]schema.Product, len(builtins))
	for _, p := range builtins {
		byID[p.ID] = p
	}

	merged := make([]schema.Product, 0, len(stored)+len(builtins))
	emitted := make(map[string]bool)
	for _, p := range stored {
		if !p.IsPreset {
			merged = append(merged, p)
			continue
		}
		if b, ok := byID[p.ID]; ok && !emitted[p.ID] {
			merged = append(merged, b)
			emitted[p.ID] = true
		}
	}
	for _, b := range builtins {
		if !emitted[b.ID] {
			merged = append(merged, b)
		}
	}

	out := dedupe(merged, func(p schema.Product) string { return p.Name },
		func(candidate, current schema.Product) bool {
			if candidate.IsPreset != current.IsPreset {
				return candidate.IsPreset
			}
			if current.IsPreset {
				return false
			}
			return candidate.MinQuantity < current.MinQuantity
		})
	return out, !slices.EqualFunc(stored, out, schema.Product.Equal)
}

// dedupe keeps one entry per name at the position of the name's first
// occurrence. better(candidate, current) decides whether a later entry
// replaces the one already kept.
func dedupe[T any](items []T, name func(T) string, better func(candidate, current T) bool) []T {
	out := make([]T, 0, len(items))
	pos := make(map[string]int, len(items))
	for _, item := range items {
		n := name(item)
		if i, ok := pos[n]; ok {
			if better(item, out[i]) {
				out[i] = item
			}
			continue
		}
		pos[n] = len(out)
		out = append(out, item)
	}
	return out
}
