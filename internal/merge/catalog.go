package merge

import "github.com/studyreward/rewardbook/internal/schema"

// catalogOps exposes the fields mergeCatalog needs from a catalog entry.
type catalogOps[T any] struct {
	kind      string
	name      func(T) string
	id        func(T) string
	setID     func(*T, string)
	preset    func(T) bool
	createdAt func(T) int64
	diff      func(local, imported T) []FieldDiff
}

var templateOps = catalogOps[schema.TaskTemplate]{
	kind:      "template",
	name:      func(t schema.TaskTemplate) string { return t.Name },
	id:        func(t schema.TaskTemplate) string { return t.ID },
	setID:     func(t *schema.TaskTemplate, id string) { t.ID = id },
	preset:    func(t schema.TaskTemplate) bool { return t.IsPreset },
	createdAt: func(t schema.TaskTemplate) int64 { return t.CreatedAt },
	diff: func(local, imported schema.TaskTemplate) []FieldDiff {
		var d diffs
		d.str("description", local.Description, imported.Description)
		d.flag("isPreset", local.IsPreset, imported.IsPreset)
		return d
	},
}

var productOps = catalogOps[schema.Product]{
	kind:      "product",
	name:      func(p schema.Product) string { return p.Name },
	id:        func(p schema.Product) string { return p.ID },
	setID:     func(p *schema.Product, id string) { p.ID = id },
	preset:    func(p schema.Product) bool { return p.IsPreset },
	createdAt: func(p schema.Product) int64 { return p.CreatedAt },
	diff: func(local, imported schema.Product) []FieldDiff {
		var d diffs
		d.str("description", local.Description, imported.Description)
		d.num("price", local.Price, imported.Price)
		d.num("minQuantity", local.MinQuantity, imported.MinQuantity)
		d.str("unit", local.Unit, imported.Unit)
		d.flag("isPreset", local.IsPreset, imported.IsPreset)
		return d
	},
}

// mergeCatalog merges one catalog by name and returns the merged entries
// together with a table mapping every imported id to its final id.
//
// Local presets are authoritative: imported presets are never copied, and an
// imported user entry that shares a preset's name is folded into the preset.
func mergeCatalog[T any](m *merger, ops catalogOps[T], local, imported []T) ([]T, map[string]string) {
	remap := make(map[string]string, len(imported))
	ids := make(idSet, len(local)+len(imported))
	presetByID := make(map[string]T)
	presetByName := make(map[string]T)
	var presets []T

	idx := newNameIndex[T](len(local) + len(imported))
	for _, e := range local {
		ids.add(ops.id(e))
		if ops.preset(e) {
			presets = append(presets, e)
			presetByID[ops.id(e)] = e
			presetByName[ops.name(e)] = e
			continue
		}
		if _, ok := idx.get(ops.name(e)); !ok {
			idx.put(ops.name(e), e)
		}
	}

	for _, e := range imported {
		name, importedID := ops.name(e), ops.id(e)

		if ops.preset(e) {
			if p, ok := presetByID[importedID]; ok {
				remap[importedID] = ops.id(p)
			} else if p, ok := presetByName[name]; ok {
				remap[importedID] = ops.id(p)
			}
			continue
		}

		if p, ok := presetByName[name]; ok {
			remap[importedID] = ops.id(p)
			m.stats.Merged++
			continue
		}

		cur, ok := idx.get(name)
		if !ok {
			if importedID == "" || ids.has(importedID) {
				ops.setID(&e, m.engine.newID())
			}
			ids.add(ops.id(e))
			idx.put(name, e)
			remap[importedID] = ops.id(e)
			m.stats.Added++
			continue
		}

		if d := ops.diff(cur, e); len(d) > 0 {
			m.conflict(ops.kind, name, d)
			continue
		}

		remap[importedID] = ops.id(cur)
		if ops.createdAt(e) > ops.createdAt(cur) {
			ops.setID(&e, ops.id(cur))
			idx.put(name, e)
			m.stats.Updated++
		} else {
			m.stats.Merged++
		}
	}

	for _, p := range presets {
		idx.put(ops.name(p), p)
	}

	return idx.values(), remap
}
