package merge

import (
	"fmt"

	"github.com/studyreward/rewardbook/internal/ledger"
	"github.com/studyreward/rewardbook/internal/schema"
)

// refTable resolves the entities one record type can refer to.
type refTable struct {
	remap  map[string]string
	known  idSet
	byName map[string]string
}

func newRefTable(remap map[string]string) *refTable {
	return &refTable{remap: remap, known: make(idSet), byName: make(map[string]string)}
}

func (t *refTable) add(id, name string) {
	t.known.add(id)
	if _, ok := t.byName[name]; !ok {
		t.byName[name] = id
	}
}

func recordKey(r schema.PointRecord) string {
	related := r.RelatedID
	if related == "" {
		related = "none"
	}
	return fmt.Sprintf("%s|%s|%d", r.Type, related, r.Timestamp)
}

// mergeRecords merges the ledgers of out and in against the already merged
// catalogs of out. The result is ordered newest first and is not trimmed.
func (m *merger) mergeRecords(out, in *schema.Document, templateRemap, productRemap map[string]string) []schema.PointRecord {
	templates := newRefTable(templateRemap)
	for _, t := range out.TaskTemplates {
		templates.add(t.ID, t.Name)
	}
	products := newRefTable(productRemap)
	for _, p := range out.Products {
		products.add(p.ID, p.Name)
	}

	local := out.UserData.PointRecords
	records := make([]schema.PointRecord, 0, len(local)+len(in.UserData.PointRecords))
	byKey := make(map[string]int, cap(records))
	ids := make(idSet, cap(records))

	for _, r := range local {
		if ledger.IsSynthetic(r) {
			continue
		}
		k := recordKey(r)
		if _, ok := byKey[k]; !ok {
			byKey[k] = len(records)
		}
		ids.add(r.ID)
		records = append(records, r)
	}

	for _, r := range in.UserData.PointRecords {
		if ledger.IsSynthetic(r) {
			continue
		}

		refs := templates
		if r.Type == schema.RecordSpend {
			refs = products
		}
		r.RelatedID = m.relink(r, refs)

		k := recordKey(r)
		if i, ok := byKey[k]; ok {
			cur := records[i]
			var d diffs
			d.num("amount", cur.Amount, r.Amount)
			d.str("description", cur.Description, r.Description)
			if len(d) > 0 {
				related := r.RelatedID
				if related == "" {
					related = "none"
				}
				m.conflict("record", recordLabel(string(r.Type), related, r.Timestamp), d)
				continue
			}
			m.stats.Merged++
			continue
		}

		if r.ID == "" || ids.has(r.ID) {
			r.ID = m.engine.newID()
		}
		ids.add(r.ID)
		byKey[k] = len(records)
		records = append(records, r)
		m.stats.Added++
	}

	ledger.SortNewestFirst(records)
	return records
}

// relink returns the id an imported record should refer to in the merged
// document. Remapped ids win, then ids that already resolve, then the entity
// name recorded on the record. A reference nothing resolves is left as is.
func (m *merger) relink(r schema.PointRecord, refs *refTable) string {
	if r.RelatedID != "" {
		if id, ok := refs.remap[r.RelatedID]; ok {
			return id
		}
		if refs.known.has(r.RelatedID) {
			return r.RelatedID
		}
	}

	if name, ok := ledger.EntityName(r); ok {
		if id, ok := refs.byName[name]; ok {
			m.relinked++
			return id
		}
	}

	return r.RelatedID
}
