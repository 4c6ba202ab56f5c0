// Package merge reconciles an imported document into the local one.
//
// Identity
//
// Templates and products are matched by name, not id. Two installs that both
// created a "Reading" task under different generated ids describe the same
// thing, and the name is the only key they share. Ids stay the reference
// mechanism inside a document: whenever an imported entry is matched to a
// local one, the local id is kept and every imported reference to the old id
// is rewritten through a remap table.
//
// Point records are matched by (type, relatedId or "none", timestamp) after
// their relatedId has been repaired against the merged catalog.
//
// Conflicts
//
// An entry present on both sides with different content cannot be merged
// automatically. Every such difference across the whole import is collected
// into a single *ConflictError and nothing is returned. Callers persist the
// merged document only when Merge succeeds, so an import is all or nothing.
//
// Derived state
//
// The balance and the inventory of the merged document are never copied from
// either input. They are recomputed from the merged ledger:
//
//	points    = sum(earn) - sum(spend)
//	inventory = spend records grouped by (product name, unit)
//
// Executions are session history and always come from the local document.
package merge
