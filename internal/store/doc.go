// Package store is the single entry point to the persisted document.
//
// Every caller goes through a Manager. Load returns a document that has been
// migrated to the current schema, had its inventory precision repaired and
// its presets reconciled with the built-in catalog; any repair is written
// back before Load returns. Update runs a read-modify-write cycle under the
// Manager's lock, so concurrent callers (the HTTP server, the inbox watcher,
// the backup scheduler) never interleave half-applied changes.
//
// Export and Import exchange the whole document inside an envelope:
//
//	{"version": "1.2.0", "exportTime": 1720000000000, "data": {...}}
//
// Import merges the envelope's document into the local one (see package
// merge) and never persists a partial result.
package store
