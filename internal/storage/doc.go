// Package storage persists the application document.
//
// A Store holds the document under a single key and keeps a copy of the
// previously written value under a backup key, so the last write can be undone
// with Restore. The same Store also exposes the four keys used by releases
// that predated the single-document layout so the loader can convert them.
//
// Three backends are available:
//   - File: one JSON file per key in a directory, written atomically
//   - SQLite: a key/value table in an embedded SQLite database (WAL mode)
//   - Memory: an in-process map, used by tests and ephemeral sessions
//
// Reads never fail on damaged data. A value that cannot be decoded is logged
// and reported as absent, so the caller falls back to defaults. Errors from
// the backend itself (permissions, a locked database) are returned.
package storage
