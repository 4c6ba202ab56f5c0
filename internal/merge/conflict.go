package merge

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldDiff is one field that differs between the local and imported copy.
type FieldDiff struct {
	Field    string
	Local    string
	Imported string
}

func (d FieldDiff) String() string {
	return fmt.Sprintf("%s: local %s vs imported %s", d.Field, d.Local, d.Imported)
}

// Conflict describes one entity that exists on both sides with different
// content.
type Conflict struct {
	Kind   string // "template", "product" or "record"
	Name   string
	Fields []FieldDiff
}

func (c Conflict) String() string {
	parts := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%s %q (%s)", c.Kind, c.Name, strings.Join(parts, ", "))
}

// ConflictError aborts a merge. It lists every conflict found.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = c.String()
	}
	return fmt.Sprintf("%d conflict(s), delete the conflicting items and retry: %s",
		len(e.Conflicts), strings.Join(parts, "; "))
}

// IsConflict reports whether err is or wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// diffs accumulates field differences.
type diffs []FieldDiff

func (d *diffs) str(field, local, imported string) {
	if local != imported {
		*d = append(*d, FieldDiff{Field: field, Local: strconv.Quote(local), Imported: strconv.Quote(imported)})
	}
}

func (d *diffs) num(field string, local, imported float64) {
	if local != imported {
		*d = append(*d, FieldDiff{Field: field, Local: formatDecimal(local), Imported: formatDecimal(imported)})
	}
}

func (d *diffs) flag(field string, local, imported bool) {
	if local != imported {
		*d = append(*d, FieldDiff{Field: field, Local: strconv.FormatBool(local), Imported: strconv.FormatBool(imported)})
	}
}

// formatDecimal prints n with at least one fractional digit so that 5 reads
// as 5.0 next to 4.8.
func formatDecimal(n float64) string {
	s := strconv.FormatFloat(n, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// recordLabel names a point record in conflict messages.
func recordLabel(typ, relatedID string, ts int64) string {
	return fmt.Sprintf("%s/%s @ %s", typ, relatedID, time.UnixMilli(ts).UTC().Format(time.RFC3339))
}
