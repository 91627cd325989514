// Package filter narrows a working set to the rows a screen shows.
// Everything here is pure: the input working set is never modified.
package filter

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/erp/console/internal/domain/entity"
)

// DateLayout is the calendar-day layout used for range bounds.
const DateLayout = "2006-01-02"

// DateRange bounds a date field by calendar day, both ends inclusive.
// A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Criteria is what the user asked to see.
type Criteria struct {
	SearchText  string
	Status      string
	DateRange   DateRange
	ForeignKeys map[string]string
}

// IsZero reports whether c filters nothing.
func (c Criteria) IsZero() bool {
	if strings.TrimSpace(c.SearchText) != "" || c.Status != "" || !c.DateRange.IsZero() {
		return false
	}
	for _, v := range c.ForeignKeys {
		if v != "" {
			return false
		}
	}
	return true
}

// Fields names the record fields each criterion applies to.
type Fields struct {
	Search []string
	Status string
	Date   string
}

// FieldsOf extracts the filterable fields from a schema.
func FieldsOf(s *entity.Schema) Fields {
	return Fields{Search: s.SearchFields, Status: s.StatusField, Date: s.DateField}
}

// Apply returns the records of ws matching c, in their original order.
func Apply(ws entity.WorkingSet, c Criteria, f Fields) entity.WorkingSet {
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(c.SearchText))

	out := make(entity.WorkingSet, 0, len(ws))
	for _, rec := range ws {
		if needle != "" && !matchesText(rec, f.Search, needle, folder) {
			continue
		}
		if c.Status != "" && f.Status != "" && !strings.EqualFold(rec.String(f.Status), c.Status) {
			continue
		}
		if !matchesForeignKeys(rec, c.ForeignKeys) {
			continue
		}
		if !c.DateRange.IsZero() && !inRange(rec.String(f.Date), c.DateRange) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchesText(rec entity.Record, fields []string, needle string, folder cases.Caser) bool {
	for _, name := range fields {
		if strings.Contains(folder.String(rec.String(name)), needle) {
			return true
		}
	}
	return false
}

func matchesForeignKeys(rec entity.Record, fks map[string]string) bool {
	for field, want := range fks {
		if want == "" {
			continue
		}
		if referenceID(rec[field]) != want {
			return false
		}
	}
	return true
}

// referenceID accepts both flat ids (categoryId: 1) and nested
// references (category: {id: 1, name: ...}).
func referenceID(v any) string {
	if m, ok := v.(map[string]any); ok {
		return entity.FormatValue(m["id"])
	}
	return entity.FormatValue(v)
}

func inRange(raw string, r DateRange) bool {
	day, ok := ParseDay(raw)
	if !ok {
		return false
	}
	if !r.From.IsZero() && day.Before(truncateDay(r.From)) {
		return false
	}
	if !r.To.IsZero() && day.After(truncateDay(r.To)) {
		return false
	}
	return true
}

// ParseDay parses a date or timestamp and truncates it to its calendar day.
func ParseDay(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
