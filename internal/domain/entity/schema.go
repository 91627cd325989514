package entity

import (
	"errors"
	"fmt"
	"strings"
)

// FieldKind tells the form how to parse and validate an input value.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindDecimal   FieldKind = "decimal"   // non-negative amount, sent as a JSON number
	KindInteger   FieldKind = "integer"   // non-negative whole number
	KindReference FieldKind = "reference" // numeric foreign key id, sent as a JSON number
	KindEmail     FieldKind = "email"
	KindDate      FieldKind = "date" // YYYY-MM-DD
	KindBool      FieldKind = "bool"
	KindSecret    FieldKind = "secret" // never populated on edit
)

// ColumnFormat selects how a column value is displayed.
type ColumnFormat string

const (
	FormatPlain ColumnFormat = ""
	FormatMoney ColumnFormat = "money"
	FormatDate  ColumnFormat = "date"
)

// FallbackPolicy decides what a list shows when a load fails.
type FallbackPolicy int

const (
	// FallbackStale keeps the previous working set visible.
	FallbackStale FallbackPolicy = iota
	// FallbackSample replaces the working set with the screen's demo records.
	FallbackSample
)

func (p FallbackPolicy) String() string {
	if p == FallbackSample {
		return "sample"
	}
	return "stale"
}

// Field is one input of a screen's create/edit form.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	Default  string
	Options  []string // allowed values, empty means free input
}

// Column is one column of a screen's list view.
type Column struct {
	Field  string
	Title  string
	Format ColumnFormat
}

// Derived is a field computed as the product of other fields,
// e.g. total = quantity x unitPrice.
type Derived struct {
	Target  string
	Factors []string
}

// ServerSearch describes a backend name-search endpoint.
type ServerSearch struct {
	Path  string // e.g. /products/search
	Param string // e.g. name
}

// Schema describes one admin screen.
type Schema struct {
	Name            string // resource name, also the REST sub-path
	Title           string
	Singular        string // e.g. "Product", used in messages
	Columns         []Column
	SearchFields    []string
	StatusField     string
	DateField       string
	ForeignKeys     []string
	Fields          []Field
	Derived         []Derived
	PrivilegedRoles []string
	Fallback        FallbackPolicy
	Search          *ServerSearch
	Samples         WorkingSet
}

// Path returns the collection path relative to the API base path.
func (s *Schema) Path() string {
	return "/" + strings.Trim(s.Name, "/")
}

// ItemPath returns the path of one record.
func (s *Schema) ItemPath(id string) string {
	return s.Path() + "/" + id
}

// Field looks up a form field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IsDerived reports whether name is computed rather than entered.
func (s *Schema) IsDerived(name string) bool {
	for _, d := range s.Derived {
		if d.Target == name {
			return true
		}
	}
	return false
}

// Validate checks that the schema is internally consistent.
func (s *Schema) Validate() error {
	if s.Name == "" {
		return errors.New("schema name is required")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema %s: at least one column is required", s.Name)
	}
	for _, d := range s.Derived {
		if len(d.Factors) == 0 {
			return fmt.Errorf("schema %s: derived field %s has no factors", s.Name, d.Target)
		}
		for _, f := range d.Factors {
			if _, ok := s.Field(f); !ok {
				return fmt.Errorf("schema %s: derived field %s uses unknown field %s", s.Name, d.Target, f)
			}
		}
	}
	if s.Fallback == FallbackSample && len(s.Samples) == 0 {
		return fmt.Errorf("schema %s: sample fallback requires sample records", s.Name)
	}
	return nil
}
