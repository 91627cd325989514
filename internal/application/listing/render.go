package listing

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/erp/console/internal/domain/capability"
	"github.com/erp/console/internal/domain/entity"
	"github.com/erp/console/internal/domain/filter"
)

// Currency is the ISO code money columns are displayed in.
var Currency = money.USD

// Table is the render tree of one list screen. It holds display strings
// only, so two renders of the same state are equal.
type Table struct {
	Resource string
	Title    string
	State    State
	Columns  []Column
	Rows     []Row
	Toolbar  []Action
	Page     filter.Page
	Empty    string // shown instead of rows when the view is empty
}

// Column is a table header.
type Column struct {
	Field string
	Title string
}

// Row is one rendered record.
type Row struct {
	ID      string
	Cells   []string
	Actions []Action
}

// Action is a control the user can trigger.
type Action struct {
	Kind   capability.Action
	Label  string
	Target string // record id, empty for toolbar actions
}

// ActionKinds returns the kinds of the row's actions, in order.
func (r Row) ActionKinds() []capability.Action {
	out := make([]capability.Action, 0, len(r.Actions))
	for _, a := range r.Actions {
		out = append(out, a.Kind)
	}
	return out
}

// HasAction reports whether any row or toolbar control is of kind.
func (t Table) HasAction(kind capability.Action) bool {
	for _, a := range t.Toolbar {
		if a.Kind == kind {
			return true
		}
	}
	for _, r := range t.Rows {
		for _, a := range r.Actions {
			if a.Kind == kind {
				return true
			}
		}
	}
	return false
}

var actionLabels = map[capability.Action]string{
	capability.ActionView:   "View",
	capability.ActionCreate: "New",
	capability.ActionEdit:   "Edit",
	capability.ActionDelete: "Delete",
}

func buildTable(s *entity.Schema, state State, rows entity.WorkingSet, page filter.Page, caps capability.Set) Table {
	t := Table{
		Resource: s.Name,
		Title:    s.Title,
		State:    state,
		Page:     page,
	}
	for _, c := range s.Columns {
		t.Columns = append(t.Columns, Column{Field: c.Field, Title: c.Title})
	}
	if caps.Has(capability.ActionCreate) {
		t.Toolbar = append(t.Toolbar, Action{Kind: capability.ActionCreate, Label: actionLabels[capability.ActionCreate]})
	}

	for _, rec := range rows {
		row := Row{ID: rec.ID()}
		for _, c := range s.Columns {
			row.Cells = append(row.Cells, FormatCell(rec[c.Field], c.Format))
		}
		for _, a := range caps.Actions() {
			if a == capability.ActionCreate {
				continue
			}
			row.Actions = append(row.Actions, Action{Kind: a, Label: actionLabels[a], Target: row.ID})
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 {
		t.Empty = fmt.Sprintf("No %s found", s.Name)
	}
	return t
}

// FormatCell renders a record value for a column.
func FormatCell(v any, format entity.ColumnFormat) string {
	text := entity.FormatValue(v)
	switch format {
	case entity.FormatMoney:
		return formatMoney(text)
	case entity.FormatDate:
		if day, ok := filter.ParseDay(text); ok {
			return day.Format(filter.DateLayout)
		}
	}
	return text
}

func formatMoney(text string) string {
	if text == "" {
		return ""
	}
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return text
	}
	cur := money.GetCurrency(Currency)
	if cur == nil {
		return text
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, Currency).Display()
}
