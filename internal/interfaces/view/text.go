// Package view prints render trees for a terminal.
package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/erp/console/internal/application/form"
	"github.com/erp/console/internal/application/listing"
	"github.com/erp/console/internal/domain/capability"
)

// Table writes t as aligned columns followed by a page footer.
func Table(w io.Writer, t listing.Table) error {
	if t.Title != "" {
		if _, err := fmt.Fprintf(w, "%s\n", t.Title); err != nil {
			return err
		}
	}
	if len(t.Toolbar) > 0 {
		if _, err := fmt.Fprintf(w, "[%s]\n", labels(t.Toolbar)); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"ID"}
	for _, c := range t.Columns {
		header = append(header, strings.ToUpper(c.Title))
	}
	header = append(header, "ACTIONS")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range t.Rows {
		cells := append([]string{r.ID}, r.Cells...)
		cells = append(cells, labels(r.Actions))
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(t.Rows) == 0 && t.Empty != "" {
		if _, err := fmt.Fprintln(w, t.Empty); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Page %d of %d (%d rows)\n", t.Page.Number, t.Page.TotalPages, t.Page.TotalRows)
	return err
}

func labels(actions []listing.Action) string {
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, a.Label)
	}
	return strings.Join(parts, " | ")
}

// Capabilities writes the allowed actions, e.g. "view, create, edit".
func Capabilities(w io.Writer, set capability.Set) error {
	parts := make([]string, 0, 4)
	for _, a := range set.Actions() {
		parts = append(parts, string(a))
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, ", "))
	return err
}

// ValidationErrors writes one line per invalid field.
func ValidationErrors(w io.Writer, errs form.ValidationErrors) error {
	for _, fe := range errs {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", fe.Label, fe.Message); err != nil {
			return err
		}
	}
	return nil
}

// KeyValues writes aligned "key  value" pairs in the given order.
func KeyValues(w io.Writer, pairs [][2]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, kv := range pairs {
		fmt.Fprintf(tw, "%s\t%s\n", kv[0], kv[1])
	}
	return tw.Flush()
}
