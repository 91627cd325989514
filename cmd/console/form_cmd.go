package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/erp/console/internal/application/form"
	"github.com/erp/console/internal/application/page"
	"github.com/erp/console/internal/interfaces/view"
)

// parseAssignments turns repeated --set name=value flags into form values.
// Values may contain '=' and ','.
func parseAssignments(assignments []string) (map[string]string, error) {
	values := make(map[string]string, len(assignments))
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--set expects name=value, got %q", a)
		}
		values[name] = value
	}
	return values, nil
}

func newCreateCmd(root *rootOptions) *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:   "create <screen> --set name=value...",
		Short: "Fill in a blank form and submit it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(assignments)
			if err != nil {
				return err
			}
			return runSubmit(cmd, root, args[0], func(ctx context.Context, p *page.Page) error {
				return p.Create(ctx, values)
			})
		},
	}
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "field value, e.g. --set price=19.99 (repeatable)")
	return cmd
}

func newEditCmd(root *rootOptions) *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:   "edit <screen> <id> --set name=value...",
		Short: "Open a record in the form, change fields and submit it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(assignments)
			if err != nil {
				return err
			}
			id := args[1]
			return runSubmit(cmd, root, args[0], func(ctx context.Context, p *page.Page) error {
				if err := p.Open(ctx); err != nil {
					return err
				}
				return p.Edit(ctx, id, values)
			})
		},
	}
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "field value, e.g. --set status=SHIPPED (repeatable)")
	return cmd
}

func runSubmit(cmd *cobra.Command, root *rootOptions, screen string, submit func(context.Context, *page.Page) error) error {
	a, err := newApp(cmd, root)
	if err != nil {
		return err
	}
	defer a.close()

	schema, err := a.screen(screen)
	if err != nil {
		return err
	}
	ctx := a.context(cmd.Context())
	p := a.page(schema, false)

	err = submit(ctx, p)
	var invalid form.ValidationErrors
	switch {
	case err == nil:
		return view.Table(a.out, p.Render(ctx))
	case errors.As(err, &invalid):
		fmt.Fprintf(a.errOut, "Cannot save %s:\n", strings.ToLower(schema.Singular))
		if werr := view.ValidationErrors(a.errOut, invalid); werr != nil {
			return werr
		}
		return reported(err)
	case errors.Is(err, form.ErrUnknownField), errors.Is(err, form.ErrDerivedField):
		return err
	default:
		return reported(err)
	}
}
