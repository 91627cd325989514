package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erp/console/internal/application/listing"
	"github.com/erp/console/internal/domain/filter"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/interfaces/view"
)

type listOptions struct {
	Search      string
	Status      string
	From        string
	To          string
	ForeignKeys map[string]string
	Page        int
}

func (o listOptions) criteria() (filter.Criteria, error) {
	c := filter.Criteria{Status: o.Status, ForeignKeys: o.ForeignKeys}
	if o.From != "" {
		day, ok := filter.ParseDay(o.From)
		if !ok {
			return c, fmt.Errorf("--from must be a date (YYYY-MM-DD), got %q", o.From)
		}
		c.DateRange.From = day
	}
	if o.To != "" {
		day, ok := filter.ParseDay(o.To)
		if !ok {
			return c, fmt.Errorf("--to must be a date (YYYY-MM-DD), got %q", o.To)
		}
		c.DateRange.To = day
	}
	return c, nil
}

func newListCmd(root *rootOptions) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list <screen>",
		Short: "Load a screen and print one page of its list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := opts.criteria()
			if err != nil {
				return err
			}

			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			schema, err := a.screen(args[0])
			if err != nil {
				return err
			}
			ctx := a.context(cmd.Context())
			p := a.page(schema, false)

			loadErr := p.Open(ctx)
			if errors.Is(loadErr, client.ErrUnauthorized) {
				return reported(loadErr)
			}
			p.List.ApplyFilter(criteria)
			if opts.Search != "" {
				if err := p.List.Search(ctx, opts.Search); err != nil && loadErr == nil {
					loadErr = err
				}
			}
			p.List.SetPage(opts.Page)

			if err := view.Table(a.out, p.Render(ctx)); err != nil {
				return err
			}
			if p.List.State() == listing.StateLoadError {
				return reported(p.List.Err())
			}
			return reported(loadErr)
		},
	}

	cmd.Flags().StringVar(&opts.Search, "search", "", "search text (name search on products and categories)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "exact status, e.g. PENDING")
	cmd.Flags().StringVar(&opts.From, "from", "", "first day of the date range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.To, "to", "", "last day of the date range (YYYY-MM-DD)")
	cmd.Flags().StringToStringVar(&opts.ForeignKeys, "fk", nil, "foreign key filter, e.g. --fk categoryId=3")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")

	return cmd
}
