package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erp/console/internal/application/page"
	"github.com/erp/console/internal/infrastructure/client"
	"github.com/erp/console/internal/interfaces/view"
)

func newDeleteCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <screen> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			p := a.page(schema, yes)

			// A failed load only costs the prompt the record's name, unless
			// the session is gone.
			if err := p.Open(ctx); errors.Is(err, client.ErrUnauthorized) {
				return reported(err)
			}

			err = p.Delete(ctx, args[1])
			switch {
			case err == nil:
				return view.Table(a.out, p.Render(ctx))
			case errors.Is(err, page.ErrCancelled):
				fmt.Fprintln(a.errOut, "Nothing deleted.")
				return nil
			default:
				return reported(err)
			}
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
