package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/erp/console/internal/interfaces/view"
)

func newScreensCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "screens",
		Short: "List the screens and what the current role may do on each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			role := a.session.Role(a.context(cmd.Context()))
			pairs := [][2]string{{"SCREEN", "ACTIONS (" + role + ")"}}
			for _, s := range a.catalog.All() {
				actions := a.policy.For(role, s.Name).Actions()
				parts := make([]string, 0, len(actions))
				for _, act := range actions {
					parts = append(parts, string(act))
				}
				pairs = append(pairs, [2]string{s.Name, strings.Join(parts, ", ")})
			}
			return view.KeyValues(a.out, pairs)
		},
	}
}
