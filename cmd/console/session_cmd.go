package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/erp/console/internal/domain/session"
	"github.com/erp/console/internal/interfaces/view"
)

func newSessionCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or replace the stored login session",
	}
	cmd.AddCommand(newSessionShowCmd(root))
	cmd.AddCommand(newSessionImportCmd(root))
	cmd.AddCommand(newSessionLogoutCmd(root))
	return cmd
}

func newSessionShowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current actor, role and token expiry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := a.context(cmd.Context())
			cur := a.session.Current(ctx)
			if cur.Token == "" {
				fmt.Fprintln(a.out, "Not logged in.")
				return nil
			}
			expires := "unknown"
			if exp, ok := session.TokenExpiry(cur.Token); ok {
				expires = exp.Format(time.RFC3339)
				if time.Now().After(exp) {
					expires += " (expired)"
				}
			}
			return view.KeyValues(a.out, [][2]string{
				{"User", orDash(cur.DisplayName)},
				{"User ID", orDash(cur.ActorID)},
				{"Role", cur.RoleName},
				{"Roles", strings.Join(a.session.Roles(ctx), ", ")},
				{"Token", maskToken(cur.Token)},
				{"Expires", expires},
			})
		},
	}
}

type importOptions struct {
	Token  string
	UserID string
	Name   string
	Roles  []string
}

func newSessionImportCmd(root *rootOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import --token <jwt> [--role ADMIN]",
		Short: "Store a session obtained from the login page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.Token) == "" {
				return errors.New("--token is required")
			}

			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := a.context(cmd.Context())
			roles := make([]string, 0, len(opts.Roles))
			for _, r := range opts.Roles {
				if r = strings.TrimSpace(r); r != "" {
					roles = append(roles, strings.ToUpper(r))
				}
			}
			err = a.session.Login(ctx, session.Session{
				ActorID:     opts.UserID,
				DisplayName: opts.Name,
				Token:       strings.TrimSpace(opts.Token),
			}, roles)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Session stored for role %s.\n", a.session.Role(ctx))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Token, "token", "", "bearer token issued at login")
	cmd.Flags().StringVar(&opts.UserID, "user-id", "", "id of the logged in user")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name of the logged in user")
	cmd.Flags().StringSliceVar(&opts.Roles, "role", nil, "role names, first one is effective (repeatable)")

	return cmd
}

func newSessionLogoutCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, root)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.session.Clear(a.context(cmd.Context())); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out.")
			return nil
		},
	}
}

func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + token[len(token)-6:]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
