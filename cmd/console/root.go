package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigFile string
	LogLevel   string
	Demo       bool
}

// errReported marks a failure the user has already been told about.
type errReported struct {
	err error
}

func (e errReported) Error() string { return e.err.Error() }

func (e errReported) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return errReported{err: err}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "console",
		Short:         "ERP admin screens in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./console.toml or ~/.erp/console.toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&opts.Demo, "demo", false, "show sample records when a list fails to load")

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newCreateCmd(opts))
	cmd.AddCommand(newEditCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newSessionCmd(opts))
	cmd.AddCommand(newScreensCmd(opts))
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		var r errReported
		if !errors.As(err, &r) {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}
