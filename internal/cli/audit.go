// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/stagecraft/internal/audit"
)

func (a *App) auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the log of executed pipelines",
	}

	verify := &cobra.Command{
		Use:   "verify",
		Short: "Check the audit log's hash chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := audit.Verify(a.cfg.Audit.Path); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "audit verification FAILED: %v\n", err)
				return &ExitError{Code: 1}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "audit log integrity verified")
			return nil
		},
	}

	var n int
	tail := &cobra.Command{
		Use:     "tail",
		Aliases: []string{"show"},
		Short:   "Print the most recent audit entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := audit.Tail(a.cfg.Audit.Path, n)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no audit entries")
				return nil
			}
			for _, e := range entries {
				if err := writeJSON(cmd, e); err != nil {
					return err
				}
			}
			return nil
		},
	}
	tail.Flags().IntVarP(&n, "lines", "n", 20, "number of entries")

	cmd.AddCommand(verify, tail)
	return cmd
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stagecraft %s\n", a.version())
		},
	}
}

func (a *App) version() string {
	if a.Version == "" {
		return "dev"
	}
	return a.Version
}
