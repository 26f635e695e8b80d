// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/stagecraft/internal/stage"
)

func (a *App) stagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages [NAME]",
		Short: "List stage types, or show one stage's fields",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, p := range append(a.reg.All(), stage.Generic) {
					fmt.Fprintf(w, "%-12s %s\n", p.CommandName(), p.Description())
				}
				return nil
			}

			name := args[0]
			p, ok := a.reg.Lookup(name)
			if name == stage.GenericType {
				p, ok = stage.Generic, true
			}
			if !ok {
				msg := fmt.Sprintf("unknown stage %q", name)
				if s := a.reg.Suggest(name); s != "" {
					msg += fmt.Sprintf("; did you mean %q?", s)
				}
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
				return &ExitError{Code: 1}
			}
			fmt.Fprintf(w, "%s: %s\n", p.CommandName(), p.Description())
			if schema := p.Schema(); schema != nil {
				return writeJSON(cmd, schema)
			}
			return nil
		},
	}
}
