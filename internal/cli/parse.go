// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/session"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

func (a *App) parseCmd() *cobra.Command {
	var file string
	var asTree bool
	cmd := &cobra.Command{
		Use:   "parse [TEXT|-]",
		Short: "Print a pipeline's stages as JSON",
		Long: `Parses pipeline text and prints its stage list as JSON, one object per
stage with its type, fields and operator. With --ast the full syntax tree
is printed instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file, args)
			if err != nil {
				return err
			}
			s := a.session()
			if err := s.SetText(text); err != nil {
				return err
			}
			if asTree {
				data, err := ast.Encode(s.Script())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
				return nil
			}
			return writeJSON(cmd, s.Modules())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the pipeline from a file (- for stdin)")
	cmd.Flags().BoolVar(&asTree, "ast", false, "print the syntax tree")
	return cmd
}

func (a *App) compileCmd() *cobra.Command {
	var fromTree bool
	cmd := &cobra.Command{
		Use:   "compile [FILE|-]",
		Short: "Render a JSON stage list as pipeline text",
		Long: `Reads a JSON stage list, as printed by parse, and prints the pipeline
text it describes. With --ast the input is a syntax tree instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := "-"
			if len(args) == 1 {
				file = args[0]
			}
			data, err := readJSON(cmd, file)
			if err != nil {
				return err
			}

			if fromTree {
				n, err := ast.Decode(data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), a.printer().Print(n))
				return nil
			}

			var mods []stage.EnhancedModule
			if err := json.Unmarshal(data, &mods); err != nil {
				return fmt.Errorf("decode stages: %w", err)
			}
			for i, m := range mods {
				if err := a.reg.Validate(m.Module); err != nil {
					return fmt.Errorf("stage %d: %w", i, err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.CompileCommand(a.reg, a.printer(), mods))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromTree, "ast", false, "input is a syntax tree")
	return cmd
}

func readJSON(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		text, err := readInput(cmd, "-", nil)
		return []byte(text), err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return data, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
	return nil
}
