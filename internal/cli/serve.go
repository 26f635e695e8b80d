// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/spf13/cobra"

	"github.com/marcelocantos/stagecraft/internal/mcpserver"
)

func (a *App) serveCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "serve [-f FILE]",
		Short: "Serve a pipeline session over MCP on stdio",
		Long: `Starts an MCP server on stdin and stdout with tools to parse, compile,
edit and run a pipeline. With -f the session starts from the file's text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.session()
			if file != "" {
				text, err := readInput(cmd, file, nil)
				if err != nil {
					return err
				}
				if err := s.SetText(text); err != nil {
					return err
				}
			}
			return mcpserver.New(s, a.cfg.Executor(a.log), a.log, a.version()).ServeStdio()
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "initial pipeline file")
	return cmd
}
