// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/audit"
	"github.com/marcelocantos/stagecraft/internal/pipeline"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

func (a *App) runCmd() *cobra.Command {
	var file string
	var stages bool
	cmd := &cobra.Command{
		Use:   "run [-f FILE] [--stages] [TEXT]",
		Short: "Run a pipeline",
		Long: `Runs a pipeline through the configured shell. With --stages every prefix
of the pipeline is run as well and each stage's output is printed under a
header naming the command that produced it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file, args)
			if err != nil {
				return err
			}
			s := a.session()
			if err := s.SetText(text); err != nil {
				return err
			}
			e := a.cfg.Executor(a.log)
			entry := audit.Entry{Command: text, Stages: stageTypes(s.Modules())}
			start := time.Now()

			if stages {
				entry.Mode = audit.ModeIncremental
				results, err := e.Incremental(cmd.Context(), s.Script(), func(u pipeline.Update) {
					entry.RunID = u.RunID
				})
				a.logAudit(entry, start, err)
				if err != nil {
					return err
				}
				writeStages(cmd.OutOrStdout(), results)
				return nil
			}

			entry.Mode = audit.ModeRun
			entry.RunID = uuid.NewString()
			res, err := e.Run(cmd.Context(), text)
			entry.ExitCode = res.ExitCode
			a.logAudit(entry, start, err)
			if err != nil {
				return err
			}
			if res.Failed {
				cmd.ErrOrStderr().Write(res.Output)
				return &ExitError{Code: res.ExitCode}
			}
			cmd.OutOrStdout().Write(res.Output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the pipeline from a file (- for stdin)")
	cmd.Flags().BoolVar(&stages, "stages", false, "print the output of every stage")
	return cmd
}

// writeStages prints one block per result: a "[i] command" header followed
// by the stage's stdout and then its stderr.
func writeStages(w io.Writer, results []pipeline.StageResult) {
	for i, r := range results {
		fmt.Fprintf(w, "[%d] %s\n", i, r.Command)
		w.Write(r.Stdout)
		w.Write(r.Stderr)
	}
}

func stageTypes(mods []stage.EnhancedModule) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Type
	}
	return out
}

// logAudit records a run. Audit failures are logged, never fatal.
func (a *App) logAudit(e audit.Entry, start time.Time, runErr error) {
	if a.cfg.Audit.Path == "" {
		return
	}
	l, err := audit.NewLogger(a.cfg.Audit.Path)
	if err != nil {
		a.log.Warn("audit unavailable", zap.Error(err))
		return
	}
	e.SetDuration(time.Since(start))
	e.Cwd, _ = os.Getwd()
	if runErr != nil {
		e.Error = runErr.Error()
	}
	if _, err := l.Log(e); err != nil {
		a.log.Warn("audit write failed", zap.Error(err))
	}
}
