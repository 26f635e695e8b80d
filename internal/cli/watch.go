// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/store"
)

func (a *App) watchCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "watch -f FILE",
		Short: "Re-run a pipeline file's stages whenever it changes",
		Long: `Runs every stage of the pipeline in FILE, then again each time the file
is saved. A save while a run is in progress abandons that run. Stops on
interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("watch: -f is required")
			}
			text, err := store.Load(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s := a.session()
			e := a.cfg.Executor(a.log)
			w := cmd.OutOrStdout()
			var (
				wg    sync.WaitGroup
				outMu sync.Mutex
			)
			rerun := func(text string) {
				if err := s.SetText(text); err != nil {
					outMu.Lock()
					fmt.Fprintf(cmd.ErrOrStderr(), "stagecraft: %v\n", err)
					outMu.Unlock()
					return
				}
				script := s.Script()
				wg.Add(1)
				go func() {
					defer wg.Done()
					results, err := e.Incremental(ctx, script, nil)
					if err != nil {
						a.log.Debug("run dropped", zap.Error(err))
						return
					}
					outMu.Lock()
					defer outMu.Unlock()
					fmt.Fprintf(w, "== %s\n", text)
					writeStages(w, results)
				}()
			}

			rerun(text)
			err = (&store.Watcher{Path: file, Logger: a.log}).Run(ctx, rerun)
			wg.Wait()
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "pipeline file")
	return cmd
}
