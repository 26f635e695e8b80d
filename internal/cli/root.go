// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the stagecraft command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/marcelocantos/stagecraft/internal/config"
	"github.com/marcelocantos/stagecraft/internal/printer"
	"github.com/marcelocantos/stagecraft/internal/session"
	"github.com/marcelocantos/stagecraft/internal/stage"
	"github.com/marcelocantos/stagecraft/internal/stage/builtin"
	"github.com/marcelocantos/stagecraft/internal/store"
)

// ExitError carries an exit code out of a command that has already
// reported its failure.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "" // the command's own output is sufficient
}

// App is one invocation of the command line.
type App struct {
	Version string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer

	// Logger replaces the production logger built from the config.
	Logger *zap.Logger

	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
	reg *stage.Registry
}

// Run executes args (without the program name) and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	if a.Stdin != nil {
		root.SetIn(a.Stdin)
	}
	if a.Stdout != nil {
		root.SetOut(a.Stdout)
	}
	if a.Stderr != nil {
		root.SetErr(a.Stderr)
	}
	return a.resolveError(root.ErrOrStderr(), root.ExecuteContext(ctx))
}

func (a *App) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stagecraft",
		Short: "Edit shell pipelines as text or as a list of stages",
		Long: `stagecraft keeps a shell pipeline's text and its list of typed stages in
step. Edit either side and the other follows; run the pipeline to see the
output after every stage.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.ConfigPath()+")")

	root.AddCommand(
		a.parseCmd(),
		a.compileCmd(),
		a.runCmd(),
		a.editCmd(),
		a.stagesCmd(),
		a.watchCmd(),
		a.serveCmd(),
		a.auditCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads the config and builds the logger and registry.
func (a *App) setup() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	a.log = a.Logger
	if a.log == nil {
		level, err := a.cfg.Level()
		if err != nil {
			return err
		}
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		if a.verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		if a.log, err = zc.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	a.reg = stage.NewRegistry()
	a.reg.SetLogger(a.log)
	builtin.RegisterAll(a.reg)
	a.cfg.ApplyPlugins(a.reg, a.log)
	return nil
}

func (a *App) printer() *printer.Printer {
	return printer.New(a.cfg.PrinterOptions(), a.log)
}

func (a *App) session() *session.Session {
	return session.New(a.reg, a.printer(), a.log)
}

// resolveError turns err into an exit code. An ExitError propagates its
// code silently; anything else is reported on w.
func (a *App) resolveError(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintf(w, "stagecraft: %v\n", err)
	return 2
}

// readInput returns the named file's contents, stdin for "-", or args
// joined as literal text.
func readInput(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSuffix(string(data), "\n"), nil
	case file != "":
		return store.Load(file)
	case len(args) == 1 && args[0] == "-":
		return readInput(cmd, "-", nil)
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", errors.New("no pipeline given")
	}
}
