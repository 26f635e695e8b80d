// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package pipeline executes scripts through a Shell, either once or one
// run per pipeline prefix so that every stage's output can be shown.
package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/printer"
)

// ErrSuperseded is returned by Incremental when a newer call replaced it.
var ErrSuperseded = errors.New("superseded by a newer run")

// StageResult is the output of one prefix run.
type StageResult struct {
	Command string // the text that was run
	Stdout  []byte
	Stderr  []byte
}

// Update reports one finished slot of an incremental run.
type Update struct {
	RunID   string
	Index   int
	Result  StageResult
	Results []StageResult // copy of every slot so far; unfinished slots are zero
}

// Result is the outcome of a single-shot run.
type Result struct {
	Output   []byte // stderr if the command failed and wrote to it, else stdout
	Failed   bool
	ExitCode int
}

// Executor runs scripts. The zero value is not usable; Shell must be set.
type Executor struct {
	Shell   Shell
	Printer *printer.Printer // nil uses the default printer
	Logger  *zap.Logger      // nil discards
	Timeout time.Duration    // per run; zero means none

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func (e *Executor) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Executor) print(n ast.Node) string {
	if e.Printer == nil {
		return printer.Print(n)
	}
	return e.Printer.Print(n)
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.Timeout > 0 {
		return context.WithTimeout(ctx, e.Timeout)
	}
	return context.WithCancel(ctx)
}

// begin cancels any in-flight incremental run and starts a new generation.
func (e *Executor) begin(ctx context.Context) (context.Context, uint64, context.CancelFunc) {
	ctx, cancel := e.withTimeout(ctx)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	e.cancel = cancel
	return ctx, e.gen, cancel
}

func (e *Executor) finish(gen uint64, cancel context.CancelFunc) {
	e.mu.Lock()
	if e.gen == gen {
		e.cancel = nil
	}
	e.mu.Unlock()
	cancel()
}

func (e *Executor) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

// check reports why a run can no longer deliver results, if it cannot.
func (e *Executor) check(ctx context.Context, gen uint64) error {
	if !e.current(gen) {
		return ErrSuperseded
	}
	return ctx.Err()
}

// Incremental runs every prefix of every pipeline in s concurrently:
// a pipeline of N stages yields N slots, slot i holding the output of
// stages 0..i. Other statements run afterwards, one at a time, each
// appending one slot without an update. onUpdate, which may be nil, is
// called once per finished pipeline slot; calls are serialized.
//
// Starting another Incremental cancels this one, which then returns
// ErrSuperseded and delivers no further updates. Exit codes are not
// consulted; a command that cannot be started reports the failure as its
// slot's stderr.
func (e *Executor) Incremental(ctx context.Context, s *ast.Script, onUpdate func(Update)) ([]StageResult, error) {
	ctx, gen, cancel := e.begin(ctx)
	defer e.finish(gen, cancel)

	runID := uuid.NewString()
	log := e.logger().With(zap.String("run_id", runID))
	started := time.Now()

	var pipelines []*ast.Pipeline
	var others []ast.Node
	total := 0
	if s != nil {
		for _, n := range s.Commands {
			switch n := n.(type) {
			case *ast.Pipeline:
				if len(n.Commands) > 0 {
					pipelines = append(pipelines, n)
					total += len(n.Commands)
				}
			case nil:
			default:
				others = append(others, n)
			}
		}
	}
	log.Info("run started", zap.Int("slots", total), zap.Int("statements", len(others)))

	results := make([]StageResult, total)
	var (
		resMu    sync.Mutex
		notifyMu sync.Mutex
		g        errgroup.Group
	)

	base := 0
	for _, p := range pipelines {
		for i := range p.Commands {
			slot := base + i
			prefix := &ast.Script{Commands: []ast.Node{
				&ast.Pipeline{Commands: slices.Clone(p.Commands[:i+1])},
			}}
			text := e.print(prefix)
			g.Go(func() error {
				res := e.runStage(ctx, text)
				if ctx.Err() != nil {
					return nil
				}

				resMu.Lock()
				results[slot] = res
				snap := slices.Clone(results)
				resMu.Unlock()
				log.Debug("stage finished", zap.Int("index", slot), zap.String("command", text))

				if onUpdate == nil {
					return nil
				}
				notifyMu.Lock()
				defer notifyMu.Unlock()
				if e.check(ctx, gen) == nil {
					onUpdate(Update{RunID: runID, Index: slot, Result: res, Results: snap})
				}
				return nil
			})
		}
		base += len(p.Commands)
	}
	_ = g.Wait()

	if err := e.check(ctx, gen); err != nil {
		log.Info("run abandoned", zap.Error(err))
		return results, err
	}

	for _, n := range others {
		text := e.print(&ast.Script{Commands: []ast.Node{n}})
		results = append(results, e.runStage(ctx, text))
		if err := e.check(ctx, gen); err != nil {
			log.Info("run abandoned", zap.Error(err))
			return results, err
		}
	}

	log.Info("run finished", zap.Int("results", len(results)), zap.Duration("elapsed", time.Since(started)))
	return results, nil
}

func (e *Executor) runStage(ctx context.Context, text string) StageResult {
	out, err := e.Shell.Run(ctx, text)
	res := StageResult{Command: text, Stdout: out.Stdout, Stderr: out.Stderr}
	if err != nil && ctx.Err() == nil {
		res.Stderr = append(res.Stderr, err.Error()...)
	}
	return res
}

// Run executes text once. It does not take part in supersession.
func (e *Executor) Run(ctx context.Context, text string) (Result, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	log := e.logger()
	started := time.Now()
	out, err := e.Shell.Run(ctx, text)
	if err != nil {
		log.Warn("run failed", zap.String("command", text), zap.Error(err))
		return Result{}, err
	}
	log.Info("run finished", zap.String("command", text),
		zap.Int("exit_code", out.ExitCode), zap.Duration("elapsed", time.Since(started)))

	res := Result{Output: out.Stdout, ExitCode: out.ExitCode, Failed: out.ExitCode != 0}
	if res.Failed && len(out.Stderr) > 0 {
		res.Output = out.Stderr
	}
	return res, nil
}
