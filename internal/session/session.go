// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package session keeps a pipeline's text and its stage list in step.
package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/printer"
	"github.com/marcelocantos/stagecraft/internal/shparse"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

// ErrSyncInProgress is returned for an edit that arrives while the session
// is still deriving one view from the other.
var ErrSyncInProgress = errors.New("sync already in progress")

// State is the synchronization state.
type State int

const (
	Idle State = iota
	SyncingFromText
	SyncingFromModules
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case SyncingFromText:
		return "syncing-from-text"
	case SyncingFromModules:
		return "syncing-from-modules"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is the session after a completed pass.
type Snapshot struct {
	Text    string
	Modules []stage.EnhancedModule
	Origin  State // which pass produced it
}

// Session holds the text and module views of one pipeline.
type Session struct {
	reg     *stage.Registry
	printer *printer.Printer
	logger  *zap.Logger

	mu          sync.Mutex
	state       State
	text        string
	script      *ast.Script
	fingerprint string
	modules     []stage.EnhancedModule
	commands    []*ast.Command // the command each module came from
	lastErr     error
	listeners   map[int]func(Snapshot)
	nextID      int
}

// New creates an empty session. A nil printer uses default options; a nil
// logger discards.
func New(reg *stage.Registry, p *printer.Printer, logger *zap.Logger) *Session {
	if p == nil {
		p = printer.New(printer.DefaultOptions(), logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		reg:       reg,
		printer:   p,
		logger:    logger,
		script:    ast.EmptyScript(),
		listeners: make(map[int]func(Snapshot)),
	}
}

// Registry returns the plugin registry.
func (s *Session) Registry() *stage.Registry { return s.reg }

// Printer returns the printer used to render module edits.
func (s *Session) Printer() *printer.Printer { return s.printer }

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Modules returns a copy of the module list.
func (s *Session) Modules() []stage.EnhancedModule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneModules(s.modules)
}

// Script returns the tree of the last text that parsed.
func (s *Session) Script() *ast.Script {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.script
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError returns the error of the most recent failed edit, or nil if
// the last edit succeeded.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns the current text and modules.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(Idle)
}

func (s *Session) snapshotLocked(origin State) Snapshot {
	return Snapshot{Text: s.text, Modules: cloneModules(s.modules), Origin: origin}
}

// Subscribe registers fn to be called after every successful pass. fn runs
// while the pass is still in progress, so edits it makes are rejected with
// ErrSyncInProgress. The returned function unsubscribes.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// begin moves Idle to the given syncing state.
func (s *Session) begin(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		s.logger.Debug("edit rejected", zap.Stringer("state", s.state), zap.Stringer("want", to))
		return ErrSyncInProgress
	}
	s.state = to
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Idle
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

// SetText replaces the text and re-derives the modules. On a parse error
// the text is kept, the modules stay as they were and the error is
// returned. Text whose tree matches the previous one keeps the existing
// modules untouched.
func (s *Session) SetText(text string) error {
	if err := s.begin(SyncingFromText); err != nil {
		return err
	}
	defer s.end()

	script, err := shparse.Parse(text)
	if err != nil {
		s.mu.Lock()
		s.text = text
		s.mu.Unlock()
		s.logger.Debug("parse failed", zap.String("text", text), zap.Error(err))
		return s.fail(err)
	}
	fp, err := ast.Fingerprint(script)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	same := fp == s.fingerprint && s.modules != nil
	s.mu.Unlock()

	var mods []stage.EnhancedModule
	if !same {
		mods = AstToModules(s.reg, script)
		if mods == nil {
			mods = []stage.EnhancedModule{}
		}
	}

	s.mu.Lock()
	s.text = text
	s.script = script
	s.fingerprint = fp
	if !same {
		s.modules = mods
		s.commands = stageCommands(script)
	}
	s.lastErr = nil
	snap := s.snapshotLocked(SyncingFromText)
	s.mu.Unlock()

	s.logger.Debug("synced from text", zap.Int("modules", len(snap.Modules)), zap.Bool("unchanged", same))
	s.notify(snap)
	return nil
}

// SetModules replaces the module list and re-derives the text.
func (s *Session) SetModules(mods []stage.EnhancedModule) error {
	return s.edit(func([]stage.EnhancedModule) ([]stage.EnhancedModule, error) {
		return cloneModules(mods), nil
	})
}

// UpdateStage merges patch into the fields of stage index.
func (s *Session) UpdateStage(index int, patch stage.Fields) error {
	return s.edit(func(mods []stage.EnhancedModule) ([]stage.EnhancedModule, error) {
		if err := checkIndex(index, len(mods)); err != nil {
			return nil, err
		}
		f := mods[index].Fields.Clone()
		for k, v := range patch {
			f[k] = v
		}
		mods[index].Fields = f
		return mods, nil
	})
}

// AddStage inserts a default module for command at index (len appends).
// op is the new module's operator; the list is renormalized afterwards.
func (s *Session) AddStage(index int, command string, op stage.Operator) error {
	return s.edit(func(mods []stage.EnhancedModule) ([]stage.EnhancedModule, error) {
		if err := checkIndex(index, len(mods)+1); err != nil {
			return nil, err
		}
		m := stage.EnhancedModule{Module: s.reg.New(command), Operator: op}
		return slices.Insert(mods, index, m), nil
	})
}

// RemoveStage deletes stage index.
func (s *Session) RemoveStage(index int) error {
	return s.edit(func(mods []stage.EnhancedModule) ([]stage.EnhancedModule, error) {
		if err := checkIndex(index, len(mods)); err != nil {
			return nil, err
		}
		return slices.Delete(mods, index, index+1), nil
	})
}

// MoveStage moves stage from to position to. Operators travel with their
// module.
func (s *Session) MoveStage(from, to int) error {
	return s.edit(func(mods []stage.EnhancedModule) ([]stage.EnhancedModule, error) {
		if err := checkIndex(from, len(mods)); err != nil {
			return nil, err
		}
		if err := checkIndex(to, len(mods)); err != nil {
			return nil, err
		}
		m := mods[from]
		mods = slices.Delete(mods, from, from+1)
		return slices.Insert(mods, to, m), nil
	})
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("stage %d out of range [0,%d)", i, n)
	}
	return nil
}

// edit applies fn to a copy of the modules, validates the result and
// recompiles the text. Modules that come out of fn unchanged keep the
// command they were parsed from.
func (s *Session) edit(fn func([]stage.EnhancedModule) ([]stage.EnhancedModule, error)) error {
	if err := s.begin(SyncingFromModules); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	prev, prevCmds := s.modules, s.commands
	cur := cloneModules(s.modules)
	s.mu.Unlock()

	next, err := fn(cur)
	if err != nil {
		return s.fail(err)
	}
	next = normalize(next)
	for i, m := range next {
		if err := s.reg.Validate(m.Module); err != nil {
			return s.fail(fmt.Errorf("stage %d: %w", i, err))
		}
	}

	cmds := commandsFor(s.reg, prev, prevCmds, next)
	tree := fold(next, cmds)
	text := s.printer.Print(tree)
	script, err := shparse.Parse(text)
	if err != nil {
		// Fingerprint the compiled tree instead.
		s.logger.Warn("compiled text does not parse", zap.String("text", text), zap.Error(err))
		script = &ast.Script{Commands: []ast.Node{tree}}
	}
	fp, err := ast.Fingerprint(script)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.modules = next
	s.commands = cmds
	s.text = text
	s.script = script
	s.fingerprint = fp
	s.lastErr = nil
	snap := s.snapshotLocked(SyncingFromModules)
	s.mu.Unlock()

	s.logger.Debug("synced from modules", zap.String("text", text))
	s.notify(snap)
	return nil
}
