// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package stage

import (
	"sort"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/ast"
)

// Registry maps command names to plugins. Registries are explicitly
// constructed and passed to whoever needs lookup; there is no global one.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	schemas map[string]*jsonschema.Schema
	logger  *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		schemas: make(map[string]*jsonschema.Schema),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger used for registration and validation events.
func (r *Registry) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

// Register adds a plugin. A later registration for the same command name
// replaces the earlier one.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.CommandName()
	if _, ok := r.plugins[name]; ok {
		r.logger.Debug("plugin replaced", zap.String("command", name))
	}
	r.plugins[name] = p
	delete(r.schemas, name)
}

// Lookup returns the plugin registered for name.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Resolve returns the plugin registered for name, falling back to Generic.
func (r *Registry) Resolve(name string) Plugin {
	if p, ok := r.Lookup(name); ok {
		return p
	}
	return Generic
}

// All returns all registered plugins sorted by command name.
func (r *Registry) All() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ps := make([]Plugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].CommandName() < ps[j].CommandName()
	})
	return ps
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	ps := r.All()
	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.CommandName()
	}
	return names
}

// Parse converts a command into a module using its plugin.
func (r *Registry) Parse(cmd *ast.Command) Module {
	return r.Resolve(cmd.CommandName()).Parse(cmd)
}

// Compile converts a module back into a command. Modules whose type has
// no registered plugin compile as a bare command of that name, keeping any
// "args" field.
func (r *Registry) Compile(m Module) *ast.Command {
	if m.Type == GenericType {
		return Generic.Compile(m)
	}
	if p, ok := r.Lookup(m.Type); ok {
		return p.Compile(m)
	}
	r.logger.Warn("no plugin for module type", zap.String("type", m.Type))
	return Generic.Compile(Module{
		Type:   GenericType,
		Fields: Fields{"command": m.Type, "args": m.Fields.String("args")},
	})
}

// New returns the default module for a freshly added stage running name.
func (r *Registry) New(name string) Module {
	return r.Parse(ast.NewCommand(name))
}

// Suggest returns the registered command name closest to name, or "" if
// nothing is close.
func (r *Registry) Suggest(name string) string {
	names := r.Names()
	if ranks := fuzzy.RankFindFold(name, names); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", 3
	for _, n := range names {
		if d := fuzzy.LevenshteinDistance(name, n); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best
}
