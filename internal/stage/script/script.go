// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package script loads stage plugins written in Starlark.
//
// A plugin file defines:
//
//	command = "jq"                      # required
//	description = "JSON processor"      # optional
//	fields = {"filter": "string"}       # optional, field name -> JSON type
//
//	def parse(cmd):                     # cmd = {"name": str, "args": [str]}
//	    return {"filter": cmd["args"][0] if cmd["args"] else ""}
//
//	def compile(fields):                # returns the argument list
//	    return [fields["filter"]]
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

// maxSteps bounds a single parse or compile call.
const maxSteps = 1_000_000

// Plugin is a stage plugin backed by a Starlark file. Its globals are
// frozen after loading, so calls are safe from multiple goroutines.
type Plugin struct {
	name    string
	desc    string
	file    string
	fields  map[string]string
	parse   starlark.Callable
	compile starlark.Callable
	logger  *zap.Logger
}

var _ stage.Plugin = (*Plugin)(nil)

func (p *Plugin) CommandName() string { return p.name }
func (p *Plugin) Description() string { return p.desc }

// File returns the path the plugin was loaded from.
func (p *Plugin) File() string { return p.file }

func (p *Plugin) Schema() map[string]any {
	if p.fields == nil {
		return nil
	}
	return stage.ObjectSchema(p.fields)
}

// Load reads every *.star file in dir, in name order. A missing directory
// yields no plugins. Files that fail to load are skipped and reported
// together in the returned error.
func Load(dir string, logger *zap.Logger) ([]*Plugin, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("list plugins: %w", err)
	}
	sort.Strings(paths)

	var plugins []*Plugin
	var errs []error
	for _, path := range paths {
		p, err := LoadFile(path, logger)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		plugins = append(plugins, p)
	}
	return plugins, errors.Join(errs...)
}

// LoadFile loads a single plugin file.
func LoadFile(path string, logger *zap.Logger) (*Plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plugin: %w", err)
	}
	return LoadSource(path, src, logger)
}

// LoadSource loads a plugin from src. filename is used in messages.
func LoadSource(filename string, src []byte, logger *zap.Logger) (*Plugin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	thread := newThread(filename, logger)
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	p := &Plugin{file: filename, logger: logger}

	name, ok := globalString(globals, "command")
	if !ok || name == "" {
		return nil, fmt.Errorf("%s: missing string global %q", filename, "command")
	}
	p.name = name
	p.desc, _ = globalString(globals, "description")

	if p.parse, err = globalFunc(globals, "parse"); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if p.compile, err = globalFunc(globals, "compile"); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if v, ok := globals["fields"]; ok {
		d, ok := v.(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("%s: fields must be a dict, got %s", filename, v.Type())
		}
		p.fields = make(map[string]string, d.Len())
		for _, item := range d.Items() {
			k, kok := starlark.AsString(item[0])
			t, tok := starlark.AsString(item[1])
			if !kok || !tok || (t != "string" && t != "boolean") {
				return nil, fmt.Errorf("%s: fields entries must map names to \"string\" or \"boolean\"", filename)
			}
			p.fields[k] = t
		}
	}
	return p, nil
}

func newThread(name string, logger *zap.Logger) *starlark.Thread {
	th := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug("plugin print", zap.String("plugin", name), zap.String("msg", msg))
		},
	}
	th.SetMaxExecutionSteps(maxSteps)
	return th
}

func globalString(globals starlark.StringDict, name string) (string, bool) {
	v, ok := globals[name]
	if !ok {
		return "", false
	}
	return starlark.AsString(v)
}

func globalFunc(globals starlark.StringDict, name string) (starlark.Callable, error) {
	v, ok := globals[name]
	if !ok {
		return nil, fmt.Errorf("missing function %q", name)
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%q is a %s, not a function", name, v.Type())
	}
	return fn, nil
}

// Parse calls the script's parse function. A failing script degrades to
// a generic module, which keeps the raw arguments.
func (p *Plugin) Parse(cmd *ast.Command) stage.Module {
	args := cmd.Args()
	vals := make([]starlark.Value, len(args))
	for i, a := range args {
		vals[i] = starlark.String(a)
	}
	in := starlark.NewDict(2)
	_ = in.SetKey(starlark.String("name"), starlark.String(cmd.CommandName()))
	_ = in.SetKey(starlark.String("args"), starlark.NewList(vals))

	fields, err := p.callParse(in)
	if err != nil {
		p.logger.Warn("plugin parse failed",
			zap.String("plugin", p.name), zap.String("file", p.file), zap.Error(err))
		return stage.Generic.Parse(cmd)
	}
	return stage.Module{Type: p.name, Fields: fields}
}

func (p *Plugin) callParse(in *starlark.Dict) (stage.Fields, error) {
	out, err := starlark.Call(newThread(p.file, p.logger), p.parse, starlark.Tuple{in}, nil)
	if err != nil {
		return nil, err
	}
	d, ok := out.(*starlark.Dict)
	if !ok {
		return nil, fmt.Errorf("parse returned %s, want dict", out.Type())
	}
	fields := make(stage.Fields, d.Len())
	for _, item := range d.Items() {
		k, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("parse returned non-string key %s", item[0])
		}
		switch v := item[1].(type) {
		case starlark.Bool:
			fields[k] = bool(v)
		case starlark.String:
			fields[k] = string(v)
		default:
			fields[k] = v.String()
		}
	}
	return fields, nil
}

// Compile calls the script's compile function. A failing script degrades
// to the bare command plus any "args" field.
func (p *Plugin) Compile(m stage.Module) *ast.Command {
	args, err := p.callCompile(m.Fields)
	if err != nil {
		p.logger.Warn("plugin compile failed",
			zap.String("plugin", p.name), zap.String("file", p.file), zap.Error(err))
		cmd := ast.NewCommand(p.name)
		cmd.Suffix = stage.SplitArgs(m.Fields.String("args"))
		return cmd
	}
	cmd := ast.NewCommand(p.name)
	for _, a := range args {
		cmd.Suffix = append(cmd.Suffix, stage.Word(a))
	}
	return cmd
}

func (p *Plugin) callCompile(f stage.Fields) ([]string, error) {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	in := starlark.NewDict(len(f))
	for _, k := range keys {
		var v starlark.Value
		switch x := f[k].(type) {
		case bool:
			v = starlark.Bool(x)
		case string:
			v = starlark.String(x)
		default:
			v = starlark.String(fmt.Sprint(x))
		}
		if err := in.SetKey(starlark.String(k), v); err != nil {
			return nil, err
		}
	}

	out, err := starlark.Call(newThread(p.file, p.logger), p.compile, starlark.Tuple{in}, nil)
	if err != nil {
		return nil, err
	}
	seq, ok := out.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("compile returned %s, want list", out.Type())
	}
	iter := seq.Iterate()
	defer iter.Done()

	var args []string
	var x starlark.Value
	for iter.Next(&x) {
		s, ok := starlark.AsString(x)
		if !ok {
			return nil, fmt.Errorf("compile returned non-string argument %s", x)
		}
		args = append(args, s)
	}
	return args, nil
}

// Register adds the plugins to reg. Call it after the built-ins so that
// scripts override them.
func Register(reg *stage.Registry, plugins []*Plugin) {
	for _, p := range plugins {
		reg.Register(p)
	}
}
