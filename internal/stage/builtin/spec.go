// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package builtin declares the stage plugins for common text-processing
// commands. Every plugin is a Spec: a table of flags and positional
// arguments interpreted by one shared parser and compiler.
package builtin

import (
	"strings"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

// Flag describes one option of a command.
type Flag struct {
	Field  string // module field it maps to
	Short  string // e.g. "-i"
	Long   string // e.g. "--ignore-case"
	Value  bool   // takes an argument
	Repeat bool   // may be given more than once; values are newline-joined
}

// Arg describes one positional argument.
type Arg struct {
	Field string
	Rest  bool // collects all remaining positional words
	Split bool // a Rest field compiles to one word per whitespace-separated token
}

// OptionsField holds, verbatim, options that a Spec does not declare.
const OptionsField = "options"

// Spec is a data-driven stage plugin.
type Spec struct {
	Name  string
	Desc  string
	Flags []Flag
	Args  []Arg

	// Leading stops option recognition at the first positional argument,
	// for commands like echo and xargs whose later words are data.
	Leading bool
}

var _ stage.Plugin = (*Spec)(nil)

func (s *Spec) CommandName() string { return s.Name }
func (s *Spec) Description() string { return s.Desc }

func (s *Spec) Schema() map[string]any {
	props := map[string]string{OptionsField: "string"}
	for _, f := range s.Flags {
		if f.Value {
			props[f.Field] = "string"
		} else {
			props[f.Field] = "boolean"
		}
	}
	for _, a := range s.Args {
		props[a.Field] = "string"
	}
	return stage.ObjectSchema(props)
}

func (s *Spec) defaults() stage.Fields {
	f := stage.Fields{OptionsField: ""}
	for _, fl := range s.Flags {
		if fl.Value {
			f[fl.Field] = ""
		} else {
			f[fl.Field] = false
		}
	}
	for _, a := range s.Args {
		f[a.Field] = ""
	}
	return f
}

// Parse never fails: unknown options, redirects and surplus arguments are
// kept in the options field.
func (s *Spec) Parse(cmd *ast.Command) stage.Module {
	f := s.defaults()
	var extra, positional []string
	opts := true

	suffix := cmd.Suffix
	for i := 0; i < len(suffix); i++ {
		w, ok := suffix[i].(*ast.Word)
		if !ok {
			extra = append(extra, stage.JoinArgs(suffix[i:i+1]))
			continue
		}
		t := w.Text
		// For Leading commands "--" is data; echo prints it.
		if opts && isOption(t) && !(s.Leading && t == "--") {
			if t == "--" {
				opts = false
				continue
			}
			next := func() (string, bool) {
				if i+1 < len(suffix) {
					if nw, ok := suffix[i+1].(*ast.Word); ok {
						i++
						return nw.Text, true
					}
				}
				return "", false
			}
			if !s.option(f, t, next) {
				extra = append(extra, t)
			}
			continue
		}
		if s.Leading {
			opts = false
		}
		positional = append(positional, t)
	}

	extra = append(extra, s.assign(f, positional)...)
	f[OptionsField] = strings.Join(extra, " ")
	return stage.Module{Type: s.Name, Fields: f}
}

// isOption reports whether t is written as an option. A word with
// whitespace in its name, such as "-- -n" quoted as one word, is data.
func isOption(t string) bool {
	name, _, _ := strings.Cut(t, "=")
	return len(t) > 1 && t[0] == '-' && !strings.ContainsAny(name, " \t\n")
}

func (s *Spec) short(name string) (Flag, bool) {
	for _, fl := range s.Flags {
		if fl.Short != "" && fl.Short == name {
			return fl, true
		}
	}
	return Flag{}, false
}

func (s *Spec) long(name string) (Flag, bool) {
	for _, fl := range s.Flags {
		if fl.Long != "" && fl.Long == name {
			return fl, true
		}
	}
	return Flag{}, false
}

func setValue(f stage.Fields, fl Flag, v string) {
	if prev := f.String(fl.Field); fl.Repeat && prev != "" {
		v = prev + "\n" + v
	}
	f[fl.Field] = v
}

// option applies t to f, consuming the following word through next when
// the option takes a value. It reports whether t was recognised. Combined
// short flags ("-in") and attached values ("-n5", "--lines=5") are
// understood.
func (s *Spec) option(f stage.Fields, t string, next func() (string, bool)) bool {
	if strings.HasPrefix(t, "--") {
		name, val, hasVal := strings.Cut(t, "=")
		fl, ok := s.long(name)
		if !ok {
			return false
		}
		if !fl.Value {
			if hasVal {
				return false
			}
			f[fl.Field] = true
			return true
		}
		if !hasVal {
			if val, ok = next(); !ok {
				return false
			}
		}
		setValue(f, fl, val)
		return true
	}

	if fl, ok := s.short(t); ok {
		if !fl.Value {
			f[fl.Field] = true
			return true
		}
		v, ok := next()
		if !ok {
			return false
		}
		setValue(f, fl, v)
		return true
	}

	for _, fl := range s.Flags {
		if fl.Value && fl.Short != "" && len(t) > len(fl.Short) && strings.HasPrefix(t, fl.Short) {
			setValue(f, fl, t[len(fl.Short):])
			return true
		}
	}

	var fields []string
	for _, c := range t[1:] {
		fl, ok := s.short("-" + string(c))
		if !ok || fl.Value {
			return false
		}
		fields = append(fields, fl.Field)
	}
	for _, field := range fields {
		f[field] = true
	}
	return true
}

// assign fills positional fields in order and returns any surplus words.
func (s *Spec) assign(f stage.Fields, positional []string) []string {
	for i, a := range s.Args {
		if i >= len(positional) {
			return nil
		}
		if a.Rest {
			f[a.Field] = strings.Join(positional[i:], " ")
			return nil
		}
		f[a.Field] = positional[i]
	}
	if len(positional) > len(s.Args) {
		return positional[len(s.Args):]
	}
	return nil
}

// Compile emits flags in declaration order, then unknown options, then
// positional arguments.
func (s *Spec) Compile(m stage.Module) *ast.Command {
	cmd := ast.NewCommand(s.Name)
	add := func(ns ...ast.Node) {
		cmd.Suffix = append(cmd.Suffix, ns...)
	}

	for _, fl := range s.Flags {
		name := fl.Short
		if name == "" {
			name = fl.Long
		}
		if !fl.Value {
			if m.Fields.Bool(fl.Field) {
				add(ast.NewWord(name))
			}
			continue
		}
		v := m.Fields.String(fl.Field)
		if v == "" {
			continue
		}
		vals := []string{v}
		if fl.Repeat {
			vals = strings.Split(v, "\n")
		}
		for _, val := range vals {
			if val != "" {
				add(ast.NewWord(name), stage.Word(val))
			}
		}
	}

	add(stage.SplitArgs(m.Fields.String(OptionsField))...)

	last := -1
	for i, a := range s.Args {
		if m.Fields.String(a.Field) != "" {
			last = i
		}
	}
	var pos []ast.Node
	dash := false
	for _, a := range s.Args[:last+1] {
		v := m.Fields.String(a.Field)
		switch {
		case v == "":
			// Keep later arguments in place.
			pos = append(pos, &ast.Word{QuoteChar: "'"})
		case a.Rest && a.Split:
			for _, tok := range strings.Fields(v) {
				pos = append(pos, stage.Word(tok))
			}
		default:
			pos = append(pos, stage.Word(v))
		}
		if isOption(v) {
			dash = true
		}
	}
	if dash && !s.Leading {
		add(ast.NewWord("--"))
	}
	add(pos...)
	return cmd
}
