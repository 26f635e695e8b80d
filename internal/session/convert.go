// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"reflect"

	"github.com/marcelocantos/stagecraft/internal/ast"
	"github.com/marcelocantos/stagecraft/internal/printer"
	"github.com/marcelocantos/stagecraft/internal/stage"
)

// AstToModules flattens the first statement of s into a module list.
// Pipelines tag every module but the last with OpPipe; a logical
// expression tags the last module of its left side with OpAnd or OpOr
// (";" counts as OpAnd). Nodes other than commands, pipelines and logical
// expressions have no stage form and are skipped.
func AstToModules(reg *stage.Registry, s *ast.Script) []stage.EnhancedModule {
	if s == nil || len(s.Commands) == 0 {
		return nil
	}
	var out []stage.EnhancedModule
	flatten(reg, s.Commands[0], &out)
	return out
}

func flatten(reg *stage.Registry, n ast.Node, out *[]stage.EnhancedModule) {
	tag := func(op stage.Operator) {
		if len(*out) > 0 {
			(*out)[len(*out)-1].Operator = op
		}
	}
	switch n := n.(type) {
	case *ast.Pipeline:
		for i, c := range n.Commands {
			flatten(reg, c, out)
			if i < len(n.Commands)-1 {
				tag(stage.OpPipe)
			}
		}
	case *ast.LogicalExpression:
		flatten(reg, n.Left, out)
		if n.Op == ast.OpOr {
			tag(stage.OpOr)
		} else {
			tag(stage.OpAnd)
		}
		flatten(reg, n.Right, out)
	case *ast.Command:
		*out = append(*out, stage.EnhancedModule{Module: reg.Parse(n)})
	}
}

// ModulesToAst folds modules back into a tree. The operator on module i
// decides how module i+1 joins: OpAnd and OpOr build a logical
// expression, anything else pipes.
func ModulesToAst(reg *stage.Registry, mods []stage.EnhancedModule) ast.Node {
	cmds := make([]*ast.Command, len(mods))
	for i, m := range mods {
		cmds[i] = reg.Compile(m.Module)
	}
	return fold(mods, cmds)
}

// fold joins cmds, one per module, using the modules' operators.
func fold(mods []stage.EnhancedModule, cmds []*ast.Command) ast.Node {
	if len(mods) == 0 {
		return &ast.Command{}
	}
	var acc ast.Node = cmds[0]
	for i := 1; i < len(mods); i++ {
		switch mods[i-1].Operator {
		case stage.OpAnd:
			acc = &ast.LogicalExpression{Op: ast.OpAnd, Left: acc, Right: cmds[i]}
		case stage.OpOr:
			acc = &ast.LogicalExpression{Op: ast.OpOr, Left: acc, Right: cmds[i]}
		default:
			acc = pipeAppend(acc, cmds[i])
		}
	}
	return acc
}

// stageCommands returns the commands that AstToModules turns into
// modules, in the same order.
func stageCommands(s *ast.Script) []*ast.Command {
	if s == nil || len(s.Commands) == 0 {
		return nil
	}
	var out []*ast.Command
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch n := n.(type) {
		case *ast.Pipeline:
			for _, c := range n.Commands {
				walk(c)
			}
		case *ast.LogicalExpression:
			walk(n.Left)
			walk(n.Right)
		case *ast.Command:
			out = append(out, n)
		}
	}
	walk(s.Commands[0])
	return out
}

// commandsFor returns one command per module of next. A module identical
// to one in prev reuses that module's command from prevCmds, keeping the
// words exactly as they were written; the rest are compiled.
func commandsFor(reg *stage.Registry, prev []stage.EnhancedModule, prevCmds []*ast.Command, next []stage.EnhancedModule) []*ast.Command {
	used := make([]bool, len(prev))
	match := func(j int, m stage.Module) bool {
		if j >= len(prev) || j >= len(prevCmds) || used[j] || prevCmds[j] == nil {
			return false
		}
		return reflect.DeepEqual(prev[j].Module, m)
	}

	out := make([]*ast.Command, len(next))
	for i, m := range next {
		if match(i, m.Module) {
			out[i], used[i] = prevCmds[i], true
		}
	}
	for i, m := range next {
		if out[i] != nil {
			continue
		}
		for j := range prev {
			if match(j, m.Module) {
				out[i], used[j] = prevCmds[j], true
				break
			}
		}
		if out[i] == nil {
			out[i] = reg.Compile(m.Module)
		}
	}
	return out
}

// pipeAppend pipes cmd onto acc. A logical accumulator pipes into its
// right operand, so "a && b" then "| c" becomes "a && b | c".
func pipeAppend(acc ast.Node, cmd ast.Node) ast.Node {
	switch a := acc.(type) {
	case *ast.Pipeline:
		a.Commands = append(a.Commands, cmd)
		return a
	case *ast.LogicalExpression:
		a.Right = pipeAppend(a.Right, cmd)
		return a
	default:
		return &ast.Pipeline{Commands: []ast.Node{acc, cmd}}
	}
}

// CompileCommand renders modules as shell text.
func CompileCommand(reg *stage.Registry, p *printer.Printer, mods []stage.EnhancedModule) string {
	return p.Print(ModulesToAst(reg, mods))
}

// normalize returns a copy of mods in which the last module has no
// operator and every other module without one pipes.
func normalize(mods []stage.EnhancedModule) []stage.EnhancedModule {
	out := cloneModules(mods)
	for i := range out {
		switch {
		case i == len(out)-1:
			out[i].Operator = stage.OpNone
		case out[i].Operator == stage.OpNone:
			out[i].Operator = stage.OpPipe
		}
	}
	return out
}

func cloneModules(mods []stage.EnhancedModule) []stage.EnhancedModule {
	if mods == nil {
		return nil
	}
	out := make([]stage.EnhancedModule, len(mods))
	for i, m := range mods {
		out[i] = m
		out[i].Fields = m.Fields.Clone()
	}
	return out
}
