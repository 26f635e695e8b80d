// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package shparse turns shell text into an ast tree using the mvdan.cc/sh
// bash parser.
package shparse

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/marcelocantos/stagecraft/internal/ast"
)

// ParseError reports text that could not be turned into a tree, either
// because it is not valid shell or because it uses a construct the tree
// cannot represent.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

func errorf(format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...)}
}

// Parse parses text into a Script. Blank input yields ast.EmptyScript.
// All failures are returned as *ParseError.
func Parse(text string) (*ast.Script, error) {
	if strings.TrimSpace(text) == "" {
		return ast.EmptyScript(), nil
	}

	p := syntax.NewParser(syntax.Variant(syntax.LangBash))
	f, err := p.Parse(strings.NewReader(text), "")
	if err != nil {
		return nil, &ParseError{Msg: err.Error()}
	}

	c := converter{src: text}
	script := &ast.Script{}
	for _, st := range f.Stmts {
		n, err := c.stmt(st)
		if err != nil {
			return nil, err
		}
		script.Commands = append(script.Commands, n)
	}
	if len(script.Commands) == 0 {
		// Comments only.
		return ast.EmptyScript(), nil
	}
	return script, nil
}

type converter struct {
	src string
}

// slice returns the source text spanned by n.
func (c converter) slice(n syntax.Node) string {
	start, end := int(n.Pos().Offset()), int(n.End().Offset())
	if start < 0 || end > len(c.src) || start > end {
		return ""
	}
	return c.src[start:end]
}

func (c converter) stmts(sts []*syntax.Stmt) (*ast.CompoundList, error) {
	cl := &ast.CompoundList{}
	for _, st := range sts {
		n, err := c.stmt(st)
		if err != nil {
			return nil, err
		}
		cl.Commands = append(cl.Commands, n)
	}
	return cl, nil
}

func (c converter) stmt(st *syntax.Stmt) (ast.Node, error) {
	if st.Background {
		return nil, errorf("background execution (&) is not supported")
	}
	if st.Negated {
		return nil, errorf("negation (!) is not supported")
	}
	if st.Coprocess {
		return nil, errorf("coprocesses are not supported")
	}

	var redirs []ast.Node
	for _, r := range st.Redirs {
		rn, err := c.redirect(r)
		if err != nil {
			return nil, err
		}
		redirs = append(redirs, rn)
	}

	if st.Cmd == nil {
		// A bare redirect such as "> file".
		return &ast.Command{Suffix: redirs}, nil
	}

	n, err := c.command(st.Cmd)
	if err != nil {
		return nil, err
	}
	if len(redirs) > 0 {
		cmd, ok := n.(*ast.Command)
		if !ok {
			return nil, errorf("redirects on %s are not supported", n.Type())
		}
		cmd.Suffix = append(cmd.Suffix, redirs...)
	}
	return n, nil
}

func (c converter) command(cmd syntax.Command) (ast.Node, error) {
	switch x := cmd.(type) {
	case *syntax.CallExpr:
		return c.call(x)
	case *syntax.DeclClause:
		return c.decl(x)
	case *syntax.BinaryCmd:
		return c.binary(x)
	case *syntax.Subshell:
		cl, err := c.stmts(x.Stmts)
		if err != nil {
			return nil, err
		}
		return &ast.Subshell{List: cl}, nil
	case *syntax.Block:
		return c.stmts(x.Stmts)
	case *syntax.IfClause:
		return c.ifClause(x)
	case *syntax.WhileClause:
		clause, err := c.stmts(x.Cond)
		if err != nil {
			return nil, err
		}
		do, err := c.stmts(x.Do)
		if err != nil {
			return nil, err
		}
		if x.Until {
			return &ast.Until{Clause: clause, Do: do}, nil
		}
		return &ast.While{Clause: clause, Do: do}, nil
	case *syntax.ForClause:
		return c.forClause(x)
	case *syntax.CaseClause:
		return c.caseClause(x)
	case *syntax.FuncDecl:
		return c.funcDecl(x)
	default:
		return nil, errorf("unsupported shell construct: %s", strings.TrimSpace(c.slice(cmd)))
	}
}

func (c converter) call(x *syntax.CallExpr) (ast.Node, error) {
	cmd := &ast.Command{}
	for _, as := range x.Assigns {
		cmd.Prefix = append(cmd.Prefix, &ast.AssignmentWord{Text: c.slice(as)})
	}
	for i, w := range x.Args {
		word, err := c.word(w)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			cmd.Name = word
			continue
		}
		cmd.Suffix = append(cmd.Suffix, word)
	}
	return cmd, nil
}

// decl maps export/local/declare/readonly/typeset onto a plain command
// whose arguments are kept verbatim.
func (c converter) decl(x *syntax.DeclClause) (ast.Node, error) {
	cmd := &ast.Command{Name: ast.NewWord(x.Variant.Value)}
	for _, as := range x.Args {
		cmd.Suffix = append(cmd.Suffix, &ast.AssignmentWord{Text: c.slice(as)})
	}
	return cmd, nil
}

func (c converter) binary(x *syntax.BinaryCmd) (ast.Node, error) {
	switch x.Op {
	case syntax.Pipe:
		p := &ast.Pipeline{}
		if err := c.flattenPipe(x, p); err != nil {
			return nil, err
		}
		return p, nil
	case syntax.AndStmt, syntax.OrStmt:
		left, err := c.stmt(x.X)
		if err != nil {
			return nil, err
		}
		right, err := c.stmt(x.Y)
		if err != nil {
			return nil, err
		}
		op := ast.OpAnd
		if x.Op == syntax.OrStmt {
			op = ast.OpOr
		}
		return &ast.LogicalExpression{Op: op, Left: left, Right: right}, nil
	default:
		return nil, errorf("operator %s is not supported", x.Op)
	}
}

// flattenPipe collects both sides of a chain of | operators into p,
// whichever way the parser associated them.
func (c converter) flattenPipe(x *syntax.BinaryCmd, p *ast.Pipeline) error {
	for _, side := range []*syntax.Stmt{x.X, x.Y} {
		if b, ok := side.Cmd.(*syntax.BinaryCmd); ok && b.Op == syntax.Pipe &&
			len(side.Redirs) == 0 && !side.Negated && !side.Background {
			if err := c.flattenPipe(b, p); err != nil {
				return err
			}
			continue
		}
		n, err := c.stmt(side)
		if err != nil {
			return err
		}
		p.Commands = append(p.Commands, n)
	}
	return nil
}

func (c converter) ifClause(x *syntax.IfClause) (ast.Node, error) {
	clause, err := c.stmts(x.Cond)
	if err != nil {
		return nil, err
	}
	then, err := c.stmts(x.Then)
	if err != nil {
		return nil, err
	}
	n := &ast.If{Clause: clause, Then: then}
	if e := x.Else; e != nil {
		if len(e.Cond) == 0 {
			// Plain else: its body lives in Then.
			body, err := c.stmts(e.Then)
			if err != nil {
				return nil, err
			}
			n.Else = body
		} else {
			elif, err := c.ifClause(e)
			if err != nil {
				return nil, err
			}
			n.Else = elif
		}
	}
	return n, nil
}

func (c converter) forClause(x *syntax.ForClause) (ast.Node, error) {
	if x.Select {
		return nil, errorf("select loops are not supported")
	}
	iter, ok := x.Loop.(*syntax.WordIter)
	if !ok {
		return nil, errorf("C-style for loops are not supported")
	}
	n := &ast.For{Name: ast.NewWord(iter.Name.Value)}
	if iter.InPos.IsValid() {
		n.WordList = []*ast.Word{}
		for _, w := range iter.Items {
			word, err := c.word(w)
			if err != nil {
				return nil, err
			}
			n.WordList = append(n.WordList, word)
		}
	}
	do, err := c.stmts(x.Do)
	if err != nil {
		return nil, err
	}
	n.Do = do
	return n, nil
}

func (c converter) caseClause(x *syntax.CaseClause) (ast.Node, error) {
	w, err := c.word(x.Word)
	if err != nil {
		return nil, err
	}
	n := &ast.Case{Word: w}
	for _, it := range x.Items {
		item := &ast.CaseItem{}
		for _, p := range it.Patterns {
			pw, err := c.word(p)
			if err != nil {
				return nil, err
			}
			item.Patterns = append(item.Patterns, pw)
		}
		body, err := c.stmts(it.Stmts)
		if err != nil {
			return nil, err
		}
		item.Body = body
		n.Items = append(n.Items, item)
	}
	return n, nil
}

func (c converter) funcDecl(x *syntax.FuncDecl) (ast.Node, error) {
	n := &ast.Function{Name: ast.NewWord(x.Name.Value)}
	var body *ast.CompoundList
	var err error
	if b, ok := x.Body.Cmd.(*syntax.Block); ok && len(x.Body.Redirs) == 0 {
		body, err = c.stmts(b.Stmts)
	} else {
		body, err = c.stmts([]*syntax.Stmt{x.Body})
	}
	if err != nil {
		return nil, err
	}
	n.Body = body
	return n, nil
}

func (c converter) redirect(r *syntax.Redirect) (ast.Node, error) {
	if r.Hdoc != nil {
		return nil, errorf("here-documents are not supported")
	}
	op := r.Op.String()
	if r.N != nil {
		op = r.N.Value + op
	}
	file, err := c.word(r.Word)
	if err != nil {
		return nil, err
	}
	return &ast.Redirect{Op: op, File: file}, nil
}
