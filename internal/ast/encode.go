// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package ast

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Encode renders a tree as JSON objects discriminated by a "type" field.
func Encode(n Node) ([]byte, error) {
	return json.Marshal(toValue(n))
}

// Decode parses the JSON produced by Encode. Objects with an unrecognised
// tag decode to *Unknown so that the rest of the tree survives; structural
// errors (missing tags, wrong field shapes) are returned as errors.
func Decode(data []byte) (Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode ast: %w", err)
	}
	n, err := fromValue(v)
	if err != nil {
		return nil, fmt.Errorf("decode ast: %w", err)
	}
	return n, nil
}

var fingerprintMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Fingerprint returns a hex SHA-256 digest of the tree's canonical CBOR
// encoding. Structurally identical trees share a fingerprint.
func Fingerprint(n Node) (string, error) {
	data, err := fingerprintMode.Marshal(toValue(n))
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

func setPos(m map[string]any, pos int) {
	if pos > 0 {
		m["pos"] = pos
	}
}

func toValues(ns []Node) []any {
	out := make([]any, 0, len(ns))
	for _, n := range ns {
		out = append(out, toValue(n))
	}
	return out
}

func wordValues(ws []*Word) []any {
	out := make([]any, 0, len(ws))
	for _, w := range ws {
		out = append(out, toValue(w))
	}
	return out
}

func obj(tag string) map[string]any {
	return map[string]any{"type": tag}
}

// setNode stores n under key unless it is nil. Typed nil pointers are
// caught here as well as untyped nil interfaces.
func setNode(m map[string]any, key string, n Node) {
	if v := toValue(n); v != nil {
		m[key] = v
	}
}

func toValue(n Node) any {
	switch n := n.(type) {
	case nil:
		return nil
	case *Script:
		if n == nil {
			return nil
		}
		m := obj(TypeScript)
		m["commands"] = toValues(n.Commands)
		return m
	case *Pipeline:
		if n == nil {
			return nil
		}
		m := obj(TypePipeline)
		m["commands"] = toValues(n.Commands)
		return m
	case *LogicalExpression:
		if n == nil {
			return nil
		}
		m := obj(TypeLogicalExpression)
		m["op"] = n.Op
		setNode(m, "left", n.Left)
		setNode(m, "right", n.Right)
		return m
	case *Command:
		if n == nil {
			return nil
		}
		m := obj(TypeCommand)
		setNode(m, "name", n.Name)
		if len(n.Prefix) > 0 {
			m["prefix"] = toValues(n.Prefix)
		}
		m["suffix"] = toValues(n.Suffix)
		return m
	case *Word:
		if n == nil {
			return nil
		}
		m := obj(TypeWord)
		m["text"] = n.Text
		if n.QuoteChar != "" {
			m["quoteChar"] = n.QuoteChar
		}
		if len(n.Expansions) > 0 {
			m["expansions"] = toValues(n.Expansions)
		}
		return m
	case *AssignmentWord:
		if n == nil {
			return nil
		}
		m := obj(TypeAssignmentWord)
		m["text"] = n.Text
		return m
	case *Redirect:
		if n == nil {
			return nil
		}
		m := obj(TypeRedirect)
		m["op"] = n.Op
		setNode(m, "file", n.File)
		return m
	case *CompoundList:
		if n == nil {
			return nil
		}
		m := obj(TypeCompoundList)
		m["commands"] = toValues(n.Commands)
		return m
	case *Subshell:
		if n == nil {
			return nil
		}
		m := obj(TypeSubshell)
		setNode(m, "list", n.List)
		return m
	case *For:
		if n == nil {
			return nil
		}
		m := obj(TypeFor)
		setNode(m, "name", n.Name)
		if n.WordList != nil {
			m["wordlist"] = wordValues(n.WordList)
		}
		setNode(m, "do", n.Do)
		return m
	case *Case:
		if n == nil {
			return nil
		}
		m := obj(TypeCase)
		setNode(m, "clause", n.Word)
		items := make([]any, 0, len(n.Items))
		for _, it := range n.Items {
			items = append(items, toValue(it))
		}
		m["cases"] = items
		return m
	case *CaseItem:
		if n == nil {
			return nil
		}
		m := obj(TypeCaseItem)
		m["pattern"] = wordValues(n.Patterns)
		setNode(m, "body", n.Body)
		return m
	case *If:
		if n == nil {
			return nil
		}
		m := obj(TypeIf)
		setNode(m, "clause", n.Clause)
		setNode(m, "then", n.Then)
		setNode(m, "else", n.Else)
		return m
	case *While:
		if n == nil {
			return nil
		}
		m := obj(TypeWhile)
		setNode(m, "clause", n.Clause)
		setNode(m, "do", n.Do)
		return m
	case *Until:
		if n == nil {
			return nil
		}
		m := obj(TypeUntil)
		setNode(m, "clause", n.Clause)
		setNode(m, "do", n.Do)
		return m
	case *Function:
		if n == nil {
			return nil
		}
		m := obj(TypeFunction)
		setNode(m, "name", n.Name)
		setNode(m, "body", n.Body)
		return m
	case *ArithmeticExpansion:
		if n == nil {
			return nil
		}
		m := obj(TypeArithmeticExpansion)
		m["expression"] = n.Expression
		m["text"] = n.Text
		setPos(m, n.Pos)
		return m
	case *CommandExpansion:
		if n == nil {
			return nil
		}
		m := obj(TypeCommandExpansion)
		m["command"] = n.Command
		m["text"] = n.Text
		setPos(m, n.Pos)
		return m
	case *ParameterExpansion:
		if n == nil {
			return nil
		}
		m := obj(TypeParameterExpansion)
		m["parameter"] = n.Parameter
		m["text"] = n.Text
		setPos(m, n.Pos)
		return m
	case *Unknown:
		if n == nil {
			return nil
		}
		return obj(n.Tag)
	default:
		return nil
	}
}

type decoder struct {
	m map[string]any
}

func (d decoder) str(key string) (string, error) {
	v, ok := d.m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

// pos reads an expansion's optional "pos" offset.
func (d decoder) pos() (int, error) {
	v, ok := d.m["pos"]
	if !ok || v == nil {
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok || f < 0 || f != float64(int(f)) {
		return 0, fmt.Errorf("field %q: expected non-negative integer, got %v", "pos", v)
	}
	return int(f), nil
}

func (d decoder) node(key string) (Node, error) {
	v, ok := d.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	n, err := fromValue(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

func (d decoder) nodes(key string) ([]Node, error) {
	v, ok := d.m[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q: expected array, got %T", key, v)
	}
	out := make([]Node, 0, len(list))
	for i, item := range list {
		n, err := fromValue(item)
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (d decoder) word(key string) (*Word, error) {
	n, err := d.node(key)
	if err != nil || n == nil {
		return nil, err
	}
	w, ok := n.(*Word)
	if !ok {
		return nil, fmt.Errorf("field %q: expected Word, got %s", key, n.Type())
	}
	return w, nil
}

func (d decoder) words(key string) ([]*Word, error) {
	ns, err := d.nodes(key)
	if err != nil || ns == nil {
		return nil, err
	}
	out := make([]*Word, 0, len(ns))
	for i, n := range ns {
		w, ok := n.(*Word)
		if !ok {
			return nil, fmt.Errorf("field %q[%d]: expected Word, got %s", key, i, n.Type())
		}
		out = append(out, w)
	}
	return out, nil
}

func (d decoder) list(key string) (*CompoundList, error) {
	n, err := d.node(key)
	if err != nil || n == nil {
		return nil, err
	}
	cl, ok := n.(*CompoundList)
	if !ok {
		return nil, fmt.Errorf("field %q: expected CompoundList, got %s", key, n.Type())
	}
	return cl, nil
}

func fromValue(v any) (Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	d := decoder{m: m}
	tag, err := d.str("type")
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return nil, fmt.Errorf("missing node type")
	}

	switch tag {
	case TypeScript:
		cmds, err := d.nodes("commands")
		return &Script{Commands: cmds}, err
	case TypePipeline:
		cmds, err := d.nodes("commands")
		return &Pipeline{Commands: cmds}, err
	case TypeCompoundList:
		cmds, err := d.nodes("commands")
		return &CompoundList{Commands: cmds}, err
	case TypeLogicalExpression:
		op, err := d.str("op")
		if err != nil {
			return nil, err
		}
		left, err := d.node("left")
		if err != nil {
			return nil, err
		}
		right, err := d.node("right")
		return &LogicalExpression{Op: op, Left: left, Right: right}, err
	case TypeCommand:
		name, err := d.word("name")
		if err != nil {
			return nil, err
		}
		prefix, err := d.nodes("prefix")
		if err != nil {
			return nil, err
		}
		suffix, err := d.nodes("suffix")
		return &Command{Name: name, Prefix: prefix, Suffix: suffix}, err
	case TypeWord:
		text, err := d.str("text")
		if err != nil {
			return nil, err
		}
		qc, err := d.str("quoteChar")
		if err != nil {
			return nil, err
		}
		exps, err := d.nodes("expansions")
		return &Word{Text: text, QuoteChar: qc, Expansions: exps}, err
	case TypeAssignmentWord:
		text, err := d.str("text")
		return &AssignmentWord{Text: text}, err
	case TypeRedirect:
		op, err := d.str("op")
		if err != nil {
			return nil, err
		}
		file, err := d.word("file")
		return &Redirect{Op: op, File: file}, err
	case TypeSubshell:
		l, err := d.list("list")
		return &Subshell{List: l}, err
	case TypeFor:
		name, err := d.word("name")
		if err != nil {
			return nil, err
		}
		wl, err := d.words("wordlist")
		if err != nil {
			return nil, err
		}
		do, err := d.list("do")
		return &For{Name: name, WordList: wl, Do: do}, err
	case TypeCase:
		w, err := d.word("clause")
		if err != nil {
			return nil, err
		}
		ns, err := d.nodes("cases")
		if err != nil {
			return nil, err
		}
		c := &Case{Word: w}
		for i, n := range ns {
			it, ok := n.(*CaseItem)
			if !ok {
				return nil, fmt.Errorf("field \"cases\"[%d]: expected CaseItem, got %s", i, n.Type())
			}
			c.Items = append(c.Items, it)
		}
		return c, nil
	case TypeCaseItem:
		pats, err := d.words("pattern")
		if err != nil {
			return nil, err
		}
		body, err := d.list("body")
		return &CaseItem{Patterns: pats, Body: body}, err
	case TypeIf:
		clause, err := d.list("clause")
		if err != nil {
			return nil, err
		}
		then, err := d.list("then")
		if err != nil {
			return nil, err
		}
		els, err := d.node("else")
		return &If{Clause: clause, Then: then, Else: els}, err
	case TypeWhile, TypeUntil:
		clause, err := d.list("clause")
		if err != nil {
			return nil, err
		}
		do, err := d.list("do")
		if err != nil {
			return nil, err
		}
		if tag == TypeWhile {
			return &While{Clause: clause, Do: do}, nil
		}
		return &Until{Clause: clause, Do: do}, nil
	case TypeFunction:
		name, err := d.word("name")
		if err != nil {
			return nil, err
		}
		body, err := d.list("body")
		return &Function{Name: name, Body: body}, err
	case TypeArithmeticExpansion:
		expr, err := d.str("expression")
		if err != nil {
			return nil, err
		}
		text, err := d.str("text")
		if err != nil {
			return nil, err
		}
		pos, err := d.pos()
		return &ArithmeticExpansion{Expression: expr, Text: text, Pos: pos}, err
	case TypeCommandExpansion:
		cmd, err := d.str("command")
		if err != nil {
			return nil, err
		}
		text, err := d.str("text")
		if err != nil {
			return nil, err
		}
		pos, err := d.pos()
		return &CommandExpansion{Command: cmd, Text: text, Pos: pos}, err
	case TypeParameterExpansion:
		param, err := d.str("parameter")
		if err != nil {
			return nil, err
		}
		text, err := d.str("text")
		if err != nil {
			return nil, err
		}
		pos, err := d.pos()
		return &ParameterExpansion{Parameter: param, Text: text, Pos: pos}, err
	default:
		return &Unknown{Tag: tag}, nil
	}
}
