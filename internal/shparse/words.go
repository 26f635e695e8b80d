// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package shparse

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/marcelocantos/stagecraft/internal/ast"
)

// word flattens a syntax.Word into an ast.Word. Quotes and backslash
// escapes are removed from the text and recorded in QuoteChar; expansions
// keep their source notation.
func (c converter) word(w *syntax.Word) (*ast.Word, error) {
	if w == nil {
		return &ast.Word{}, nil
	}
	out := &ast.Word{}
	var sb strings.Builder
	single, double, escaped := false, false, false

	for _, part := range w.Parts {
		switch x := part.(type) {
		case *syntax.Lit:
			text, esc := unescape(x.Value)
			escaped = escaped || esc
			sb.WriteString(text)
		case *syntax.SglQuoted:
			if x.Dollar {
				return nil, errorf("ANSI-C quoting ($'...') is not supported")
			}
			single = true
			sb.WriteString(x.Value)
		case *syntax.DblQuoted:
			if x.Dollar {
				return nil, errorf("locale quoting ($\"...\") is not supported")
			}
			double = true
			for _, inner := range x.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					sb.WriteString(unescapeDouble(lit.Value))
					continue
				}
				if err := c.expansion(inner, out, &sb); err != nil {
					return nil, err
				}
			}
		default:
			if err := c.expansion(part, out, &sb); err != nil {
				return nil, err
			}
		}
	}

	out.Text = sb.String()
	switch {
	case double, (single || escaped) && len(out.Expansions) > 0:
		out.QuoteChar = `"`
	case single, escaped:
		out.QuoteChar = "'"
	}
	return out, nil
}

// expansion appends the source notation of an expanding word part to sb
// and records it on out.
func (c converter) expansion(part syntax.WordPart, out *ast.Word, sb *strings.Builder) error {
	text := c.slice(part)
	pos := sb.Len()
	switch x := part.(type) {
	case *syntax.ParamExp:
		param := ""
		if x.Param != nil {
			param = x.Param.Value
		}
		out.Expansions = append(out.Expansions, &ast.ParameterExpansion{Parameter: param, Text: text, Pos: pos})
	case *syntax.CmdSubst:
		var inner string
		if x.Backquotes {
			inner = strings.TrimSuffix(strings.TrimPrefix(text, "`"), "`")
		} else {
			inner = strings.TrimSuffix(strings.TrimPrefix(text, "$("), ")")
		}
		out.Expansions = append(out.Expansions,
			&ast.CommandExpansion{Command: strings.TrimSpace(inner), Text: text, Pos: pos})
	case *syntax.ArithmExp:
		inner := strings.TrimSuffix(strings.TrimPrefix(text, "$(("), "))")
		out.Expansions = append(out.Expansions,
			&ast.ArithmeticExpansion{Expression: strings.TrimSpace(inner), Text: text, Pos: pos})
	case *syntax.ExtGlob, *syntax.BraceExp:
		// Globs and brace expansions are plain text to the tree.
	default:
		return errorf("unsupported word part: %s", text)
	}
	sb.WriteString(text)
	return nil
}

// unescape removes backslash escapes from an unquoted literal. It reports
// whether any escaped character remains in the result; line continuations
// do not count.
func unescape(s string) (string, bool) {
	if !strings.Contains(s, `\`) {
		return s, false
	}
	var sb strings.Builder
	escaped := false
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] == '\n' {
				continue
			}
			escaped = true
		}
		sb.WriteByte(s[i])
	}
	return sb.String(), escaped
}

// unescapeDouble removes the escapes that are meaningful inside double
// quotes; other backslashes are literal.
func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '"', '\\', '$', '`':
				i++
			case '\n':
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
