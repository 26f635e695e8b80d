// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package printer renders an ast tree back into shell text.
package printer

import (
	"strings"

	"go.uber.org/zap"

	"github.com/marcelocantos/stagecraft/internal/ast"
)

// Options controls word quoting.
type Options struct {
	// QuoteDot forces quoting of words containing a literal ".".
	QuoteDot bool
}

// DefaultOptions returns the options used by the package-level Print.
func DefaultOptions() Options {
	return Options{QuoteDot: true}
}

// Printer serializes trees. It is stateless apart from its options and is
// safe for concurrent use.
type Printer struct {
	opts   Options
	logger *zap.Logger
}

// New creates a printer. A nil logger discards warnings.
func New(opts Options, logger *zap.Logger) *Printer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Printer{opts: opts, logger: logger}
}

var std = New(DefaultOptions(), nil)

// Print renders n with the default options.
func Print(n ast.Node) string {
	return std.Print(n)
}

// Print renders n as shell text. Nodes it cannot render contribute the
// empty string and are logged as warnings.
func (p *Printer) Print(n ast.Node) string {
	switch n := n.(type) {
	case nil:
		return ""
	case *ast.Script:
		return p.join(n.Commands, "; ")
	case *ast.Pipeline:
		return p.join(n.Commands, " | ")
	case *ast.LogicalExpression:
		left, right := p.Print(n.Left), p.Print(n.Right)
		if n.Op == ast.OpSeq {
			return left + "; " + right
		}
		return left + " " + n.Op + " " + right
	case *ast.Command:
		return p.command(n)
	case *ast.Word:
		return p.word(n)
	case *ast.AssignmentWord:
		return n.Text
	case *ast.Redirect:
		return n.Op + p.word(n.File)
	case *ast.CompoundList:
		return "{ " + p.list(n) + "; }"
	case *ast.Subshell:
		return "(" + p.list(n.List) + ")"
	case *ast.Function:
		return p.word(n.Name) + "() { " + p.list(n.Body) + "; }"
	case *ast.For:
		var sb strings.Builder
		sb.WriteString("for ")
		sb.WriteString(p.word(n.Name))
		if n.WordList != nil {
			sb.WriteString(" in")
			for _, w := range n.WordList {
				sb.WriteString(" ")
				sb.WriteString(p.word(w))
			}
		}
		sb.WriteString("; do ")
		sb.WriteString(p.list(n.Do))
		sb.WriteString("; done")
		return sb.String()
	case *ast.Case:
		var sb strings.Builder
		sb.WriteString("case ")
		sb.WriteString(p.word(n.Word))
		sb.WriteString(" in ")
		for _, it := range n.Items {
			sb.WriteString(p.caseItem(it))
			sb.WriteString(" ")
		}
		sb.WriteString("esac")
		return sb.String()
	case *ast.CaseItem:
		return p.caseItem(n)
	case *ast.If:
		return "if " + p.ifBody(n) + " fi"
	case *ast.While:
		return "while " + p.list(n.Clause) + "; do " + p.list(n.Do) + "; done"
	case *ast.Until:
		return "until " + p.list(n.Clause) + "; do " + p.list(n.Do) + "; done"
	case *ast.ArithmeticExpansion:
		if n.Text != "" {
			return n.Text
		}
		return "$((" + n.Expression + "))"
	case *ast.CommandExpansion:
		if n.Text != "" {
			return n.Text
		}
		return "$(" + n.Command + ")"
	case *ast.ParameterExpansion:
		if n.Text != "" {
			return n.Text
		}
		return "${" + n.Parameter + "}"
	default:
		p.logger.Warn("unhandled node", zap.String("type", n.Type()))
		return ""
	}
}

func (p *Printer) join(nodes []ast.Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, p.Print(n))
	}
	return strings.Join(parts, sep)
}

func (p *Printer) list(cl *ast.CompoundList) string {
	if cl == nil {
		return ""
	}
	return p.join(cl.Commands, "; ")
}

func (p *Printer) command(c *ast.Command) string {
	parts := make([]string, 0, len(c.Prefix)+len(c.Suffix)+1)
	add := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	for _, n := range c.Prefix {
		add(p.Print(n))
	}
	if c.Name != nil {
		add(p.word(c.Name))
	}
	for _, n := range c.Suffix {
		add(p.Print(n))
	}
	return strings.Join(parts, " ")
}

func (p *Printer) caseItem(it *ast.CaseItem) string {
	if it == nil {
		return ""
	}
	pats := make([]string, 0, len(it.Patterns))
	for _, w := range it.Patterns {
		pats = append(pats, p.word(w))
	}
	return strings.Join(pats, "|") + ") " + p.list(it.Body) + ";;"
}

// ifBody renders everything after the leading "if" up to (not including)
// the closing "fi", folding nested Ifs in the else position into elif.
func (p *Printer) ifBody(n *ast.If) string {
	s := p.list(n.Clause) + "; then " + p.list(n.Then) + ";"
	switch e := n.Else.(type) {
	case nil:
	case *ast.If:
		s += " elif " + p.ifBody(e)
	case *ast.CompoundList:
		s += " else " + p.list(e) + ";"
	default:
		s += " else " + p.Print(e) + ";"
	}
	return s
}

func (p *Printer) word(w *ast.Word) string {
	if w == nil {
		return ""
	}
	text := w.Text
	spans := expansionSpans(w)

	q := w.QuoteChar
	if q == "" {
		if !p.needsQuotes(literal(text, spans)) {
			return text
		}
		q = chooseQuote(text, len(spans) > 0)
	}

	// A single quote cannot appear inside '...', and expansions do not
	// expand there.
	if q == `"` || strings.Contains(text, "'") || len(spans) > 0 {
		return `"` + escapeDouble(text, spans) + `"`
	}
	return q + text + q
}

// needsQuotes reports whether literal text must be quoted.
func (p *Printer) needsQuotes(s string) bool {
	if strings.ContainsAny(s, "\n \"'") {
		return true
	}
	return p.opts.QuoteDot && strings.Contains(s, ".")
}

func chooseQuote(text string, expanding bool) string {
	if expanding || strings.Contains(text, "'") {
		return `"`
	}
	return "'"
}

// span is the byte range of one expansion within a word's text.
type span struct{ start, end int }

// expansionSpans locates w's expansions in its text. An expansion whose
// Pos does not point at its text is found by searching forward instead.
func expansionSpans(w *ast.Word) []span {
	var spans []span
	next := 0
	for _, n := range w.Expansions {
		var s string
		var pos int
		switch e := n.(type) {
		case *ast.ArithmeticExpansion:
			s, pos = e.Text, e.Pos
		case *ast.CommandExpansion:
			s, pos = e.Text, e.Pos
		case *ast.ParameterExpansion:
			s, pos = e.Text, e.Pos
		}
		if s == "" {
			continue
		}
		start := -1
		if pos >= next && pos+len(s) <= len(w.Text) && w.Text[pos:pos+len(s)] == s {
			start = pos
		} else if i := strings.Index(w.Text[next:], s); i >= 0 {
			start = next + i
		}
		if start < 0 {
			continue
		}
		spans = append(spans, span{start, start + len(s)})
		next = start + len(s)
	}
	return spans
}

// splitSpans cuts text into alternating literal and expansion segments.
func splitSpans(text string, spans []span, fn func(seg string, expansion bool)) {
	last := 0
	for _, sp := range spans {
		fn(text[last:sp.start], false)
		fn(text[sp.start:sp.end], true)
		last = sp.end
	}
	fn(text[last:], false)
}

// literal returns text with its expansion spans removed.
func literal(text string, spans []span) string {
	var sb strings.Builder
	splitSpans(text, spans, func(seg string, expansion bool) {
		if !expansion {
			sb.WriteString(seg)
		}
	})
	return sb.String()
}

// escapeDouble escapes text for use inside double quotes, leaving
// expansion spans intact.
func escapeDouble(text string, spans []span) string {
	var sb strings.Builder
	splitSpans(text, spans, func(seg string, expansion bool) {
		if expansion {
			sb.WriteString(seg)
			return
		}
		for _, r := range seg {
			switch r {
			case '"', '\\', '$', '`':
				sb.WriteByte('\\')
			}
			sb.WriteRune(r)
		}
	})
	return sb.String()
}
