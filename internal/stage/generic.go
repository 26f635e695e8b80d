// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package stage

import (
	"regexp"
	"strings"

	"github.com/marcelocantos/stagecraft/internal/ast"
)

// GenericType is the module type produced by the Generic plugin.
const GenericType = "generic"

// Generic handles every command without a registered plugin. It keeps the
// command name and the arguments as one space-joined string. Arguments
// containing whitespace or quotes cannot be told apart after a round trip.
var Generic Plugin = genericPlugin{}

type genericPlugin struct{}

func (genericPlugin) CommandName() string { return GenericType }
func (genericPlugin) Description() string { return "any command, arguments as free text" }

func (genericPlugin) Schema() map[string]any {
	return ObjectSchema(map[string]string{
		"command": "string",
		"args":    "string",
		"env":     "string",
	})
}

func (genericPlugin) Parse(cmd *ast.Command) Module {
	f := Fields{
		"command": cmd.CommandName(),
		"args":    JoinArgs(cmd.Suffix),
	}
	if len(cmd.Prefix) > 0 {
		f["env"] = JoinArgs(cmd.Prefix)
	}
	return Module{Type: GenericType, Fields: f}
}

func (genericPlugin) Compile(m Module) *ast.Command {
	cmd := ast.NewCommand(m.Fields.String("command"))
	for _, tok := range strings.Fields(m.Fields.String("env")) {
		if strings.Contains(tok, "=") {
			cmd.Prefix = append(cmd.Prefix, &ast.AssignmentWord{Text: tok})
		}
	}
	cmd.Suffix = SplitArgs(m.Fields.String("args"))
	return cmd
}

// JoinArgs renders words, assignments and redirects as space-separated
// text, without quoting.
func JoinArgs(nodes []ast.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *ast.Word:
			parts = append(parts, n.Text)
		case *ast.AssignmentWord:
			parts = append(parts, n.Text)
		case *ast.Redirect:
			file := ""
			if n.File != nil {
				file = n.File.Text
			}
			parts = append(parts, n.Op+file)
		}
	}
	return strings.Join(parts, " ")
}

// shellSpecial holds the characters that change a word's meaning when it
// is written unquoted.
const shellSpecial = "|&;<>()$`\\*?[#~\t"

// Word returns a word holding the literal value v. Values containing shell
// syntax are marked quoted, with ' unless v itself holds one.
func Word(v string) *ast.Word {
	w := ast.NewWord(v)
	if strings.ContainsAny(v, shellSpecial) {
		w.QuoteChar = "'"
		if strings.Contains(v, "'") {
			w.QuoteChar = `"`
		}
	}
	return w
}

var redirectToken = regexp.MustCompile(`^([0-9]*)(>>|>&|<&|<>|>\||&>>|&>|<<<|>|<)(.+)$`)

// SplitArgs splits s on whitespace into literal words. Tokens that look
// like redirects (">out", "2>&1") become Redirect nodes.
func SplitArgs(s string) []ast.Node {
	var nodes []ast.Node
	for _, tok := range strings.Fields(s) {
		if m := redirectToken.FindStringSubmatch(tok); m != nil {
			nodes = append(nodes, &ast.Redirect{Op: m[1] + m[2], File: Word(m[3])})
			continue
		}
		nodes = append(nodes, Word(tok))
	}
	return nodes
}
