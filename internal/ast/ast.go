// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package ast models a parsed shell command line as a tree of tagged nodes.
//
// Every node reports its tag via Type, and the tag alone determines which
// fields are meaningful. Trees are produced by the shparse package and
// consumed by the printer and the stage plugins.
package ast

// Node tags.
const (
	TypeScript              = "Script"
	TypePipeline            = "Pipeline"
	TypeLogicalExpression   = "LogicalExpression"
	TypeCommand             = "Command"
	TypeWord                = "Word"
	TypeAssignmentWord      = "AssignmentWord"
	TypeRedirect            = "Redirect"
	TypeSubshell            = "Subshell"
	TypeFor                 = "For"
	TypeCase                = "Case"
	TypeCaseItem            = "CaseItem"
	TypeIf                  = "If"
	TypeWhile               = "While"
	TypeUntil               = "Until"
	TypeFunction            = "Function"
	TypeCompoundList        = "CompoundList"
	TypeArithmeticExpansion = "ArithmeticExpansion"
	TypeCommandExpansion    = "CommandExpansion"
	TypeParameterExpansion  = "ParameterExpansion"
)

// Logical operators.
const (
	OpAnd = "&&"
	OpOr  = "||"
	OpSeq = ";"
)

// Node is implemented by every tree node. The set of implementations is
// closed to this package.
type Node interface {
	Type() string
	node()
}

// Script is the root of a parsed command line: a list of statements.
type Script struct {
	Commands []Node
}

// Pipeline connects the stdout of each command to the stdin of the next.
type Pipeline struct {
	Commands []Node
}

// LogicalExpression joins two statements with &&, || or ;.
type LogicalExpression struct {
	Op    string
	Left  Node
	Right Node
}

// Command is a simple command. Prefix holds assignments and redirects that
// precede the name; Suffix holds arguments and redirects that follow it.
type Command struct {
	Name   *Word
	Prefix []Node
	Suffix []Node
}

// Word is a single shell word. Text carries any expansions in their original
// inline notation; Expansions records them as nodes. QuoteChar is the quote
// character the word was written with, if any.
type Word struct {
	Text       string
	QuoteChar  string
	Expansions []Node
}

// AssignmentWord is a NAME=value word, kept verbatim.
type AssignmentWord struct {
	Text string
}

// Redirect is an I/O redirection. Op includes any leading descriptor
// number, e.g. "2>".
type Redirect struct {
	Op   string
	File *Word
}

// CompoundList is a sequence of statements forming a body.
type CompoundList struct {
	Commands []Node
}

// Subshell runs a list in a child shell.
type Subshell struct {
	List *CompoundList
}

// For iterates Name over WordList. A nil WordList means the loop has no
// "in" clause.
type For struct {
	Name     *Word
	WordList []*Word
	Do       *CompoundList
}

// Case matches Word against each item's patterns.
type Case struct {
	Word  *Word
	Items []*CaseItem
}

// CaseItem is one arm of a case statement.
type CaseItem struct {
	Patterns []*Word
	Body     *CompoundList
}

// If is a conditional. Else is nil, another *If (elif), or a *CompoundList.
type If struct {
	Clause *CompoundList
	Then   *CompoundList
	Else   Node
}

// While loops while Clause succeeds.
type While struct {
	Clause *CompoundList
	Do     *CompoundList
}

// Until loops until Clause succeeds.
type Until struct {
	Clause *CompoundList
	Do     *CompoundList
}

// Function is a function definition.
type Function struct {
	Name *Word
	Body *CompoundList
}

// ArithmeticExpansion is $((Expression)). In every expansion node, Pos is
// the byte offset of Text within the enclosing word's text.
type ArithmeticExpansion struct {
	Expression string
	Text       string
	Pos        int
}

// CommandExpansion is $(Command) or `Command`.
type CommandExpansion struct {
	Command string
	Text    string
	Pos     int
}

// ParameterExpansion is $Parameter or ${...}.
type ParameterExpansion struct {
	Parameter string
	Text      string
	Pos       int
}

// Unknown stands in for a node whose tag this package does not recognise.
// It only arises from Decode.
type Unknown struct {
	Tag string
}

func (*Script) Type() string              { return TypeScript }
func (*Pipeline) Type() string            { return TypePipeline }
func (*LogicalExpression) Type() string   { return TypeLogicalExpression }
func (*Command) Type() string             { return TypeCommand }
func (*Word) Type() string                { return TypeWord }
func (*AssignmentWord) Type() string      { return TypeAssignmentWord }
func (*Redirect) Type() string            { return TypeRedirect }
func (*CompoundList) Type() string        { return TypeCompoundList }
func (*Subshell) Type() string            { return TypeSubshell }
func (*For) Type() string                 { return TypeFor }
func (*Case) Type() string                { return TypeCase }
func (*CaseItem) Type() string            { return TypeCaseItem }
func (*If) Type() string                  { return TypeIf }
func (*While) Type() string               { return TypeWhile }
func (*Until) Type() string               { return TypeUntil }
func (*Function) Type() string            { return TypeFunction }
func (*ArithmeticExpansion) Type() string { return TypeArithmeticExpansion }
func (*CommandExpansion) Type() string    { return TypeCommandExpansion }
func (*ParameterExpansion) Type() string  { return TypeParameterExpansion }
func (u *Unknown) Type() string           { return u.Tag }

func (*Script) node()              {}
func (*Pipeline) node()            {}
func (*LogicalExpression) node()   {}
func (*Command) node()             {}
func (*Word) node()                {}
func (*AssignmentWord) node()      {}
func (*Redirect) node()            {}
func (*CompoundList) node()        {}
func (*Subshell) node()            {}
func (*For) node()                 {}
func (*Case) node()                {}
func (*CaseItem) node()            {}
func (*If) node()                  {}
func (*While) node()               {}
func (*Until) node()               {}
func (*Function) node()            {}
func (*ArithmeticExpansion) node() {}
func (*CommandExpansion) node()    {}
func (*ParameterExpansion) node()  {}
func (*Unknown) node()             {}

// EmptyScript is what an empty command line parses to.
func EmptyScript() *Script {
	return &Script{Commands: []Node{&Pipeline{}}}
}

// NewWord returns an unquoted word with the given text.
func NewWord(text string) *Word {
	return &Word{Text: text}
}

// NewCommand builds a command from a name and plain argument strings.
func NewCommand(name string, args ...string) *Command {
	cmd := &Command{}
	if name != "" {
		cmd.Name = NewWord(name)
	}
	for _, a := range args {
		cmd.Suffix = append(cmd.Suffix, NewWord(a))
	}
	return cmd
}

// CommandName returns the command's name, or "" if it has none.
func (c *Command) CommandName() string {
	if c == nil || c.Name == nil {
		return ""
	}
	return c.Name.Text
}

// Args returns the text of the suffix words, skipping redirects and
// assignments.
func (c *Command) Args() []string {
	if c == nil {
		return nil
	}
	var args []string
	for _, n := range c.Suffix {
		if w, ok := n.(*Word); ok {
			args = append(args, w.Text)
		}
	}
	return args
}

// Redirects returns the command's redirects from both prefix and suffix.
func (c *Command) Redirects() []*Redirect {
	if c == nil {
		return nil
	}
	var rs []*Redirect
	for _, list := range [][]Node{c.Prefix, c.Suffix} {
		for _, n := range list {
			if r, ok := n.(*Redirect); ok {
				rs = append(rs, r)
			}
		}
	}
	return rs
}
