// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

// Echo prints its text. Whitespace between words collapses to one space.
var Echo = &Spec{
	Name: "echo",
	Desc: "display a line of text",
	Flags: []Flag{
		{Field: "noNewline", Short: "-n"},
		{Field: "escapes", Short: "-e"},
	},
	Args: []Arg{
		{Field: "text", Rest: true},
	},
	Leading: true,
}
