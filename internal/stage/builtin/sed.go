// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

// Sed runs a stream-editing script.
var Sed = &Spec{
	Name: "sed",
	Desc: "stream editor for filtering and transforming text",
	Flags: []Flag{
		{Field: "quiet", Short: "-n", Long: "--quiet"},
		{Field: "extended", Short: "-E", Long: "--regexp-extended"},
		{Field: "inPlace", Short: "-i", Long: "--in-place"},
	},
	Args: []Arg{
		{Field: "script"},
		{Field: "files", Rest: true, Split: true},
	},
}
