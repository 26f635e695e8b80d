// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Wc = &Spec{
	Name: "wc",
	Desc: "count lines, words and bytes",
	Flags: []Flag{
		{Field: "lines", Short: "-l", Long: "--lines"},
		{Field: "words", Short: "-w", Long: "--words"},
		{Field: "bytes", Short: "-c", Long: "--bytes"},
		{Field: "chars", Short: "-m", Long: "--chars"},
	},
	Args: []Arg{
		{Field: "files", Rest: true, Split: true},
	},
}
