// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Tail = &Spec{
	Name: "tail",
	Desc: "output the last part of input",
	Flags: []Flag{
		{Field: "lines", Short: "-n", Long: "--lines", Value: true},
		{Field: "bytes", Short: "-c", Long: "--bytes", Value: true},
		{Field: "follow", Short: "-f", Long: "--follow"},
	},
	Args: []Arg{
		{Field: "files", Rest: true, Split: true},
	},
}
