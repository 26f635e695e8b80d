// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Head = &Spec{
	Name: "head",
	Desc: "output the first part of input",
	Flags: []Flag{
		{Field: "lines", Short: "-n", Long: "--lines", Value: true},
		{Field: "bytes", Short: "-c", Long: "--bytes", Value: true},
	},
	Args: []Arg{
		{Field: "files", Rest: true, Split: true},
	},
}
