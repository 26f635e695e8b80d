// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Cat = &Spec{
	Name: "cat",
	Desc: "concatenate files",
	Flags: []Flag{
		{Field: "number", Short: "-n", Long: "--number"},
		{Field: "numberNonblank", Short: "-b", Long: "--number-nonblank"},
		{Field: "squeezeBlank", Short: "-s", Long: "--squeeze-blank"},
	},
	Args: []Arg{
		{Field: "files", Rest: true, Split: true},
	},
}
