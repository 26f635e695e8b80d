// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

// Xargs builds command lines from input. Everything after the first
// positional word is the command to run.
var Xargs = &Spec{
	Name: "xargs",
	Desc: "build and execute command lines from standard input",
	Flags: []Flag{
		{Field: "maxArgs", Short: "-n", Long: "--max-args", Value: true},
		{Field: "replace", Short: "-I", Value: true},
		{Field: "null", Short: "-0", Long: "--null"},
		{Field: "parallel", Short: "-P", Long: "--max-procs", Value: true},
	},
	Args: []Arg{
		{Field: "command", Rest: true, Split: true},
	},
	Leading: true,
}
