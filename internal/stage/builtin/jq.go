// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Jq = &Spec{
	Name: "jq",
	Desc: "command-line JSON processor",
	Flags: []Flag{
		{Field: "raw", Short: "-r", Long: "--raw-output"},
		{Field: "compact", Short: "-c", Long: "--compact-output"},
		{Field: "slurp", Short: "-s", Long: "--slurp"},
		{Field: "nullInput", Short: "-n", Long: "--null-input"},
	},
	Args: []Arg{
		{Field: "filter"},
		{Field: "files", Rest: true, Split: true},
	},
}
