// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Uniq = &Spec{
	Name: "uniq",
	Desc: "report or omit repeated lines",
	Flags: []Flag{
		{Field: "count", Short: "-c", Long: "--count"},
		{Field: "repeated", Short: "-d", Long: "--repeated"},
		{Field: "unique", Short: "-u", Long: "--unique"},
		{Field: "ignoreCase", Short: "-i", Long: "--ignore-case"},
	},
	Args: []Arg{
		{Field: "input"},
		{Field: "output"},
	},
}
