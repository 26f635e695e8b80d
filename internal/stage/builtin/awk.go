// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Awk = &Spec{
	Name: "awk",
	Desc: "pattern scanning and processing language",
	Flags: []Flag{
		{Field: "separator", Short: "-F", Long: "--field-separator", Value: true},
		{Field: "assign", Short: "-v", Long: "--assign", Value: true, Repeat: true},
	},
	Args: []Arg{
		{Field: "program"},
		{Field: "files", Rest: true, Split: true},
	},
}
