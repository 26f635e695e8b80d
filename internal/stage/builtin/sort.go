// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Sort = &Spec{
	Name: "sort",
	Desc: "sort lines of text",
	Flags: []Flag{
		{Field: "reverse", Short: "-r", Long: "--reverse"},
		{Field: "numeric", Short: "-n", Long: "--numeric-sort"},
		{Field: "unique", Short: "-u", Long: "--unique"},
		{Field: "ignoreCase", Short: "-f", Long: "--ignore-case"},
		{Field: "human", Short: "-h", Long: "--human-numeric-sort"},
		{Field: "key", Short: "-k", Long: "--key", Value: true},
		{Field: "separator", Short: "-t", Long: "--field-separator", Value: true},
	},
	Args: []Arg{
		{Field: "files", Rest: true, Split: true},
	},
}
