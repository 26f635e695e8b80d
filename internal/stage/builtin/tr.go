// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Tr = &Spec{
	Name: "tr",
	Desc: "translate or delete characters",
	Flags: []Flag{
		{Field: "delete", Short: "-d", Long: "--delete"},
		{Field: "squeeze", Short: "-s", Long: "--squeeze-repeats"},
		{Field: "complement", Short: "-c", Long: "--complement"},
	},
	Args: []Arg{
		{Field: "set1"},
		{Field: "set2"},
	},
}
