// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

var Cut = &Spec{
	Name: "cut",
	Desc: "remove sections from each line",
	Flags: []Flag{
		{Field: "delimiter", Short: "-d", Long: "--delimiter", Value: true},
		{Field: "fields", Short: "-f", Long: "--fields", Value: true},
		{Field: "characters", Short: "-c", Long: "--characters", Value: true},
		{Field: "bytes", Short: "-b", Long: "--bytes", Value: true},
	},
	Args: []Arg{
		{Field: "files", Rest: true, Split: true},
	},
}
