// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

// Curl transfers a URL. Headers are newline-separated in the headers field.
var Curl = &Spec{
	Name: "curl",
	Desc: "transfer data from or to a server",
	Flags: []Flag{
		{Field: "method", Short: "-X", Long: "--request", Value: true},
		{Field: "headers", Short: "-H", Long: "--header", Value: true, Repeat: true},
		{Field: "data", Short: "-d", Long: "--data", Value: true},
		{Field: "output", Short: "-o", Long: "--output", Value: true},
		{Field: "user", Short: "-u", Long: "--user", Value: true},
		{Field: "silent", Short: "-s", Long: "--silent"},
		{Field: "showError", Short: "-S", Long: "--show-error"},
		{Field: "location", Short: "-L", Long: "--location"},
		{Field: "include", Short: "-i", Long: "--include"},
		{Field: "fail", Short: "-f", Long: "--fail"},
		{Field: "insecure", Short: "-k", Long: "--insecure"},
	},
	Args: []Arg{
		{Field: "url"},
	},
}
