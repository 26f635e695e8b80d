// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

// Grep filters lines matching a pattern.
var Grep = &Spec{
	Name: "grep",
	Desc: "print lines matching a pattern",
	Flags: []Flag{
		{Field: "ignoreCase", Short: "-i", Long: "--ignore-case"},
		{Field: "invert", Short: "-v", Long: "--invert-match"},
		{Field: "lineNumber", Short: "-n", Long: "--line-number"},
		{Field: "count", Short: "-c", Long: "--count"},
		{Field: "extended", Short: "-E", Long: "--extended-regexp"},
		{Field: "fixed", Short: "-F", Long: "--fixed-strings"},
		{Field: "word", Short: "-w", Long: "--word-regexp"},
		{Field: "onlyMatching", Short: "-o", Long: "--only-matching"},
		{Field: "recursive", Short: "-r", Long: "--recursive"},
		{Field: "filesWithMatches", Short: "-l", Long: "--files-with-matches"},
		{Field: "after", Short: "-A", Long: "--after-context", Value: true},
		{Field: "before", Short: "-B", Long: "--before-context", Value: true},
		{Field: "context", Short: "-C", Long: "--context", Value: true},
	},
	Args: []Arg{
		{Field: "pattern"},
		{Field: "files", Rest: true, Split: true},
	},
}
