// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package builtin

import "github.com/marcelocantos/stagecraft/internal/stage"

// All returns every built-in plugin.
func All() []*Spec {
	return []*Spec{
		Awk, Cat, Curl, Cut, Echo, Grep, Head, Jq, Sed, Sort, Tail, Tr, Uniq, Wc, Xargs,
	}
}

// RegisterAll adds all built-in plugins to the registry.
func RegisterAll(r *stage.Registry) {
	for _, s := range All() {
		r.Register(s)
	}
}
