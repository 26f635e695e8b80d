// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package stage bridges ast.Command nodes and typed stage records.
package stage

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/marcelocantos/stagecraft/internal/ast"
)

// Fields holds a module's editable values. Values are string or bool.
type Fields map[string]any

// String returns the string value of key, or "".
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Bool returns the boolean value of key, or false.
func (f Fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Clone returns a shallow copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// Module is one stage as a typed record. Type names the plugin that
// produced it.
type Module struct {
	Type   string
	Fields Fields
}

// Operator records how a module relates to the next one.
type Operator string

const (
	OpNone Operator = ""     // end of sequence
	OpPipe Operator = "pipe" // stdout feeds the next stage
	OpAnd  Operator = "and"  // next stage runs if this one succeeds
	OpOr   Operator = "or"   // next stage runs if this one fails
)

// EnhancedModule is a module together with its relationship to the next
// module in the list.
type EnhancedModule struct {
	Module
	Operator Operator
}

// Plugin converts between commands with a given name and modules.
//
// Parse must accept any command carrying the plugin's name, degrading
// missing arguments to default field values. Compile must be a left
// inverse of Parse for every module shape Parse produces.
type Plugin interface {
	// CommandName is the command this plugin handles.
	CommandName() string

	// Description is a one-line summary for listings.
	Description() string

	Parse(cmd *ast.Command) Module
	Compile(m Module) *ast.Command

	// Schema returns a JSON schema for the module fields, or nil.
	Schema() map[string]any
}

const (
	keyType     = "type"
	keyOperator = "operator"
)

func (m Module) flat() map[string]any {
	out := make(map[string]any, len(m.Fields)+1)
	for k, v := range m.Fields {
		out[k] = v
	}
	out[keyType] = m.Type
	return out
}

func moduleFrom(raw map[string]any) (Module, error) {
	t, _ := raw[keyType].(string)
	if t == "" {
		return Module{}, fmt.Errorf("module: missing %q", keyType)
	}
	delete(raw, keyType)
	return Module{Type: t, Fields: Fields(raw)}, nil
}

// MarshalJSON writes the module as a flat object: {"type": ..., fields...}.
func (m Module) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.flat())
}

func (m *Module) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	mod, err := moduleFrom(raw)
	if err != nil {
		return err
	}
	*m = mod
	return nil
}

// MarshalJSON writes the module flat with an "operator" key when set.
func (e EnhancedModule) MarshalJSON() ([]byte, error) {
	out := e.Module.flat()
	if e.Operator != OpNone {
		out[keyOperator] = string(e.Operator)
	}
	return json.Marshal(out)
}

func (e *EnhancedModule) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	op, _ := raw[keyOperator].(string)
	delete(raw, keyOperator)
	mod, err := moduleFrom(raw)
	if err != nil {
		return err
	}
	*e = EnhancedModule{Module: mod, Operator: Operator(op)}
	return nil
}
