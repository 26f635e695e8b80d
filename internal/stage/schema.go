// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package stage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ObjectSchema builds a closed JSON schema for a module whose fields have
// the given JSON types ("string" or "boolean").
func ObjectSchema(props map[string]string) map[string]any {
	p := make(map[string]any, len(props))
	for name, typ := range props {
		p[name] = map[string]any{"type": typ}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           p,
		"additionalProperties": false,
	}
}

// Validate checks m's fields against the schema of the plugin that owns
// m.Type. Modules without a plugin or a schema always validate.
func (r *Registry) Validate(m Module) error {
	var p Plugin
	if m.Type == GenericType {
		p = Generic
	} else {
		var ok bool
		if p, ok = r.Lookup(m.Type); !ok {
			return nil
		}
	}

	sch, err := r.schemaFor(m.Type, p)
	if err != nil || sch == nil {
		return err
	}

	fields := map[string]any(m.Fields)
	if fields == nil {
		fields = map[string]any{}
	}
	if err := sch.Validate(fields); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%s: invalid fields: %s", m.Type, ve.Error())
		}
		return fmt.Errorf("%s: %w", m.Type, err)
	}
	return nil
}

func (r *Registry) schemaFor(name string, p Plugin) (*jsonschema.Schema, error) {
	r.mu.RLock()
	sch, ok := r.schemas[name]
	r.mu.RUnlock()
	if ok {
		return sch, nil
	}

	raw := p.Schema()
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal schema: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	url := "stage://" + name + ".json"
	if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%s: load schema: %w", name, err)
	}
	sch, err = c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("%s: compile schema: %w", name, err)
	}

	r.mu.Lock()
	r.schemas[name] = sch
	r.mu.Unlock()
	return sch, nil
}
