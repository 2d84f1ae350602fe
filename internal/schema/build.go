package schema

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// Object returns an object schema with no declared properties.
func Object() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

// Simple builds an object shape from property names mapped to type names.
// Go names ("float64", "[]string") and JSON Schema names ("number") are both
// accepted; anything unrecognized becomes a string. Every property is
// required.
func Simple(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, typ := range props {
		properties[name] = propertyShape(typ)
		required = append(required, name)
	}

	slices.Sort(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// jsonTypes maps accepted type names to JSON Schema types.
var jsonTypes = map[string]string{
	"string": "string",

	"int": "integer", "int8": "integer", "int16": "integer", "int32": "integer", "int64": "integer",
	"uint": "integer", "uint8": "integer", "uint16": "integer", "uint32": "integer", "uint64": "integer",
	"integer": "integer",

	"float32": "number", "float64": "number", "float": "number", "number": "number",

	"bool": "boolean", "boolean": "boolean",

	"any": "object", "object": "object", "map[string]any": "object",
}

func propertyShape(typ string) *jsonschema.Schema {
	if elem, ok := strings.CutPrefix(typ, "[]"); ok && elem != "" {
		return &jsonschema.Schema{Type: "array", Items: propertyShape(elem)}
	}

	if t, ok := jsonTypes[typ]; ok {
		return &jsonschema.Schema{Type: t}
	}

	return &jsonschema.Schema{Type: "string"}
}

// FromMap converts a JSON Schema expressed as a generic map.
func FromMap(m map[string]any) (*jsonschema.Schema, error) {
	if m == nil {
		return Object(), nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal schema map: %w", err)
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal schema map: %w", err)
	}

	return &s, nil
}

// For infers an input shape from the Go type T, which must be a struct.
func For[T any]() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer input schema: %w", err)
	}

	if s.Type != "object" {
		return nil, ErrNotObject
	}

	return s, nil
}
