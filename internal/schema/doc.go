// Package schema compiles tool input shapes into runtime validators.
//
// Shapes are authored as *jsonschema.Schema values (github.com/google/jsonschema-go),
// advertised to callers as plain JSON objects, and validated with
// github.com/santhosh-tekuri/jsonschema/v6, whose output is flattened into
// path/message diagnostics.
package schema
