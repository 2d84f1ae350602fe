package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
)

// resourceURL is the in-memory location each input shape is compiled under.
// Every Compile uses a fresh compiler, so the URL never collides.
const resourceURL = "mem://input-schema.json"

// ErrNotObject is returned when an input shape does not describe a JSON object.
var ErrNotObject = errors.New(`input schema must have type "object"`)

// Compiled is an input shape compiled into a runtime validator.
type Compiled struct {
	shape *jsonschema.Schema
	raw   json.RawMessage
	sch   *validator.Schema
}

// Compile converts shape into a validator. A nil shape describes an object
// with no declared properties.
func Compile(shape *jsonschema.Schema) (*Compiled, error) {
	if shape == nil {
		shape = Object()
	}

	raw, err := json.Marshal(shape)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}

	doc, err := validator.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}

	if m, ok := doc.(map[string]any); !ok || m["type"] != "object" {
		return nil, ErrNotObject
	}

	c := validator.NewCompiler()
	if err := c.AddResource(resourceURL, doc); err != nil {
		return nil, fmt.Errorf("add input schema: %w", err)
	}

	sch, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("compile input schema: %w", err)
	}

	return &Compiled{shape: shape, raw: raw, sch: sch}, nil
}

// Shape returns the input shape the validator was compiled from.
func (c *Compiled) Shape() *jsonschema.Schema {
	return c.shape
}

// Advertise returns the JSON Schema object advertised to callers. Each call
// returns a fresh copy.
func (c *Compiled) Advertise() map[string]any {
	var out map[string]any
	if err := json.Unmarshal(c.raw, &out); err != nil {
		// raw was produced by json.Marshal and decoded once already in Compile.
		return map[string]any{"type": "object"}
	}

	return out
}

// Validate checks args against the compiled shape. The returned error is a
// *Failure carrying one diagnostic per violation.
func (c *Compiled) Validate(args map[string]any) error {
	// Round-trip through JSON so Go-typed values (ints, structs) validate the
	// same way as decoded wire input.
	raw, err := json.Marshal(args)
	if err != nil {
		return &Failure{Diagnostics: []herrors.Diagnostic{{Message: err.Error()}}}
	}

	inst, err := validator.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &Failure{Diagnostics: []herrors.Diagnostic{{Message: err.Error()}}}
	}

	err = c.sch.Validate(inst)
	if err == nil {
		return nil
	}

	var ve *validator.ValidationError
	if !errors.As(err, &ve) {
		return &Failure{Diagnostics: []herrors.Diagnostic{{Message: err.Error()}}}
	}

	return &Failure{Diagnostics: diagnostics(ve)}
}

// Failure is returned by Validate when arguments do not match the shape.
type Failure struct {
	Diagnostics []herrors.Diagnostic
}

func (f *Failure) Error() string {
	if len(f.Diagnostics) == 0 {
		return "arguments do not match input schema"
	}

	return "arguments do not match input schema: " + f.Diagnostics[0].String()
}

func diagnostics(ve *validator.ValidationError) []herrors.Diagnostic {
	out := ve.BasicOutput()

	units := out.Errors
	if len(units) == 0 {
		units = []validator.OutputUnit{*out}
	}

	diags := make([]herrors.Diagnostic, 0, len(units))

	for _, u := range units {
		if u.Error == nil {
			continue
		}

		diags = append(diags, herrors.Diagnostic{
			Path:    u.InstanceLocation,
			Message: u.Error.String(),
		})
	}

	if len(diags) == 0 {
		diags = append(diags, herrors.Diagnostic{Message: ve.Error()})
	}

	return diags
}
