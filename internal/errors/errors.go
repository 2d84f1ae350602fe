package errors

import (
	"errors"
	"fmt"
	"strings"
)

// HostError is the base interface for all toolhost errors.
type HostError interface {
	error
	IsHostError() bool
}

// Compile-time verification that all error types implement HostError.
var (
	_ HostError = (*ToolError)(nil)
	_ HostError = (*SchemaError)(nil)
	_ HostError = (*ConfigNotFoundError)(nil)
	_ HostError = (*HandlerError)(nil)
)

// Sentinel errors. ToolError values match these through errors.Is via their Kind.
var (
	// ErrUnknownTool indicates the requested tool is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolNotEnabled indicates the tool is registered but not in the enabled set.
	ErrToolNotEnabled = errors.New("tool not enabled")

	// ErrInvalidParams indicates missing or schema-invalid arguments.
	ErrInvalidParams = errors.New("invalid params")

	// ErrInvalidToolsetName indicates a trigger batch named a tool that does not exist.
	// It also matches ErrInvalidParams.
	ErrInvalidToolsetName = errors.New("invalid toolset name")

	// ErrMetaTool indicates an attempt to remove or replace a dynamic discovery tool.
	ErrMetaTool = errors.New("dynamic discovery tools cannot be modified")

	// ErrEmptyToolName indicates a tool definition without a name.
	ErrEmptyToolName = errors.New("tool name is empty")

	// ErrNilHandler indicates a tool definition without a handler.
	ErrNilHandler = errors.New("tool handler is nil")
)

// Diagnostic describes one schema violation.
type Diagnostic struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return d.Message
	}

	return d.Path + ": " + d.Message
}

// ToolError is returned by registry operations. Kind is one of the sentinel
// errors above.
type ToolError struct {
	Kind        error
	Tool        string
	Message     string
	Names       []string
	Diagnostics []Diagnostic
	Err         error
}

func (e *ToolError) Error() string {
	var sb strings.Builder

	kind := e.Kind
	if kind == nil {
		kind = ErrInvalidParams
	}

	sb.WriteString(kind.Error())

	if e.Tool != "" {
		fmt.Fprintf(&sb, ": %s", e.Tool)
	}

	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}

	if len(e.Names) > 0 {
		fmt.Fprintf(&sb, " [%s]", strings.Join(e.Names, ", "))
	}

	if len(e.Diagnostics) > 0 {
		parts := make([]string, 0, len(e.Diagnostics))
		for _, d := range e.Diagnostics {
			parts = append(parts, d.String())
		}

		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, "; "))
	}

	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind. InvalidToolsetName is a
// refinement of InvalidParams and matches both.
func (e *ToolError) Is(target error) bool {
	if target == nil {
		return false
	}

	if target == e.Kind {
		return true
	}

	return e.Kind == ErrInvalidToolsetName && target == ErrInvalidParams
}

// IsHostError implements HostError.
func (e *ToolError) IsHostError() bool { return true }

// SchemaError indicates a tool's input shape could not be compiled.
type SchemaError struct {
	Tool string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("compile input schema for %q: %v", e.Tool, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsHostError implements HostError.
func (e *SchemaError) IsHostError() bool { return true }

// HandlerError marks an error returned by a tool handler. It is always an
// internal failure on the wire, whatever Err wraps.
type HandlerError struct {
	Tool string
	Err  error
}

func (e *HandlerError) Error() string {
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// IsHostError implements HostError.
func (e *HandlerError) IsHostError() bool { return true }

// ConfigNotFoundError indicates no configuration file exists at the
// searched paths.
type ConfigNotFoundError struct {
	SearchedPaths []string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("toolhost config not found (searched: %s)", strings.Join(e.SearchedPaths, ", "))
}

// IsHostError implements HostError.
func (e *ConfigNotFoundError) IsHostError() bool { return true }

// UnknownTool returns an ErrUnknownTool error for name.
func UnknownTool(name string) *ToolError {
	return &ToolError{Kind: ErrUnknownTool, Tool: name}
}

// ToolNotEnabled returns an ErrToolNotEnabled error for name.
func ToolNotEnabled(name string) *ToolError {
	return &ToolError{Kind: ErrToolNotEnabled, Tool: name}
}

// InvalidParams returns an ErrInvalidParams error for tool.
func InvalidParams(tool, msg string, diags ...Diagnostic) *ToolError {
	return &ToolError{
		Kind:        ErrInvalidParams,
		Tool:        tool,
		Message:     msg,
		Diagnostics: diags,
	}
}

// InvalidToolsetName returns an ErrInvalidToolsetName error listing the
// names that do not exist.
func InvalidToolsetName(tool string, names []string) *ToolError {
	return &ToolError{
		Kind:  ErrInvalidToolsetName,
		Tool:  tool,
		Names: names,
	}
}
