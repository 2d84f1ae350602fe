package toolhost

import "github.com/wagiedev/mcp-toolhost/internal/errors"

// Re-export error types from internal package

// ToolError describes a failed registry operation. Kind matches one of the
// sentinel errors below through errors.Is.
type ToolError = errors.ToolError

// SchemaError indicates a tool's input schema could not be compiled.
type SchemaError = errors.SchemaError

// Diagnostic describes one schema violation in a tool's arguments.
type Diagnostic = errors.Diagnostic

// HostError is the base interface for all toolhost errors.
type HostError = errors.HostError

// Re-export sentinel errors from internal package.
var (
	// ErrUnknownTool indicates the requested tool is not registered.
	ErrUnknownTool = errors.ErrUnknownTool

	// ErrToolNotEnabled indicates the tool is registered but not enabled.
	ErrToolNotEnabled = errors.ErrToolNotEnabled

	// ErrInvalidParams indicates missing or schema-invalid arguments.
	ErrInvalidParams = errors.ErrInvalidParams

	// ErrInvalidToolsetName indicates a toggle named a tool that does not
	// exist. It also matches ErrInvalidParams.
	ErrInvalidToolsetName = errors.ErrInvalidToolsetName

	// ErrMetaTool indicates an attempt to remove or replace a dynamic
	// discovery tool.
	ErrMetaTool = errors.ErrMetaTool

	// ErrEmptyToolName indicates a tool definition without a name.
	ErrEmptyToolName = errors.ErrEmptyToolName

	// ErrNilHandler indicates a tool definition without a handler.
	ErrNilHandler = errors.ErrNilHandler
)

// JSONRPCCode returns the JSON-RPC error code a client receives for err.
func JSONRPCCode(err error) int64 {
	return errors.Code(err)
}
