package toolhost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/mcp-toolhost/internal/mcp"
	"github.com/wagiedev/mcp-toolhost/internal/registry"
	"github.com/wagiedev/mcp-toolhost/internal/schema"
)

// Re-export MCP SDK types for public API.
type (
	// CallToolResult is the result of a tool call.
	// Use TextResult, ErrorResult, ImageResult or JSONResult to create results.
	CallToolResult = mcp.CallToolResult

	// Content is the interface for content types in tool results.
	Content = mcp.Content

	// TextContent represents text content in a tool result.
	TextContent = mcp.TextContent

	// ImageContent represents image content in a tool result.
	ImageContent = mcp.ImageContent

	// ToolAnnotations describes optional hints about tool behavior.
	// ReadOnlyHint decides whether a tool may be enabled in read-only mode.
	ToolAnnotations = mcp.ToolAnnotations

	// McpTool is a tool as advertised to clients.
	McpTool = mcp.Tool

	// Schema is a JSON Schema object for tool input validation.
	Schema = jsonschema.Schema
)

// ToolHandler executes a tool. args has already been validated against the
// tool's input schema.
//
// Example:
//
//	func(ctx context.Context, args map[string]any) (*toolhost.CallToolResult, error) {
//	    a, b := args["a"].(float64), args["b"].(float64)
//	    return toolhost.TextResult(fmt.Sprintf("Result: %v", a+b)), nil
//	}
type ToolHandler = registry.Handler

// ToolOption configures a Tool during construction.
type ToolOption func(*Tool)

// WithAnnotations sets MCP tool annotations (hints about tool behavior).
func WithAnnotations(annotations *mcp.ToolAnnotations) ToolOption {
	return func(t *Tool) {
		t.ToolAnnotations = annotations
	}
}

// WithReadOnly marks the tool as read-only, which keeps it available in
// read-only mode.
func WithReadOnly() ToolOption {
	return func(t *Tool) {
		if t.ToolAnnotations == nil {
			t.ToolAnnotations = &mcp.ToolAnnotations{}
		}

		t.ToolAnnotations.ReadOnlyHint = true
	}
}

// Tool is a tool definition paired with its handler.
type Tool struct {
	ToolName        string
	ToolDescription string
	ToolSchema      *jsonschema.Schema
	ToolHandler     ToolHandler
	ToolAnnotations *mcp.ToolAnnotations
}

// Name returns the tool name.
func (t *Tool) Name() string {
	return t.ToolName
}

// Description returns the tool description.
func (t *Tool) Description() string {
	return t.ToolDescription
}

// InputSchema returns the JSON Schema for the tool input.
func (t *Tool) InputSchema() *jsonschema.Schema {
	return t.ToolSchema
}

// Handler returns the tool handler function.
func (t *Tool) Handler() ToolHandler {
	return t.ToolHandler
}

// Annotations returns the tool annotations, or nil if not set.
func (t *Tool) Annotations() *mcp.ToolAnnotations {
	return t.ToolAnnotations
}

// ReadOnly reports whether the tool declares readOnlyHint.
func (t *Tool) ReadOnly() bool {
	return t.ToolAnnotations != nil && t.ToolAnnotations.ReadOnlyHint
}

func (t *Tool) capability() registry.Capability {
	return registry.Capability{
		Name:        t.ToolName,
		Description: t.ToolDescription,
		InputSchema: t.ToolSchema,
		Annotations: t.ToolAnnotations,
		Handler:     t.ToolHandler,
	}
}

// NewTool creates a Tool with optional configuration.
//
// A nil inputSchema accepts any object. Use SimpleSchema for convenience or
// build a full Schema for more control.
//
// Example:
//
//	addTool := toolhost.NewTool("add", "Add two numbers",
//	    toolhost.SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
//	    func(ctx context.Context, args map[string]any) (*toolhost.CallToolResult, error) {
//	        a, b := args["a"].(float64), args["b"].(float64)
//	        return toolhost.TextResult(fmt.Sprintf("Result: %v", a+b)), nil
//	    },
//	    toolhost.WithReadOnly(),
//	)
func NewTool(
	name, description string,
	inputSchema *jsonschema.Schema,
	handler ToolHandler,
	opts ...ToolOption,
) *Tool {
	t := &Tool{
		ToolName:        name,
		ToolDescription: description,
		ToolSchema:      inputSchema,
		ToolHandler:     handler,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// TypedHandler executes a tool with arguments decoded into In.
type TypedHandler[In any] func(ctx context.Context, in In) (*mcp.CallToolResult, error)

// NewTypedTool creates a Tool whose input schema is inferred from In.
//
// Arguments are validated against the inferred schema and then decoded into
// In before fn runs.
//
// Example:
//
//	type addInput struct {
//	    A float64 `json:"a"`
//	    B float64 `json:"b"`
//	}
//
//	addTool, err := toolhost.NewTypedTool("add", "Add two numbers",
//	    func(ctx context.Context, in addInput) (*toolhost.CallToolResult, error) {
//	        return toolhost.TextResult(fmt.Sprint(in.A + in.B)), nil
//	    },
//	)
func NewTypedTool[In any](
	name, description string,
	fn TypedHandler[In],
	opts ...ToolOption,
) (*Tool, error) {
	if fn == nil {
		return nil, fmt.Errorf("tool %q: %w", name, ErrNilHandler)
	}

	inputSchema, err := schema.For[In]()
	if err != nil {
		return nil, fmt.Errorf("tool %q: %w", name, err)
	}

	handler := func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
		in, err := decodeInput[In](args)
		if err != nil {
			return ErrorResult(fmt.Sprintf("failed to decode arguments: %v", err)), nil
		}

		return fn(ctx, in)
	}

	return NewTool(name, description, inputSchema, handler, opts...), nil
}

func decodeInput[In any](args map[string]any) (In, error) {
	var in In

	data, err := json.Marshal(args)
	if err != nil {
		return in, err
	}

	if err := json.Unmarshal(data, &in); err != nil {
		return in, err
	}

	return in, nil
}

// SimpleSchema builds an object input schema from property names mapped to
// type names, e.g. {"a": "float64", "tags": "[]string"}. Every property is
// required. Unrecognized type names become strings.
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return schema.Simple(props)
}

// SchemaFromMap converts a map-shaped JSON Schema into a Schema.
func SchemaFromMap(m map[string]any) (*jsonschema.Schema, error) {
	return schema.FromMap(m)
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return internalmcp.TextResult(text)
}

// ErrorResult creates a CallToolResult indicating a tool-level failure.
func ErrorResult(message string) *mcp.CallToolResult {
	return internalmcp.ErrorResult(message)
}

// ImageResult creates a CallToolResult with image content.
func ImageResult(data []byte, mimeType string) *mcp.CallToolResult {
	return internalmcp.ImageResult(data, mimeType)
}

// JSONResult creates a CallToolResult carrying v as JSON text and
// structured content.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	return internalmcp.JSONResult(v)
}
