package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Config configures a Host.
type Config struct {
	// Name and Version are reported in the initialize response.
	Name    string
	Version string
	// Instructions are sent to clients during initialization.
	Instructions string
	// Namespace, when set, qualifies tool names as "namespace::tool".
	Namespace string

	Logger *slog.Logger

	Resources []*Resource
	Prompts   []*Prompt

	// Middleware wraps every received MCP request, outermost first.
	Middleware []mcp.Middleware

	KeepAlive time.Duration
	PageSize  int
	// SessionID generates HTTP session IDs. Defaults to ULIDs.
	SessionID func() string
}

// ServerInstance is the map-shaped view of a host used by the JSON-RPC
// dispatcher.
type ServerInstance interface {
	// Name returns the server name.
	Name() string
	// Version returns the server version.
	Version() string
	// ServerInfo returns the serverInfo member of the initialize response.
	ServerInfo() map[string]any
	// Capabilities returns the capabilities member of the initialize response.
	Capabilities() map[string]any
	// Instructions returns the initialize instructions, if any.
	Instructions() string
	// ListTools returns the advertised tool listing.
	ListTools() []map[string]any
	// CallTool runs a tool. Errors are JSON-RPC wire errors.
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (*mcp.CallToolResult, error)
	// ListResources returns the advertised resources.
	ListResources() []map[string]any
	// ReadResource reads a resource by URI.
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
	// ListPrompts returns the advertised prompts.
	ListPrompts() []map[string]any
	// GetPrompt renders a prompt.
	GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error)
}
