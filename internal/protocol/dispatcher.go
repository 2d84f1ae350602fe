package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
	"github.com/wagiedev/mcp-toolhost/internal/mcp"
)

// LatestProtocolVersion is returned when a client asks for a version this
// dispatcher does not know.
const LatestProtocolVersion = "2025-06-18"

var supportedProtocolVersions = []string{
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

// Dispatcher answers MCP JSON-RPC messages expressed as generic maps. It is
// meant for hosts reached over a control channel or a plain request/response
// endpoint rather than a session-oriented transport, so it cannot push
// notifications.
type Dispatcher struct {
	log *slog.Logger

	mu      sync.RWMutex
	servers map[string]mcp.ServerInstance
}

// NewDispatcher creates a dispatcher routing to servers by name.
func NewDispatcher(log *slog.Logger, servers ...mcp.ServerInstance) *Dispatcher {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	d := &Dispatcher{
		log:     log.With("component", "dispatcher"),
		servers: make(map[string]mcp.ServerInstance, len(servers)),
	}

	for _, s := range servers {
		d.Register(s)
	}

	return d
}

// Register adds or replaces a server under its name.
func (d *Dispatcher) Register(server mcp.ServerInstance) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.servers[server.Name()] = server
}

// HandleMCPMessage handles a control request of the form
// {"server_name": ..., "message": {...}} and wraps the JSON-RPC response as
// {"mcp_response": {...}}.
func (d *Dispatcher) HandleMCPMessage(ctx context.Context, request map[string]any) (map[string]any, error) {
	serverName, _ := request["server_name"].(string)
	message, _ := request["message"].(map[string]any)

	if message == nil {
		return nil, errors.New("missing message field in mcp_message request")
	}

	resp, err := d.HandleMessage(ctx, serverName, message)
	if err != nil {
		return nil, err
	}

	if resp == nil {
		// Notifications are acknowledged with an empty result.
		resp = map[string]any{
			"jsonrpc": "2.0",
			"id":      messageID(message),
			"result":  map[string]any{},
		}
	}

	return map[string]any{"mcp_response": resp}, nil
}

// HandleMessage routes one JSON-RPC message to the named server and returns
// the response. Notifications return a nil response.
func (d *Dispatcher) HandleMessage(
	ctx context.Context,
	serverName string,
	message map[string]any,
) (map[string]any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	method, _ := message["method"].(string)
	params, _ := message["params"].(map[string]any)
	msgID := messageID(message)

	d.log.Debug("handling MCP message", "server", serverName, "method", method)

	// Notifications never get a response, not even an error.
	if _, hasID := message["id"]; !hasID && strings.HasPrefix(method, "notifications/") {
		return nil, nil
	}

	if v, _ := message["jsonrpc"].(string); v != "2.0" {
		return errorResponse(msgID, herrors.CodeInvalidRequest, "jsonrpc must be \"2.0\"", nil), nil
	}

	d.mu.RLock()
	server, exists := d.servers[serverName]
	d.mu.RUnlock()

	if !exists {
		return errorResponse(msgID, herrors.CodeInvalidRequest,
			fmt.Sprintf("MCP server not found: %s", serverName), nil), nil
	}

	switch method {
	case "initialize":
		return d.handleInitialize(msgID, params, server), nil

	case "notifications/initialized", "notifications/cancelled":
		return nil, nil

	case "ping":
		return result(msgID, map[string]any{}), nil

	case "tools/list":
		return result(msgID, map[string]any{"tools": server.ListTools()}), nil

	case "tools/call":
		return d.handleToolsCall(ctx, msgID, params, server), nil

	case "resources/list":
		return result(msgID, map[string]any{"resources": server.ListResources()}), nil

	case "resources/read":
		return d.handleResourcesRead(ctx, msgID, params, server), nil

	case "prompts/list":
		return result(msgID, map[string]any{"prompts": server.ListPrompts()}), nil

	case "prompts/get":
		return d.handlePromptsGet(ctx, msgID, params, server), nil

	default:
		return errorResponse(msgID, herrors.CodeMethodNotFound,
			fmt.Sprintf("Method not found: %s", method), nil), nil
	}
}

func (d *Dispatcher) handleInitialize(msgID any, params map[string]any, server mcp.ServerInstance) map[string]any {
	version := LatestProtocolVersion
	if requested, _ := params["protocolVersion"].(string); slices.Contains(supportedProtocolVersions, requested) {
		version = requested
	}

	res := map[string]any{
		"protocolVersion": version,
		"capabilities":    server.Capabilities(),
		"serverInfo":      server.ServerInfo(),
	}

	if instructions := server.Instructions(); instructions != "" {
		res["instructions"] = instructions
	}

	return result(msgID, res)
}

func (d *Dispatcher) handleToolsCall(
	ctx context.Context,
	msgID any,
	params map[string]any,
	server mcp.ServerInstance,
) map[string]any {
	if params == nil {
		return errorResponse(msgID, herrors.CodeInvalidParams, "Missing params for tools/call", nil)
	}

	toolName, _ := params["name"].(string)
	if toolName == "" {
		return errorResponse(msgID, herrors.CodeInvalidParams, "Missing tool name in params", nil)
	}

	var arguments json.RawMessage

	if raw, ok := params["arguments"]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return errorResponse(msgID, herrors.CodeInvalidParams, "Invalid arguments: "+err.Error(), nil)
		}

		arguments = data
	}

	res, err := server.CallTool(ctx, toolName, arguments)
	if err != nil {
		return wireErrorResponse(msgID, err)
	}

	return result(msgID, mcp.ResultToMap(res))
}

func (d *Dispatcher) handleResourcesRead(
	ctx context.Context,
	msgID any,
	params map[string]any,
	server mcp.ServerInstance,
) map[string]any {
	uri, _ := params["uri"].(string)
	if uri == "" {
		return errorResponse(msgID, herrors.CodeInvalidParams, "Missing uri in params", nil)
	}

	res, err := server.ReadResource(ctx, uri)
	if err != nil {
		return wireErrorResponse(msgID, err)
	}

	return result(msgID, toMap(res))
}

func (d *Dispatcher) handlePromptsGet(
	ctx context.Context,
	msgID any,
	params map[string]any,
	server mcp.ServerInstance,
) map[string]any {
	name, _ := params["name"].(string)
	if name == "" {
		return errorResponse(msgID, herrors.CodeInvalidParams, "Missing prompt name in params", nil)
	}

	args := make(map[string]string)

	if raw, ok := params["arguments"].(map[string]any); ok {
		for k, v := range raw {
			s, ok := v.(string)
			if !ok {
				return errorResponse(msgID, herrors.CodeInvalidParams,
					fmt.Sprintf("prompt argument %q must be a string", k), nil)
			}

			args[k] = s
		}
	}

	res, err := server.GetPrompt(ctx, name, args)
	if err != nil {
		return wireErrorResponse(msgID, err)
	}

	return result(msgID, toMap(res))
}

// messageID extracts the request ID, which can be a string or a number.
func messageID(message map[string]any) any {
	switch id := message["id"].(type) {
	case float64:
		return int(id)
	case string:
		return id
	default:
		return message["id"]
	}
}

func result(msgID any, res map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      msgID,
		"result":  res,
	}
}

func wireErrorResponse(msgID any, err error) map[string]any {
	var wire *jsonrpc.Error
	if !errors.As(err, &wire) {
		wire = herrors.ToWire(err)
	}

	var data any
	if len(wire.Data) > 0 {
		_ = json.Unmarshal(wire.Data, &data)
	}

	return errorResponse(msgID, wire.Code, wire.Message, data)
}

// errorResponse creates a JSON-RPC error response.
func errorResponse(msgID any, code int64, message string, data any) map[string]any {
	errMap := map[string]any{
		"code":    code,
		"message": message,
	}

	if data != nil {
		errMap["data"] = data
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      msgID,
		"error":   errMap,
	}
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}

	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return map[string]any{}
	}

	return m
}
