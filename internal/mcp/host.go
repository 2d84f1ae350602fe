package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
	"github.com/wagiedev/mcp-toolhost/internal/naming"
	"github.com/wagiedev/mcp-toolhost/internal/registry"
)

const (
	methodListTools = "tools/list"
	methodCallTool  = "tools/call"
)

// Compile-time verification that Host implements ServerInstance.
var _ ServerInstance = (*Host)(nil)

// Host binds a tool registry, resources and prompts to an MCP server.
//
// The registry's enabled tools are mirrored into the underlying server so
// connected clients receive notifications/tools/list_changed whenever the
// enabled set changes. tools/list and tools/call are answered from the
// registry directly, which keeps registration order in listings and lets
// callers distinguish unknown tools from disabled ones.
type Host struct {
	log          *slog.Logger
	name         string
	version      string
	instructions string
	registry     *registry.Registry
	server       *mcp.Server
	qualifier    naming.Qualifier

	resources map[string]*Resource
	resOrder  []string
	prompts   map[string]*Prompt
	prmOrder  []string

	subID registry.SubscriptionID

	mu       sync.Mutex
	mirrored map[string]struct{}
}

// NewHost creates a host serving reg.
func NewHost(reg *registry.Registry, cfg Config) (*Host, error) {
	if reg == nil {
		return nil, errors.New("registry is nil")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if cfg.Name == "" {
		cfg.Name = "toolhost"
	}

	if cfg.SessionID == nil {
		cfg.SessionID = func() string { return ulid.Make().String() }
	}

	h := &Host{
		log:          cfg.Logger.With("component", "host"),
		name:         cfg.Name,
		version:      cfg.Version,
		instructions: cfg.Instructions,
		registry:     reg,
		qualifier:    naming.Qualifier{Server: cfg.Namespace},
		resources:    make(map[string]*Resource, len(cfg.Resources)),
		prompts:      make(map[string]*Prompt, len(cfg.Prompts)),
		mirrored:     make(map[string]struct{}),
	}

	h.server = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &mcp.ServerOptions{
		Instructions: cfg.Instructions,
		Logger:       cfg.Logger.With("component", "mcp-server"),
		KeepAlive:    cfg.KeepAlive,
		PageSize:     cfg.PageSize,
		GetSessionID: cfg.SessionID,
		Capabilities: &mcp.ServerCapabilities{
			Logging: &mcp.LoggingCapabilities{},
			Tools:   &mcp.ToolCapabilities{ListChanged: true},
		},
	})

	for _, r := range cfg.Resources {
		if err := h.addResource(r); err != nil {
			return nil, err
		}
	}

	for _, p := range cfg.Prompts {
		if err := h.addPrompt(p); err != nil {
			return nil, err
		}
	}

	h.server.AddReceivingMiddleware(h.toolsMiddleware)

	if len(cfg.Middleware) > 0 {
		h.server.AddReceivingMiddleware(cfg.Middleware...)
	}

	if h.qualifier.Enabled() {
		reg.SetNameMapper(h.qualifier)
	}

	h.mirror(reg.ListTools())
	h.subID = reg.OnEnabledToolsChanged(h.mirror)

	h.log.Debug("host created",
		"name", cfg.Name,
		"namespace", cfg.Namespace,
		"resources", len(h.resOrder),
		"prompts", len(h.prmOrder),
	)

	return h, nil
}

// Name returns the server name.
func (h *Host) Name() string {
	return h.name
}

// Version returns the server version.
func (h *Host) Version() string {
	return h.version
}

// Instructions returns the instructions sent to clients.
func (h *Host) Instructions() string {
	return h.instructions
}

// Registry returns the registry served by the host.
func (h *Host) Registry() *registry.Registry {
	return h.registry
}

// Server returns the underlying MCP server, for transports.
func (h *Host) Server() *mcp.Server {
	return h.server
}

// Run serves a single session over t until the client disconnects or ctx
// is cancelled.
func (h *Host) Run(ctx context.Context, t mcp.Transport) error {
	h.log.Info("serving session")

	return h.server.Run(ctx, t)
}

// Connect starts a session over t without blocking.
func (h *Host) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return h.server.Connect(ctx, t, nil)
}

// Close detaches the host from its registry.
func (h *Host) Close() error {
	h.registry.OffEnabledToolsChanged(h.subID)

	if h.qualifier.Enabled() {
		h.registry.SetNameMapper(nil)
	}

	return nil
}

// mirror keeps the server's tool set equal to the registry's enabled tools.
// The server debounces the resulting list_changed notifications.
func (h *Host) mirror(tools []*mcp.Tool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	next := make(map[string]struct{}, len(tools))

	for _, t := range tools {
		next[t.Name] = struct{}{}
		h.server.AddTool(t, h.handleMirrored)
	}

	var stale []string

	for name := range h.mirrored {
		if _, ok := next[name]; !ok {
			stale = append(stale, name)
		}
	}

	if len(stale) > 0 {
		h.server.RemoveTools(stale...)
	}

	h.mirrored = next

	h.log.Debug("mirrored enabled tools", "enabled", len(next), "removed", len(stale))
}

// handleMirrored serves calls that reach the server's own tool dispatch.
func (h *Host) handleMirrored(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.CallTool(ctx, h.qualifier.Qualify(req.Params.Name), req.Params.Arguments)
}

func (h *Host) toolsMiddleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		switch method {
		case methodListTools:
			return &mcp.ListToolsResult{Tools: h.tools()}, nil
		case methodCallTool:
			call, ok := req.(*mcp.CallToolRequest)
			if !ok || call.Params == nil {
				return next(ctx, method, req)
			}

			res, err := h.CallTool(ctx, call.Params.Name, call.Params.Arguments)
			if err != nil {
				return nil, err
			}

			return res, nil
		default:
			return next(ctx, method, req)
		}
	}
}

// tools returns the enabled tools with external names.
func (h *Host) tools() []*mcp.Tool {
	tools := h.registry.ListTools()
	for _, t := range tools {
		t.Name = h.qualifier.Qualify(t.Name)
	}

	return tools
}

// ListTools returns the enabled tools with external names as plain maps.
func (h *Host) ListTools() []map[string]any {
	tools := h.tools()
	result := make([]map[string]any, 0, len(tools))

	for _, t := range tools {
		toolMap := map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		}

		if t.Annotations != nil {
			toolMap["annotations"] = toMap(t.Annotations)
		}

		result = append(result, toolMap)
	}

	return result
}

// CallTool runs the tool with external name. Failures are returned as
// JSON-RPC wire errors: unknown and disabled tools map to method-not-found
// with distinct reasons, argument failures to invalid-params, and handler
// failures to internal errors.
func (h *Host) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*mcp.CallToolResult, error) {
	local, ok := h.qualifier.Strip(name)
	if !ok {
		return nil, h.fail(name, herrors.UnknownTool(name))
	}

	args, err := decodeArguments(arguments)
	if err != nil {
		return nil, h.fail(name, herrors.InvalidParams(local, err.Error()))
	}

	h.log.Debug("tool call", "tool", name)

	result, err := h.registry.Invoke(ctx, local, args)
	if err != nil {
		return nil, h.fail(name, err)
	}

	if result == nil {
		result = &mcp.CallToolResult{}
	}

	if result.Content == nil {
		result.Content = []mcp.Content{}
	}

	return result, nil
}

func (h *Host) fail(name string, err error) error {
	wire := herrors.ToWire(err)

	h.log.Warn("tool call failed",
		"tool", name,
		"reason", herrors.Reason(err),
		"code", wire.Code,
		"error", err,
	)

	return wire
}

// decodeArguments decodes a raw arguments member. Absent and null arguments
// decode to nil, which the registry rejects.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var args map[string]any
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	return args, nil
}

// ServerInfo returns server information for the initialize response.
func (h *Host) ServerInfo() map[string]any {
	return map[string]any{
		"name":    h.name,
		"version": h.version,
	}
}

// Capabilities returns server capabilities for the initialize response.
func (h *Host) Capabilities() map[string]any {
	caps := map[string]any{
		"tools": map[string]any{"listChanged": true},
	}

	if len(h.resOrder) > 0 {
		caps["resources"] = map[string]any{}
	}

	if len(h.prmOrder) > 0 {
		caps["prompts"] = map[string]any{}
	}

	return caps
}

// toMap converts an MCP protocol value to a generic map.
func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return nil
	}

	return m
}
