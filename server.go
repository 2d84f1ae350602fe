package toolhost

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/mcp-toolhost/internal/mcp"
	"github.com/wagiedev/mcp-toolhost/internal/protocol"
	"github.com/wagiedev/mcp-toolhost/internal/registry"
	"github.com/wagiedev/mcp-toolhost/internal/telemetry"
	"github.com/wagiedev/mcp-toolhost/internal/transport"
)

// Server is an MCP server exposing a set of tools whose enabled subset can
// change at runtime.
//
// Tools that are registered but not enabled are hidden from tools/list and
// rejected by tools/call. With dynamic discovery the client itself toggles
// tools through the list and trigger meta-tools, and every connected
// session receives notifications/tools/list_changed.
type Server struct {
	options    *ServerOptions
	registry   *registry.Registry
	host       *internalmcp.Host
	dispatcher *protocol.Dispatcher
}

// NewServer creates a server exposing tools.
//
// Example:
//
//	server, err := toolhost.NewServer([]*toolhost.Tool{echoTool, deleteTool},
//	    toolhost.WithName("notes"),
//	    toolhost.WithMode(toolhost.ModeReadOnly),
//	    toolhost.WithDynamicDiscovery("echo"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = server.ServeStdio(ctx)
func NewServer(tools []*Tool, opts ...Option) (*Server, error) {
	options := applyServerOptions(opts)
	if options.Logger == nil {
		options.Logger = NopLogger()
	}

	caps := make([]registry.Capability, 0, len(tools))

	for i, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("tool %d is nil", i)
		}

		caps = append(caps, t.capability())
	}

	reg, err := registry.New(caps, options.RegistryOptions()...)
	if err != nil {
		return nil, err
	}

	cfg := options.HostConfig()

	if options.Telemetry {
		mw, err := telemetry.Middleware(options.TracerProvider, options.MeterProvider)
		if err != nil {
			return nil, err
		}

		cfg.Middleware = append([]mcp.Middleware{mw}, slices.Clone(cfg.Middleware)...)
	}

	host, err := internalmcp.NewHost(reg, cfg)
	if err != nil {
		return nil, err
	}

	return &Server{
		options:    options,
		registry:   reg,
		host:       host,
		dispatcher: protocol.NewDispatcher(options.Logger, host),
	}, nil
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.host.Name()
}

// Mode returns the read/write mode.
func (s *Server) Mode() Mode {
	return s.registry.Mode()
}

// ListTools returns the enabled tools in registration order, as clients see
// them before namespacing.
func (s *Server) ListTools() []*mcp.Tool {
	return s.registry.ListTools()
}

// CallTool invokes an enabled tool in process. Failures are *ToolError
// values matching the sentinel errors; handler errors are returned as is.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*CallToolResult, error) {
	return s.registry.CallTool(ctx, name, args)
}

// Snapshot returns every registered tool name and the enabled ones.
func (s *Server) Snapshot() Snapshot {
	return s.registry.Snapshot()
}

// IsEnabled reports whether name is currently enabled.
func (s *Server) IsEnabled(name string) bool {
	return s.registry.IsEnabled(name)
}

// Apply toggles tools in one batch. The batch is rejected as a whole if any
// entry names an unknown tool or breaks the mode gate.
func (s *Server) Apply(changes ...ToolsetChange) (Snapshot, error) {
	return s.registry.Apply(changes)
}

// Enable enables tools by name.
func (s *Server) Enable(names ...string) (Snapshot, error) {
	return s.registry.Enable(names...)
}

// Disable disables tools by name.
func (s *Server) Disable(names ...string) (Snapshot, error) {
	return s.registry.Disable(names...)
}

// AddTool registers or replaces a tool while the server is running.
func (s *Server) AddTool(t *Tool) error {
	if t == nil {
		return errors.New("tool is nil")
	}

	return s.registry.AddTool(t.capability())
}

// RemoveTool unregisters a tool while the server is running.
func (s *Server) RemoveTool(name string) error {
	return s.registry.RemoveTool(name)
}

// OnEnabledToolsChanged calls fn with the enabled listing after every
// change to the enabled set.
func (s *Server) OnEnabledToolsChanged(fn ChangeFunc) SubscriptionID {
	return s.registry.OnEnabledToolsChanged(fn)
}

// OffEnabledToolsChanged cancels a subscription. It reports whether the
// subscription existed.
func (s *Server) OffEnabledToolsChanged(id SubscriptionID) bool {
	return s.registry.OffEnabledToolsChanged(id)
}

// Status describes the running server.
func (s *Server) Status() Status {
	return s.host.Status()
}

// MCPServer returns the underlying MCP SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.host.Server()
}

// Connect starts a session over t without blocking, typically for
// in-memory transports.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.host.Connect(ctx, t)
}

// Run serves a single session over t until it ends.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.host.Run(ctx, t)
}

// ServeStdio serves the server over stdin and stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return transport.ServeStdio(ctx, s.host)
}

// HTTPHandler returns an http.Handler serving the streamable HTTP endpoint
// at /mcp, SSE at /sse, plain JSON-RPC at /rpc, /healthz and /tools.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return transport.NewRouter(s.host, transport.RouterOptions{
		Logger:    s.options.Logger,
		Stateless: stateless,
	})
}

// ServeHTTP serves HTTPHandler on addr until ctx is cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string, stateless bool) error {
	return transport.ServeHTTP(ctx, transport.HTTPConfig{
		Addr:   addr,
		Logger: s.options.Logger,
	}, s.HTTPHandler(stateless))
}

// HandleMessage answers one map-shaped JSON-RPC message. Notifications
// return a nil response.
func (s *Server) HandleMessage(ctx context.Context, message map[string]any) (map[string]any, error) {
	return s.dispatcher.HandleMessage(ctx, s.host.Name(), message)
}

// Close detaches the server from its registry. Sessions are closed by their
// transports.
func (s *Server) Close() error {
	return s.host.Close()
}
