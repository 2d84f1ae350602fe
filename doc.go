// Package toolhost serves a set of tools over the Model Context Protocol
// with an enabled subset that can change at runtime.
//
// Every registered tool is either enabled or not. Only enabled tools appear
// in tools/list and only they can be called; calling a registered but
// disabled tool fails with a distinct error from calling an unknown one.
//
// # Basic Usage
//
//	echo := toolhost.NewTool("echo", "Echo text back",
//	    toolhost.SimpleSchema(map[string]string{"text": "string"}),
//	    func(ctx context.Context, args map[string]any) (*toolhost.CallToolResult, error) {
//	        return toolhost.TextResult(args["text"].(string)), nil
//	    },
//	    toolhost.WithReadOnly(),
//	)
//
//	server, err := toolhost.NewServer([]*toolhost.Tool{echo},
//	    toolhost.WithName("echo-server"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := server.ServeStdio(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Read-only Mode
//
// WithMode(ModeReadOnly) restricts the enabled set to tools annotated with
// readOnlyHint. Other tools stay registered and listed by the dynamic
// discovery list tool, but can never be enabled.
//
// # Dynamic Discovery
//
// WithDynamicDiscovery starts with only the named tools enabled and adds two
// meta-tools: one listing available and enabled tool names, one enabling or
// disabling tools in a batch:
//
//	{"toolsets": [{"name": "delete", "trigger": "enable"}]}
//
// Each batch is validated as a whole before any change, and connected
// clients receive notifications/tools/list_changed afterwards. Pass a
// DynamicConfig with a Name to prefix the meta-tool names when several
// servers share one client.
//
// # Logging
//
// For detailed operation tracking, use WithLogger:
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
//	server, err := toolhost.NewServer(tools, toolhost.WithLogger(logger))
//
// # Error Handling
//
// In-process calls return typed errors:
//
//	_, err := server.CallTool(ctx, "delete", map[string]any{})
//	if errors.Is(err, toolhost.ErrToolNotEnabled) {
//	    // enable it first
//	}
//	if toolErr, ok := errors.AsType[*toolhost.ToolError](err); ok {
//	    fmt.Println(toolErr.Diagnostics)
//	}
//
// Over the wire, unknown and disabled tools fail with JSON-RPC code -32601
// and bad arguments with -32602; data.reason tells them apart.
package toolhost
