package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
	"github.com/wagiedev/mcp-toolhost/internal/registry"
)

func testCapabilities() []registry.Capability {
	return []registry.Capability{
		{
			Name:        "echo",
			Description: "Echo text back",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{"text": {Type: "string"}},
				Required:   []string{"text"},
			},
			Annotations: &mcpgo.ToolAnnotations{ReadOnlyHint: true},
			Handler: func(_ context.Context, args map[string]any) (*mcpgo.CallToolResult, error) {
				text, _ := args["text"].(string)

				return TextResult("echo: " + text), nil
			},
		},
		{
			Name:        "delete",
			Description: "Delete everything",
			Handler: func(context.Context, map[string]any) (*mcpgo.CallToolResult, error) {
				return TextResult("deleted"), nil
			},
		},
		{
			Name: "broken",
			Handler: func(context.Context, map[string]any) (*mcpgo.CallToolResult, error) {
				return nil, errors.New("disk full")
			},
		},
	}
}

func newTestHost(t *testing.T, cfg Config, opts ...registry.Option) *Host {
	t.Helper()

	reg, err := registry.New(testCapabilities(), opts...)
	require.NoError(t, err)

	cfg.Name = "test-host"
	cfg.Version = "v1.0.0"

	host, err := NewHost(reg, cfg)
	require.NoError(t, err)

	t.Cleanup(func() { _ = host.Close() })

	return host
}

func connect(t *testing.T, host *Host, opts *mcpgo.ClientOptions) *mcpgo.ClientSession {
	t.Helper()

	ctx := context.Background()
	serverTransport, clientTransport := mcpgo.NewInMemoryTransports()

	ss, err := host.Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcpgo.NewClient(&mcpgo.Implementation{Name: "test-client", Version: "v0.0.1"}, opts)

	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func listNames(t *testing.T, cs *mcpgo.ClientSession) []string {
	t.Helper()

	res, err := cs.ListTools(context.Background(), &mcpgo.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}

	return names
}

func requireWireError(t *testing.T, err error, code int64, reason string) *jsonrpc.Error {
	t.Helper()

	require.Error(t, err)

	var wire *jsonrpc.Error
	require.ErrorAs(t, err, &wire)
	require.Equal(t, code, wire.Code)

	if reason != "" {
		var data herrors.ErrorData
		require.NoError(t, json.Unmarshal(wire.Data, &data))
		require.Equal(t, reason, data.Reason)
	}

	return wire
}

func TestHost_ListToolsFollowsMode(t *testing.T) {
	readOnly := newTestHost(t, Config{}, registry.WithMode(registry.ModeReadOnly))
	require.Equal(t, []string{"echo"}, listNames(t, connect(t, readOnly, nil)))

	readWrite := newTestHost(t, Config{}, registry.WithMode(registry.ModeReadWrite))
	require.Equal(t, []string{"echo", "delete", "broken"}, listNames(t, connect(t, readWrite, nil)))
}

func TestHost_CallTool(t *testing.T) {
	host := newTestHost(t, Config{}, registry.WithMode(registry.ModeReadOnly))
	cs := connect(t, host, nil)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcpgo.CallToolParams{
			Name:      "echo",
			Arguments: map[string]any{"text": "hi"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)
		require.Equal(t, "echo: hi", res.Content[0].(*mcpgo.TextContent).Text)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := cs.CallTool(ctx, &mcpgo.CallToolParams{Name: "nope", Arguments: map[string]any{}})
		requireWireError(t, err, herrors.CodeMethodNotFound, herrors.ReasonUnknownTool)
	})

	t.Run("tool not enabled", func(t *testing.T) {
		_, err := cs.CallTool(ctx, &mcpgo.CallToolParams{Name: "delete", Arguments: map[string]any{}})
		wire := requireWireError(t, err, herrors.CodeMethodNotFound, herrors.ReasonToolNotEnabled)
		require.Contains(t, wire.Message, "not enabled")
	})

	t.Run("missing arguments", func(t *testing.T) {
		_, err := cs.CallTool(ctx, &mcpgo.CallToolParams{Name: "echo"})
		requireWireError(t, err, herrors.CodeInvalidParams, herrors.ReasonInvalidParams)
	})

	t.Run("schema failure", func(t *testing.T) {
		_, err := cs.CallTool(ctx, &mcpgo.CallToolParams{
			Name:      "echo",
			Arguments: map[string]any{"text": 12},
		})
		wire := requireWireError(t, err, herrors.CodeInvalidParams, herrors.ReasonInvalidParams)

		var data herrors.ErrorData
		require.NoError(t, json.Unmarshal(wire.Data, &data))
		require.NotEmpty(t, data.Diagnostics)
	})
}

func TestHost_HandlerErrorIsInternal(t *testing.T) {
	host := newTestHost(t, Config{})
	cs := connect(t, host, nil)

	_, err := cs.CallTool(context.Background(), &mcpgo.CallToolParams{
		Name:      "broken",
		Arguments: map[string]any{},
	})
	wire := requireWireError(t, err, herrors.CodeInternalError, herrors.ReasonInternal)
	require.Equal(t, "disk full", wire.Message)
}

func TestHost_DynamicDiscoveryNotifiesClients(t *testing.T) {
	host := newTestHost(t, Config{},
		registry.WithMode(registry.ModeReadWrite),
		registry.WithDynamicDiscovery(registry.DynamicConfig{
			Enabled:                true,
			DefaultEnabledToolsets: []string{"echo"},
		}),
	)

	changed := make(chan struct{}, 8)
	cs := connect(t, host, &mcpgo.ClientOptions{
		ToolListChangedHandler: func(context.Context, *mcpgo.ToolListChangedRequest) {
			changed <- struct{}{}
		},
	})

	ctx := context.Background()

	require.Equal(t,
		[]string{"echo", registry.ListToolName, registry.TriggerToolName},
		listNames(t, cs),
	)

	res, err := cs.CallTool(ctx, &mcpgo.CallToolParams{
		Name: registry.TriggerToolName,
		Arguments: map[string]any{
			"toolsets": []map[string]any{{"name": "delete", "trigger": "enable"}},
		},
	})
	require.NoError(t, err)

	snap, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	require.Contains(t, snap["enabled"], "delete")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected notifications/tools/list_changed")
	}

	require.Contains(t, listNames(t, cs), "delete")

	res, err = cs.CallTool(ctx, &mcpgo.CallToolParams{Name: "delete", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, "deleted", res.Content[0].(*mcpgo.TextContent).Text)
}

func TestHost_TriggerUnknownNameLeavesStateUnchanged(t *testing.T) {
	host := newTestHost(t, Config{},
		registry.WithDynamicDiscovery(registry.DynamicConfig{
			Enabled:                true,
			DefaultEnabledToolsets: []string{"echo"},
		}),
	)
	cs := connect(t, host, nil)
	before := host.Registry().Snapshot()

	_, err := cs.CallTool(context.Background(), &mcpgo.CallToolParams{
		Name: registry.TriggerToolName,
		Arguments: map[string]any{
			"toolsets": []map[string]any{{"name": "nonexistent", "trigger": "enable"}},
		},
	})
	requireWireError(t, err, herrors.CodeInvalidParams, herrors.ReasonInvalidToolsetName)
	require.Equal(t, before, host.Registry().Snapshot())
}

func TestHost_MirrorsEnabledSet(t *testing.T) {
	host := newTestHost(t, Config{},
		registry.WithDynamicDiscovery(registry.DynamicConfig{Enabled: true}),
	)

	_, err := host.Registry().Enable("delete")
	require.NoError(t, err)

	host.mu.Lock()
	require.Contains(t, host.mirrored, "delete")
	host.mu.Unlock()

	_, err = host.Registry().Disable("delete")
	require.NoError(t, err)

	host.mu.Lock()
	require.NotContains(t, host.mirrored, "delete")
	require.Contains(t, host.mirrored, registry.ListToolName)
	host.mu.Unlock()

	require.NoError(t, host.Close())

	_, err = host.Registry().Enable("delete")
	require.NoError(t, err)

	host.mu.Lock()
	require.NotContains(t, host.mirrored, "delete", "closed host must not follow the registry")
	host.mu.Unlock()
}

func TestHost_Namespace(t *testing.T) {
	host := newTestHost(t, Config{Namespace: "notes"})
	cs := connect(t, host, nil)
	ctx := context.Background()

	names := listNames(t, cs)
	require.Equal(t, []string{"notes::echo", "notes::delete", "notes::broken"}, names)

	res, err := cs.CallTool(ctx, &mcpgo.CallToolParams{
		Name:      "notes::echo",
		Arguments: map[string]any{"text": "qualified"},
	})
	require.NoError(t, err)
	require.Equal(t, "echo: qualified", res.Content[0].(*mcpgo.TextContent).Text)

	_, err = cs.CallTool(ctx, &mcpgo.CallToolParams{
		Name:      "files::echo",
		Arguments: map[string]any{"text": "x"},
	})
	requireWireError(t, err, herrors.CodeMethodNotFound, herrors.ReasonUnknownTool)

	for _, tool := range host.ListTools() {
		require.True(t, strings.HasPrefix(tool["name"].(string), "notes::"))
	}
}

func TestHost_NamespaceWithDynamicDiscovery(t *testing.T) {
	host := newTestHost(t, Config{Namespace: "ns"},
		registry.WithDynamicDiscovery(registry.DynamicConfig{
			Enabled:                true,
			DefaultEnabledToolsets: []string{"echo"},
		}),
	)
	cs := connect(t, host, nil)
	ctx := context.Background()

	listTool := "ns::" + registry.ListToolName
	triggerTool := "ns::" + registry.TriggerToolName

	require.Equal(t, []string{"ns::echo", listTool, triggerTool}, listNames(t, cs))

	res, err := cs.CallTool(ctx, &mcpgo.CallToolParams{Name: listTool, Arguments: map[string]any{}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"available": []any{"ns::echo", "ns::delete", "ns::broken", listTool, triggerTool},
		"enabled":   []any{"ns::echo", listTool, triggerTool},
	}, res.StructuredContent)

	res, err = cs.CallTool(ctx, &mcpgo.CallToolParams{
		Name: triggerTool,
		Arguments: map[string]any{
			"toolsets": []map[string]any{{"name": "ns::delete", "trigger": "enable"}},
		},
	})
	require.NoError(t, err)

	snap, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok)
	require.Contains(t, snap["enabled"], "ns::delete")
	require.Contains(t, listNames(t, cs), "ns::delete")

	_, err = cs.CallTool(ctx, &mcpgo.CallToolParams{
		Name: triggerTool,
		Arguments: map[string]any{
			"toolsets": []map[string]any{{"name": "ns::ghost", "trigger": "enable"}},
		},
	})
	wire := requireWireError(t, err, herrors.CodeInvalidParams, herrors.ReasonInvalidToolsetName)

	var data herrors.ErrorData
	require.NoError(t, json.Unmarshal(wire.Data, &data))
	require.Equal(t, []string{"ns::ghost"}, data.Names)

	// The registry's own view stays unqualified.
	require.Contains(t, host.Registry().Snapshot().Enabled, "delete")
}

func TestHost_HandlerErrorWrappingToolErrorIsInternal(t *testing.T) {
	reg, err := registry.New([]registry.Capability{{
		Name: "proxy",
		Handler: func(context.Context, map[string]any) (*mcpgo.CallToolResult, error) {
			return nil, fmt.Errorf("delegate: %w", herrors.UnknownTool("elsewhere"))
		},
	}})
	require.NoError(t, err)

	host, err := NewHost(reg, Config{Name: "proxy-host"})
	require.NoError(t, err)

	t.Cleanup(func() { _ = host.Close() })

	cs := connect(t, host, nil)

	_, err = cs.CallTool(context.Background(), &mcpgo.CallToolParams{Name: "proxy", Arguments: map[string]any{}})
	wire := requireWireError(t, err, herrors.CodeInternalError, herrors.ReasonInternal)
	require.Equal(t, "delegate: unknown tool: elsewhere", wire.Message)
}

func TestHost_ResourcesAndPrompts(t *testing.T) {
	host := newTestHost(t, Config{
		Resources: []*Resource{{
			URI:      "notes://all",
			Name:     "notes",
			MIMEType: "application/json",
			Read: func(context.Context, string) (*mcpgo.ResourceContents, error) {
				return &mcpgo.ResourceContents{Text: `{"a":"b"}`}, nil
			},
		}},
		Prompts: []*Prompt{{
			Name:        "greet",
			Description: "Say hello",
			Arguments:   []*mcpgo.PromptArgument{{Name: "who", Required: true}},
			Render: func(_ context.Context, args map[string]string) (*mcpgo.GetPromptResult, error) {
				return &mcpgo.GetPromptResult{
					Messages: []*mcpgo.PromptMessage{{
						Role:    "user",
						Content: &mcpgo.TextContent{Text: "hello " + args["who"]},
					}},
				}, nil
			},
		}},
	})
	cs := connect(t, host, nil)
	ctx := context.Background()

	resources, err := cs.ListResources(ctx, &mcpgo.ListResourcesParams{})
	require.NoError(t, err)
	require.Len(t, resources.Resources, 1)
	require.Equal(t, "notes://all", resources.Resources[0].URI)

	read, err := cs.ReadResource(ctx, &mcpgo.ReadResourceParams{URI: "notes://all"})
	require.NoError(t, err)
	require.Equal(t, `{"a":"b"}`, read.Contents[0].Text)
	require.Equal(t, "application/json", read.Contents[0].MIMEType)

	_, err = cs.ReadResource(ctx, &mcpgo.ReadResourceParams{URI: "notes://missing"})
	require.Error(t, err)

	prompt, err := cs.GetPrompt(ctx, &mcpgo.GetPromptParams{
		Name:      "greet",
		Arguments: map[string]string{"who": "ada"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello ada", prompt.Messages[0].Content.(*mcpgo.TextContent).Text)

	_, err = host.GetPrompt(ctx, "greet", nil)
	requireWireError(t, err, herrors.CodeInvalidParams, "")

	_, err = host.GetPrompt(ctx, "missing", nil)
	requireWireError(t, err, herrors.CodeInvalidParams, "")

	require.Equal(t, map[string]any{
		"tools":     map[string]any{"listChanged": true},
		"resources": map[string]any{},
		"prompts":   map[string]any{},
	}, host.Capabilities())
}

func TestNewHost_Errors(t *testing.T) {
	_, err := NewHost(nil, Config{})
	require.Error(t, err)

	reg, err := registry.New(nil)
	require.NoError(t, err)

	_, err = NewHost(reg, Config{Resources: []*Resource{{URI: "notes://x"}}})
	require.Error(t, err)

	_, err = NewHost(reg, Config{Prompts: []*Prompt{{Name: "p"}}})
	require.Error(t, err)
}

func TestHost_Status(t *testing.T) {
	host := newTestHost(t, Config{}, registry.WithMode(registry.ModeReadOnly))
	_ = connect(t, host, nil)

	status := host.Status()
	require.Equal(t, "test-host", status.Name)
	require.Equal(t, registry.ModeReadOnly, status.Mode)
	require.Equal(t, 1, status.Sessions)
	require.Equal(t, []string{"echo"}, status.Tools.Enabled)
}

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{name: "absent", raw: ""},
		{name: "null", raw: " null "},
		{name: "object", raw: `{"a":1}`, want: map[string]any{"a": float64(1)}},
		{name: "array", raw: `[1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeArguments(json.RawMessage(tt.raw))
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResultToMap(t *testing.T) {
	require.Equal(t, map[string]any{"content": []map[string]any{}}, ResultToMap(nil))

	got := ResultToMap(ErrorResult("boom"))
	require.Equal(t, map[string]any{
		"content": []map[string]any{{"type": "text", "text": "boom"}},
		"isError": true,
	}, got)

	res, err := JSONResult(map[string]int{"n": 1})
	require.NoError(t, err)
	require.Equal(t, `{"n":1}`, res.Content[0].(*mcpgo.TextContent).Text)
	require.Contains(t, ResultToMap(res), "structuredContent")

	img := ResultToMap(ImageResult([]byte("png"), "image/png"))
	block := img["content"].([]map[string]any)[0]
	require.Equal(t, "image", block["type"])
	require.Equal(t, "image/png", block["mimeType"])
	require.Equal(t, "cG5n", block["data"])
}
