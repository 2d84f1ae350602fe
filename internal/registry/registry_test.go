package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
	"github.com/wagiedev/mcp-toolhost/internal/naming"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func echoCap() Capability {
	return Capability{
		Name:        "echo",
		Description: "Echo text back",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{"text": {Type: "string"}},
			Required:   []string{"text"},
		},
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
		Handler: func(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
			return textResult(args["text"].(string)), nil
		},
	}
}

func deleteCap() Capability {
	return Capability{
		Name:        "delete",
		Description: "Delete something",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: false},
		Handler: func(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
			return textResult("deleted"), nil
		},
	}
}

func toolNames(tools []*mcp.Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}

	return names
}

func newDynamic(t *testing.T, defaults ...string) *Registry {
	t.Helper()

	r, err := New([]Capability{echoCap(), deleteCap()},
		WithMode(ModeReadWrite),
		WithDynamicDiscovery(DynamicConfig{Enabled: true, DefaultEnabledToolsets: defaults}),
	)
	require.NoError(t, err)

	return r
}

func TestNew_ModeGate(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		want []string
	}{
		{name: "read only", mode: ModeReadOnly, want: []string{"echo"}},
		{name: "read write", mode: ModeReadWrite, want: []string{"echo", "delete"}},
		{name: "empty mode defaults to read write", mode: "", want: []string{"echo", "delete"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, err := New([]Capability{echoCap(), deleteCap()}, WithMode(tt.mode))
			require.NoError(t, err)
			require.Equal(t, tt.want, toolNames(r.ListTools()))
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil, WithMode("admin"))
	require.Error(t, err)

	_, err = New([]Capability{{Name: "", Handler: deleteCap().Handler}})
	require.ErrorIs(t, err, herrors.ErrEmptyToolName)

	_, err = New([]Capability{{Name: "x"}})
	require.ErrorIs(t, err, herrors.ErrNilHandler)

	_, err = New([]Capability{{
		Name:        "x",
		InputSchema: &jsonschema.Schema{Type: "array"},
		Handler:     deleteCap().Handler,
	}})

	var schemaErr *herrors.SchemaError
	require.ErrorAs(t, err, &schemaErr)
	require.Equal(t, "x", schemaErr.Tool)
}

func TestNew_DuplicateNamesLastWriteWins(t *testing.T) {
	second := echoCap()
	second.Description = "second"

	r, err := New([]Capability{echoCap(), deleteCap(), second})
	require.NoError(t, err)

	tools := r.ListTools()
	require.Equal(t, []string{"echo", "delete"}, toolNames(tools))
	require.Equal(t, "second", tools[0].Description)
}

func TestListTools_AdvertisedShape(t *testing.T) {
	r, err := New([]Capability{echoCap()})
	require.NoError(t, err)

	tools := r.ListTools()
	require.Len(t, tools, 1)

	schema, ok := tools[0].InputSchema.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "object", schema["type"])
	require.Equal(t, []any{"text"}, schema["required"])
	require.True(t, tools[0].Annotations.ReadOnlyHint)

	// Mutating the returned listing must not leak into the registry.
	tools[0].Annotations.ReadOnlyHint = false
	schema["type"] = "string"
	again := r.ListTools()
	require.True(t, again[0].Annotations.ReadOnlyHint)
	require.Equal(t, "object", again[0].InputSchema.(map[string]any)["type"])
}

func TestCallTool_UnknownTool(t *testing.T) {
	r := newDynamic(t, "echo")

	for _, name := range []string{"nope", "", "ECHO", "dynamic_tool_lists"} {
		_, err := r.CallTool(context.Background(), name, map[string]any{})
		require.ErrorIs(t, err, herrors.ErrUnknownTool, name)
		require.NotErrorIs(t, err, herrors.ErrToolNotEnabled, name)
	}
}

func TestCallTool_ToolNotEnabled(t *testing.T) {
	r := newDynamic(t, "echo")

	_, err := r.CallTool(context.Background(), "delete", map[string]any{})
	require.ErrorIs(t, err, herrors.ErrToolNotEnabled)
	require.NotErrorIs(t, err, herrors.ErrUnknownTool)

	te, ok := errors.AsType[*herrors.ToolError](err)
	require.True(t, ok)
	require.Equal(t, "delete", te.Tool)
}

func TestCallTool_InvalidParams(t *testing.T) {
	r := newDynamic(t, "echo")
	ctx := context.Background()

	t.Run("nil arguments", func(t *testing.T) {
		_, err := r.CallTool(ctx, "echo", nil)
		require.ErrorIs(t, err, herrors.ErrInvalidParams)
	})

	t.Run("schema failure carries diagnostics", func(t *testing.T) {
		_, err := r.CallTool(ctx, "echo", map[string]any{"text": 42})
		require.ErrorIs(t, err, herrors.ErrInvalidParams)

		te, ok := errors.AsType[*herrors.ToolError](err)
		require.True(t, ok)
		require.NotEmpty(t, te.Diagnostics)

		paths := make([]string, 0, len(te.Diagnostics))
		for _, d := range te.Diagnostics {
			paths = append(paths, d.Path)
		}

		require.Contains(t, paths, "/text")
	})

	t.Run("handler is not invoked", func(t *testing.T) {
		var called atomic.Bool

		c := echoCap()
		c.Handler = func(context.Context, map[string]any) (*mcp.CallToolResult, error) {
			called.Store(true)

			return nil, nil
		}

		reg, err := New([]Capability{c})
		require.NoError(t, err)

		_, err = reg.CallTool(ctx, "echo", map[string]any{})
		require.ErrorIs(t, err, herrors.ErrInvalidParams)
		require.False(t, called.Load())
	})
}

func TestCallTool_HandlerResultAndErrorUnchanged(t *testing.T) {
	sentinel := errors.New("disk full")
	want := textResult("ok")

	r, err := New([]Capability{
		{
			Name: "ok",
			Handler: func(context.Context, map[string]any) (*mcp.CallToolResult, error) {
				return want, nil
			},
		},
		{
			Name: "fails",
			Handler: func(context.Context, map[string]any) (*mcp.CallToolResult, error) {
				return nil, sentinel
			},
		},
	})
	require.NoError(t, err)

	got, err := r.CallTool(context.Background(), "ok", map[string]any{})
	require.NoError(t, err)
	require.Same(t, want, got)

	_, err = r.CallTool(context.Background(), "fails", map[string]any{})
	require.Same(t, sentinel, err)
}

func TestEnableDisable_Idempotent(t *testing.T) {
	r := newDynamic(t)

	require.NotContains(t, toolNames(r.ListTools()), "echo")

	_, err := r.Enable("echo")
	require.NoError(t, err)
	require.Contains(t, toolNames(r.ListTools()), "echo")

	_, err = r.Enable("echo")
	require.NoError(t, err)
	require.Equal(t, 1, countOf(toolNames(r.ListTools()), "echo"))

	_, err = r.Disable("echo")
	require.NoError(t, err)
	require.NotContains(t, toolNames(r.ListTools()), "echo")

	_, err = r.Disable("echo")
	require.NoError(t, err)
	require.NotContains(t, toolNames(r.ListTools()), "echo")

	_, err = r.CallTool(context.Background(), "echo", map[string]any{"text": "x"})
	require.ErrorIs(t, err, herrors.ErrToolNotEnabled)
}

func countOf(names []string, name string) int {
	n := 0

	for _, v := range names {
		if v == name {
			n++
		}
	}

	return n
}

func TestEnableTwiceDisableOnce(t *testing.T) {
	r := newDynamic(t)

	_, err := r.Enable("delete")
	require.NoError(t, err)
	_, err = r.Enable("delete")
	require.NoError(t, err)
	_, err = r.Disable("delete")
	require.NoError(t, err)

	require.False(t, r.IsEnabled("delete"))
}

func TestDynamic_InitialState(t *testing.T) {
	r := newDynamic(t, "echo", "missing")

	require.Equal(t,
		[]string{"echo", ListToolName, TriggerToolName},
		toolNames(r.ListTools()),
	)

	snap := r.Snapshot()
	require.Equal(t, []string{"echo", "delete", ListToolName, TriggerToolName}, snap.Available)
	require.Equal(t, []string{"echo", ListToolName, TriggerToolName}, snap.Enabled)
}

func TestDynamic_ReadOnlyDefaultsStillGated(t *testing.T) {
	r, err := New([]Capability{echoCap(), deleteCap()},
		WithMode(ModeReadOnly),
		WithDynamicDiscovery(DynamicConfig{Enabled: true, DefaultEnabledToolsets: []string{"echo", "delete"}}),
	)
	require.NoError(t, err)

	require.Equal(t, []string{"echo", ListToolName, TriggerToolName}, toolNames(r.ListTools()))

	_, err = r.CallTool(context.Background(), TriggerToolName, map[string]any{
		"toolsets": []any{map[string]any{"name": "delete", "trigger": "enable"}},
	})
	require.ErrorIs(t, err, herrors.ErrInvalidParams)
	require.False(t, r.IsEnabled("delete"))
}

func TestInvoke_TagsHandlerErrors(t *testing.T) {
	inner := herrors.UnknownTool("elsewhere")

	r, err := New([]Capability{{
		Name: "proxy",
		Handler: func(context.Context, map[string]any) (*mcp.CallToolResult, error) {
			return nil, inner
		},
	}}, WithDynamicDiscovery(DynamicConfig{Enabled: true, DefaultEnabledToolsets: []string{"proxy"}}))
	require.NoError(t, err)

	ctx := context.Background()

	_, err = r.Invoke(ctx, "proxy", map[string]any{})
	he, ok := errors.AsType[*herrors.HandlerError](err)
	require.True(t, ok)
	require.Equal(t, "proxy", he.Tool)
	require.Same(t, inner, he.Err)

	_, err = r.CallTool(ctx, "proxy", map[string]any{})
	require.Same(t, inner, err)

	_, err = r.Invoke(ctx, "missing", map[string]any{})
	_, ok = errors.AsType[*herrors.HandlerError](err)
	require.False(t, ok)
	require.ErrorIs(t, err, herrors.ErrUnknownTool)

	_, err = r.Invoke(ctx, TriggerToolName, map[string]any{
		"toolsets": []any{map[string]any{"name": "ghost", "trigger": "enable"}},
	})
	_, ok = errors.AsType[*herrors.HandlerError](err)
	require.False(t, ok, "meta-tool errors keep their kind")
	require.ErrorIs(t, err, herrors.ErrInvalidToolsetName)
}

func TestTrigger_EnablesTool(t *testing.T) {
	r := newDynamic(t, "echo")

	res, err := r.CallTool(context.Background(), TriggerToolName, map[string]any{
		"toolsets": []any{map[string]any{"name": "delete", "trigger": "enable"}},
	})
	require.NoError(t, err)

	snap, ok := res.StructuredContent.(Snapshot)
	require.True(t, ok)
	require.Contains(t, snap.Enabled, "delete")
	require.Contains(t, toolNames(r.ListTools()), "delete")

	res, err = r.CallTool(context.Background(), "delete", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "deleted", res.Content[0].(*mcp.TextContent).Text)
}

func TestTrigger_LastEntryWinsSingleNotification(t *testing.T) {
	r := newDynamic(t, "echo")

	var (
		calls int
		last  []*mcp.Tool
	)

	r.OnEnabledToolsChanged(func(tools []*mcp.Tool) {
		calls++
		last = tools
	})

	_, err := r.CallTool(context.Background(), TriggerToolName, map[string]any{
		"toolsets": []any{
			map[string]any{"name": "echo", "trigger": "disable"},
			map[string]any{"name": "echo", "trigger": "enable"},
		},
	})
	require.NoError(t, err)

	require.True(t, r.IsEnabled("echo"))
	require.Equal(t, 1, calls)
	require.Equal(t, toolNames(r.ListTools()), toolNames(last))
}

func TestTrigger_InvalidToolsetNameNoMutation(t *testing.T) {
	r := newDynamic(t, "echo")
	before := r.Snapshot()

	var calls int

	r.OnEnabledToolsChanged(func([]*mcp.Tool) { calls++ })

	_, err := r.CallTool(context.Background(), TriggerToolName, map[string]any{
		"toolsets": []any{
			map[string]any{"name": "delete", "trigger": "enable"},
			map[string]any{"name": "nonexistent", "trigger": "enable"},
		},
	})
	require.ErrorIs(t, err, herrors.ErrInvalidToolsetName)
	require.ErrorIs(t, err, herrors.ErrInvalidParams)

	te, ok := errors.AsType[*herrors.ToolError](err)
	require.True(t, ok)
	require.Equal(t, []string{"nonexistent"}, te.Names)

	require.Equal(t, before, r.Snapshot())
	require.Zero(t, calls)
}

func TestMetaTools_NameMapper(t *testing.T) {
	r, err := New([]Capability{echoCap(), deleteCap()},
		WithDynamicDiscovery(DynamicConfig{Enabled: true, DefaultEnabledToolsets: []string{"echo"}}),
		WithNameMapper(naming.Qualifier{Server: "ns"}),
	)
	require.NoError(t, err)

	ctx := context.Background()

	res, err := r.CallTool(ctx, ListToolName, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, Snapshot{
		Available: []string{"ns::echo", "ns::delete", "ns::dynamic_tool_list", "ns::dynamic_tool_trigger"},
		Enabled:   []string{"ns::echo", "ns::dynamic_tool_list", "ns::dynamic_tool_trigger"},
	}, res.StructuredContent)

	res, err = r.CallTool(ctx, TriggerToolName, map[string]any{
		"toolsets": []any{
			map[string]any{"name": "ns::delete", "trigger": "enable"},
			map[string]any{"name": "echo", "trigger": "disable"},
		},
	})
	require.NoError(t, err)
	require.True(t, r.IsEnabled("delete"))
	require.False(t, r.IsEnabled("echo"))
	require.Contains(t, res.StructuredContent.(Snapshot).Enabled, "ns::delete")

	_, err = r.CallTool(ctx, TriggerToolName, map[string]any{
		"toolsets": []any{
			map[string]any{"name": "ns::ghost", "trigger": "enable"},
			map[string]any{"name": "other::echo", "trigger": "enable"},
		},
	})
	require.ErrorIs(t, err, herrors.ErrInvalidToolsetName)

	te, ok := errors.AsType[*herrors.ToolError](err)
	require.True(t, ok)
	require.Equal(t, []string{"ns::ghost", "other::echo"}, te.Names)
	require.False(t, r.IsEnabled("echo"))

	r.SetNameMapper(nil)

	res, err = r.CallTool(ctx, ListToolName, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, r.Snapshot(), res.StructuredContent)
}

func TestTrigger_SchemaRejectsBadTrigger(t *testing.T) {
	r := newDynamic(t, "echo")

	_, err := r.CallTool(context.Background(), TriggerToolName, map[string]any{
		"toolsets": []any{map[string]any{"name": "echo", "trigger": "toggle"}},
	})
	require.ErrorIs(t, err, herrors.ErrInvalidParams)
	require.True(t, r.IsEnabled("echo"))
}

func TestTrigger_MetaToolsCannotBeDisabled(t *testing.T) {
	r := newDynamic(t)

	_, err := r.Disable(ListToolName, TriggerToolName)
	require.NoError(t, err)
	require.True(t, r.IsEnabled(ListToolName))
	require.True(t, r.IsEnabled(TriggerToolName))
}

func TestListMetaTool(t *testing.T) {
	r := newDynamic(t, "echo")

	res, err := r.CallTool(context.Background(), ListToolName, map[string]any{})
	require.NoError(t, err)

	snap, ok := res.StructuredContent.(Snapshot)
	require.True(t, ok)
	require.Equal(t, r.Snapshot(), snap)
	require.JSONEq(t,
		`{"available":["echo","delete","dynamic_tool_list","dynamic_tool_trigger"],`+
			`"enabled":["echo","dynamic_tool_list","dynamic_tool_trigger"]}`,
		res.Content[0].(*mcp.TextContent).Text,
	)
}

func TestMetaToolNames(t *testing.T) {
	tests := []struct {
		name        string
		wantList    string
		wantTrigger string
	}{
		{"", "dynamic_tool_list", "dynamic_tool_trigger"},
		{"github", "github_dynamic_tool_list", "github_dynamic_tool_trigger"},
		{"My Server!", "my_server_dynamic_tool_list", "my_server_dynamic_tool_trigger"},
		{"  --  ", "dynamic_tool_list", "dynamic_tool_trigger"},
		{"a.b-c", "a_b_c_dynamic_tool_list", "a_b_c_dynamic_tool_trigger"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, trigger := MetaToolNames(tt.name)
			assert.Equal(t, tt.wantList, list)
			assert.Equal(t, tt.wantTrigger, trigger)
		})
	}

	r, err := New([]Capability{echoCap()},
		WithDynamicDiscovery(DynamicConfig{Enabled: true, Name: "Notes"}))
	require.NoError(t, err)
	require.Equal(t, []string{"notes_dynamic_tool_list", "notes_dynamic_tool_trigger"}, toolNames(r.ListTools()))
}

func TestAddTool(t *testing.T) {
	t.Run("static mode enables new tool and notifies", func(t *testing.T) {
		r, err := New([]Capability{echoCap()})
		require.NoError(t, err)

		var calls int

		r.OnEnabledToolsChanged(func([]*mcp.Tool) { calls++ })

		require.NoError(t, r.AddTool(deleteCap()))
		require.Equal(t, []string{"echo", "delete"}, toolNames(r.ListTools()))
		require.Equal(t, 1, calls)
	})

	t.Run("read only mode gates additions", func(t *testing.T) {
		r, err := New([]Capability{echoCap()}, WithMode(ModeReadOnly))
		require.NoError(t, err)

		var calls int

		r.OnEnabledToolsChanged(func([]*mcp.Tool) { calls++ })

		require.NoError(t, r.AddTool(deleteCap()))
		require.Equal(t, []string{"echo", "delete"}, r.Names())
		require.False(t, r.IsEnabled("delete"))
		require.Zero(t, calls)
	})

	t.Run("dynamic mode starts disabled", func(t *testing.T) {
		r := newDynamic(t)

		extra := deleteCap()
		extra.Name = "purge"
		require.NoError(t, r.AddTool(extra))
		require.False(t, r.IsEnabled("purge"))
		require.Contains(t, r.Snapshot().Available, "purge")
	})

	t.Run("replacement keeps position and state", func(t *testing.T) {
		r, err := New([]Capability{echoCap(), deleteCap()})
		require.NoError(t, err)

		replaced := echoCap()
		replaced.Description = "v2"
		require.NoError(t, r.AddTool(replaced))

		tools := r.ListTools()
		require.Equal(t, []string{"echo", "delete"}, toolNames(tools))
		require.Equal(t, "v2", tools[0].Description)
	})

	t.Run("meta tools cannot be replaced", func(t *testing.T) {
		r := newDynamic(t)

		c := echoCap()
		c.Name = ListToolName
		require.ErrorIs(t, r.AddTool(c), herrors.ErrMetaTool)
	})
}

func TestRemoveTool(t *testing.T) {
	r := newDynamic(t, "echo")

	var calls int

	r.OnEnabledToolsChanged(func([]*mcp.Tool) { calls++ })

	require.NoError(t, r.RemoveTool("echo"))
	require.False(t, r.IsEnabled("echo"))
	require.NotContains(t, r.Names(), "echo")
	require.Equal(t, 1, calls)

	_, err := r.CallTool(context.Background(), "echo", map[string]any{"text": "x"})
	require.ErrorIs(t, err, herrors.ErrUnknownTool)

	require.NoError(t, r.RemoveTool("delete"))
	require.Equal(t, 1, calls, "removing a disabled tool does not notify")

	require.ErrorIs(t, r.RemoveTool("echo"), herrors.ErrUnknownTool)
	require.ErrorIs(t, r.RemoveTool(TriggerToolName), herrors.ErrMetaTool)
}

func TestSubscriptions(t *testing.T) {
	r := newDynamic(t)

	var a, b int

	idA := r.OnEnabledToolsChanged(func([]*mcp.Tool) { a++ })
	idB := r.OnEnabledToolsChanged(func([]*mcp.Tool) { b++ })
	require.NotEqual(t, idA, idB)

	_, err := r.Enable("echo")
	require.NoError(t, err)
	require.Equal(t, 1, a)
	require.Equal(t, 1, b)

	require.True(t, r.OffEnabledToolsChanged(idA))
	require.False(t, r.OffEnabledToolsChanged(idA))

	_, err = r.Apply(nil)
	require.NoError(t, err)
	require.Equal(t, 1, a)
	require.Equal(t, 2, b)
}

func TestSubscriberMayCallRegistry(t *testing.T) {
	r := newDynamic(t)

	var seen []string

	r.OnEnabledToolsChanged(func([]*mcp.Tool) {
		seen = r.Snapshot().Enabled
	})

	_, err := r.Enable("delete")
	require.NoError(t, err)
	require.Contains(t, seen, "delete")
}

func TestConcurrentBatchesAreAtomic(t *testing.T) {
	caps := make([]Capability, 0, 20)
	names := make([]string, 0, 20)

	for i := range 20 {
		c := deleteCap()
		c.Name = fmt.Sprintf("t%02d", i)
		caps = append(caps, c)
		names = append(names, c.Name)
	}

	r, err := New(caps, WithDynamicDiscovery(DynamicConfig{Enabled: true}))
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			for range 50 {
				_, _ = r.Enable(names...)
				_, _ = r.Disable(names...)
			}
		})
	}

	for range 4 {
		wg.Go(func() {
			for range 200 {
				n := len(r.Snapshot().Enabled) - 2
				assert.True(t, n == 0 || n == len(names), "observed partial batch: %d", n)
			}
		})
	}

	wg.Wait()
}
