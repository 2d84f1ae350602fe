package registry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	herrors "github.com/wagiedev/mcp-toolhost/internal/errors"
)

// Base names of the dynamic discovery meta-tools.
const (
	ListToolName    = "dynamic_tool_list"
	TriggerToolName = "dynamic_tool_trigger"
)

// MetaToolNames returns the list and trigger tool names for a dynamic
// discovery configuration named name.
func MetaToolNames(name string) (list, trigger string) {
	prefix := slug(name)
	if prefix == "" {
		return ListToolName, TriggerToolName
	}

	return prefix + "_" + ListToolName, prefix + "_" + TriggerToolName
}

// slug lowercases name and collapses runs of other characters into "_".
func slug(name string) string {
	var sb strings.Builder

	pendingSep := false

	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingSep && sb.Len() > 0 {
				sb.WriteByte('_')
			}

			pendingSep = false

			sb.WriteRune(r)

			continue
		}

		pendingSep = true
	}

	return sb.String()
}

// MetaToolNames returns the names of this registry's list and trigger tools.
func (r *Registry) MetaToolNames() (list, trigger string) {
	return r.listName, r.triggerName
}

func (r *Registry) metaCapabilities() []Capability {
	destructive := false
	closedWorld := false

	return []Capability{
		{
			Name: r.listName,
			Description: "List every tool this server can expose and which of them " +
				"are currently enabled.",
			InputSchema: &jsonschema.Schema{
				Type:       "object",
				Properties: map[string]*jsonschema.Schema{},
			},
			Annotations: &mcp.ToolAnnotations{
				Title:          "List dynamic tools",
				ReadOnlyHint:   true,
				IdempotentHint: true,
				OpenWorldHint:  &closedWorld,
			},
			Handler: r.handleList,
		},
		{
			Name: r.triggerName,
			Description: "Enable or disable tools by name. Entries apply in order and " +
				"the tool list is refreshed once per call.",
			InputSchema: triggerSchema(),
			Annotations: &mcp.ToolAnnotations{
				Title:           "Enable or disable tools",
				DestructiveHint: &destructive,
				IdempotentHint:  true,
				OpenWorldHint:   &closedWorld,
			},
			Handler: r.handleTrigger,
		},
	}
}

func triggerSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"toolsets": {
				Type:        "array",
				Description: "Tools to enable or disable, applied in order.",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name": {
							Type:        "string",
							Description: "Name of a tool listed as available.",
						},
						"trigger": {
							Type: "string",
							Enum: []any{string(TriggerEnable), string(TriggerDisable)},
						},
					},
					Required: []string{"name", "trigger"},
				},
			},
		},
		Required: []string{"toolsets"},
	}
}

func (r *Registry) handleList(_ context.Context, _ map[string]any) (*mcp.CallToolResult, error) {
	return snapshotResult(r.external(r.Snapshot()))
}

func (r *Registry) handleTrigger(_ context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	var in struct {
		Toolsets []ToolsetChange `json:"toolsets"`
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return nil, herrors.InvalidParams(r.triggerName, err.Error())
	}

	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, herrors.InvalidParams(r.triggerName, err.Error())
	}

	given := r.internal(in.Toolsets)

	snap, err := r.apply(r.triggerName, in.Toolsets)
	if err != nil {
		if te, ok := errors.AsType[*herrors.ToolError](err); ok {
			for i, name := range te.Names {
				if orig, ok := given[name]; ok {
					te.Names[i] = orig
				}
			}
		}

		return nil, err
	}

	return snapshotResult(r.external(snap))
}

func (r *Registry) mapper() NameMapper {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.names
}

// internal rewrites caller-visible names in changes to registry names in
// place and returns the names as given, keyed by registry name. Names the
// mapper rejects are kept, so the batch fails as naming an unknown tool.
func (r *Registry) internal(changes []ToolsetChange) map[string]string {
	names := r.mapper()
	if names == nil {
		return nil
	}

	given := make(map[string]string, len(changes))

	for i, c := range changes {
		local, ok := names.Strip(c.Name)
		if !ok {
			continue
		}

		given[local] = c.Name
		changes[i].Name = local
	}

	return given
}

// external maps the names in s to the names callers see.
func (r *Registry) external(s Snapshot) Snapshot {
	names := r.mapper()
	if names == nil {
		return s
	}

	qualify := func(in []string) []string {
		out := make([]string, len(in))
		for i, name := range in {
			out[i] = names.Qualify(name)
		}

		return out
	}

	return Snapshot{Available: qualify(s.Available), Enabled: qualify(s.Enabled)}
}

func snapshotResult(s Snapshot) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		StructuredContent: s,
	}, nil
}
