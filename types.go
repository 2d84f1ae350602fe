package toolhost

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/mcp-toolhost/internal/config"
	internalmcp "github.com/wagiedev/mcp-toolhost/internal/mcp"
	"github.com/wagiedev/mcp-toolhost/internal/registry"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// ServerOptions configures a Server.
type ServerOptions = config.Options

// Mode gates which tools may be enabled.
type Mode = registry.Mode

const (
	// ModeReadOnly only allows tools annotated with readOnlyHint.
	ModeReadOnly = registry.ModeReadOnly
	// ModeReadWrite allows every tool.
	ModeReadWrite = registry.ModeReadWrite
)

// ParseMode normalizes a mode string such as "readOnly", "ro" or "rw".
func ParseMode(s string) (Mode, error) {
	return config.ParseMode(s)
}

// DynamicConfig configures dynamic discovery.
type DynamicConfig = registry.DynamicConfig

// ===== Dynamic Discovery =====

// Trigger is the action applied to a tool by a ToolsetChange.
type Trigger = registry.Trigger

const (
	// TriggerEnable adds a tool to the enabled set.
	TriggerEnable = registry.TriggerEnable
	// TriggerDisable removes a tool from the enabled set.
	TriggerDisable = registry.TriggerDisable
)

// ToolsetChange enables or disables one tool.
type ToolsetChange = registry.ToolsetChange

// Snapshot lists available and enabled tool names.
type Snapshot = registry.Snapshot

// SubscriptionID identifies an enabled-tools subscription.
type SubscriptionID = registry.SubscriptionID

// ChangeFunc receives the enabled tool listing after each change.
type ChangeFunc = registry.ChangeFunc

// MetaToolNames returns the list and trigger meta-tool names used for a
// dynamic discovery name.
func MetaToolNames(name string) (list, trigger string) {
	return registry.MetaToolNames(name)
}

// ===== Resources and Prompts =====

// Resource is a static resource served next to the tools.
type Resource = internalmcp.Resource

// ResourceReader returns the contents of a resource.
type ResourceReader = internalmcp.ResourceReader

// ResourceContents is the content of a read resource.
type ResourceContents = mcp.ResourceContents

// Prompt is a prompt template served next to the tools.
type Prompt = internalmcp.Prompt

// PromptRenderer renders a prompt from its arguments.
type PromptRenderer = internalmcp.PromptRenderer

// PromptArgument describes one prompt argument.
type PromptArgument = mcp.PromptArgument

// PromptMessage is one message of a rendered prompt.
type PromptMessage = mcp.PromptMessage

// GetPromptResult is a rendered prompt.
type GetPromptResult = mcp.GetPromptResult

// Middleware wraps received MCP requests.
type Middleware = mcp.Middleware

// Status describes a running server.
type Status = internalmcp.Status
