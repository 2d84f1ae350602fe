package registry

import (
	"context"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Handler executes a tool. args has already been validated against the
// tool's input schema.
type Handler func(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error)

// Capability is a tool definition paired with its handler.
type Capability struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Annotations *mcp.ToolAnnotations
	Handler     Handler
}

// ReadOnly reports whether the capability declares readOnlyHint.
func (c Capability) ReadOnly() bool {
	return c.Annotations != nil && c.Annotations.ReadOnlyHint
}

// Mode gates which tools may be enabled.
type Mode string

const (
	// ModeReadOnly only allows tools annotated with readOnlyHint.
	ModeReadOnly Mode = "readOnly"
	// ModeReadWrite allows every tool.
	ModeReadWrite Mode = "readWrite"
)

// DynamicConfig configures dynamic discovery.
type DynamicConfig struct {
	// Enabled registers the list and trigger meta-tools and starts with only
	// DefaultEnabledToolsets enabled.
	Enabled bool
	// DefaultEnabledToolsets names the tools enabled at construction.
	DefaultEnabledToolsets []string
	// Name, when set, prefixes the meta-tool names with its slug.
	Name string
}

// Trigger is the action applied to a tool by a ToolsetChange.
type Trigger string

const (
	TriggerEnable  Trigger = "enable"
	TriggerDisable Trigger = "disable"
)

// ToolsetChange enables or disables one tool.
type ToolsetChange struct {
	Name    string  `json:"name"`
	Trigger Trigger `json:"trigger"`
}

// Snapshot is the registry state returned by the list meta-tool.
type Snapshot struct {
	Available []string `json:"available"`
	Enabled   []string `json:"enabled"`
}

// SubscriptionID identifies an enabled-tools subscription.
type SubscriptionID uint64

// ChangeFunc receives the enabled tool listing after each change.
// The slice must not be modified.
type ChangeFunc func(tools []*mcp.Tool)

// NameMapper translates between registry names and the names callers see.
// The meta-tools use it so their input and output match the advertised
// listing.
type NameMapper interface {
	Qualify(name string) string
	Strip(name string) (string, bool)
}

// Options configures a Registry.
type Options struct {
	Mode    Mode
	Dynamic DynamicConfig
	Logger  *slog.Logger
	Names   NameMapper
}

// Option configures Options.
type Option func(*Options)

// WithMode sets the read/write mode.
func WithMode(mode Mode) Option {
	return func(o *Options) {
		o.Mode = mode
	}
}

// WithDynamicDiscovery configures dynamic discovery.
func WithDynamicDiscovery(cfg DynamicConfig) Option {
	return func(o *Options) {
		o.Dynamic = cfg
	}
}

// WithNameMapper sets the mapping applied to names read and written by the
// meta-tools.
func WithNameMapper(names NameMapper) Option {
	return func(o *Options) {
		o.Names = names
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}
