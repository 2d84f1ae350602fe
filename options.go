package toolhost

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures ServerOptions using the functional options pattern.
type Option func(*ServerOptions)

// applyServerOptions applies functional options to a ServerOptions struct.
func applyServerOptions(opts []Option) *ServerOptions {
	options := &ServerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// NopLogger returns the discard logger servers use when WithLogger is not
// given.
func NopLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *ServerOptions) {
		o.Logger = logger
	}
}

// WithName sets the server name reported to clients.
func WithName(name string) Option {
	return func(o *ServerOptions) {
		o.Name = name
	}
}

// WithVersion sets the server version reported to clients.
func WithVersion(version string) Option {
	return func(o *ServerOptions) {
		o.Version = version
	}
}

// WithInstructions sets the instructions sent to clients on initialize.
func WithInstructions(instructions string) Option {
	return func(o *ServerOptions) {
		o.Instructions = instructions
	}
}

// ===== Tool Gating =====

// WithMode sets the read/write mode. In ModeReadOnly only tools annotated
// with readOnlyHint can be enabled.
func WithMode(mode Mode) Option {
	return func(o *ServerOptions) {
		o.Mode = mode
	}
}

// WithDynamicDiscovery starts the server with only defaultEnabled tools
// enabled and registers the list and trigger meta-tools.
func WithDynamicDiscovery(defaultEnabled ...string) Option {
	return func(o *ServerOptions) {
		o.Dynamic.Enabled = true
		o.Dynamic.DefaultEnabledToolsets = defaultEnabled
	}
}

// WithDynamicConfig sets the full dynamic discovery configuration.
func WithDynamicConfig(cfg DynamicConfig) Option {
	return func(o *ServerOptions) {
		o.Dynamic = cfg
	}
}

// WithNamespace qualifies advertised tool names as "namespace::tool".
func WithNamespace(namespace string) Option {
	return func(o *ServerOptions) {
		o.Namespace = namespace
	}
}

// ===== Resources and Prompts =====

// WithResources serves static resources next to the tools.
func WithResources(resources ...*Resource) Option {
	return func(o *ServerOptions) {
		o.Resources = append(o.Resources, resources...)
	}
}

// WithPrompts serves prompt templates next to the tools.
func WithPrompts(prompts ...*Prompt) Option {
	return func(o *ServerOptions) {
		o.Prompts = append(o.Prompts, prompts...)
	}
}

// ===== Advanced =====

// WithMiddleware wraps every received MCP request, outermost first.
func WithMiddleware(middleware ...Middleware) Option {
	return func(o *ServerOptions) {
		o.Middleware = append(o.Middleware, middleware...)
	}
}

// WithTelemetry traces every MCP request and records tool call metrics.
// Nil providers fall back to the global OpenTelemetry providers.
func WithTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(o *ServerOptions) {
		o.Telemetry = true
		o.TracerProvider = tp
		o.MeterProvider = mp
	}
}

// WithKeepAlive pings idle sessions at the given interval.
func WithKeepAlive(interval time.Duration) Option {
	return func(o *ServerOptions) {
		o.KeepAlive = interval
	}
}

// WithPageSize limits resources/list and prompts/list pages.
func WithPageSize(size int) Option {
	return func(o *ServerOptions) {
		o.PageSize = size
	}
}
