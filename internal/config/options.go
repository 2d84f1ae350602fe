package config

import (
	"log/slog"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wagiedev/mcp-toolhost/internal/mcp"
	"github.com/wagiedev/mcp-toolhost/internal/registry"
)

// Options configures a tool host.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// Name and Version identify the server to clients.
	Name    string
	Version string

	// Instructions are sent to clients during initialization.
	Instructions string

	// Mode gates which tools may be enabled. Empty means readWrite.
	Mode registry.Mode

	// Dynamic configures dynamic discovery.
	Dynamic registry.DynamicConfig

	// Namespace, when set, qualifies tool names as "namespace::tool".
	Namespace string

	// Resources and Prompts are served next to the tools.
	Resources []*mcp.Resource
	Prompts   []*mcp.Prompt

	// Middleware wraps every received MCP request, outermost first.
	Middleware []mcpsdk.Middleware

	// Telemetry enables request tracing and tool call metrics. Nil
	// providers fall back to the otel globals.
	Telemetry      bool
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	// KeepAlive pings idle sessions at this interval. Zero disables it.
	KeepAlive time.Duration

	// PageSize limits resources/list and prompts/list pages.
	PageSize int
}

// RegistryOptions returns the registry options carried by o.
func (o *Options) RegistryOptions() []registry.Option {
	return []registry.Option{
		registry.WithMode(o.Mode),
		registry.WithDynamicDiscovery(o.Dynamic),
		registry.WithLogger(o.Logger),
	}
}

// HostConfig returns the host configuration carried by o. Telemetry
// middleware is added by the caller.
func (o *Options) HostConfig() mcp.Config {
	return mcp.Config{
		Name:         o.Name,
		Version:      o.Version,
		Instructions: o.Instructions,
		Namespace:    o.Namespace,
		Logger:       o.Logger,
		Resources:    o.Resources,
		Prompts:      o.Prompts,
		Middleware:   o.Middleware,
		KeepAlive:    o.KeepAlive,
		PageSize:     o.PageSize,
	}
}
