// Package telemetry wires OpenTelemetry tracing and metrics into an MCP host.
//
// Init installs global tracer and meter providers. Middleware returns a
// receiving middleware that opens one span per MCP method and records tool
// call counts and durations.
package telemetry
