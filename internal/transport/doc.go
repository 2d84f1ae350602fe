// Package transport serves a host over stdio or HTTP.
//
// The HTTP router exposes the MCP streamable HTTP endpoint at /mcp, the
// legacy SSE endpoint at /sse, a plain JSON-RPC endpoint at /rpc, plus
// /healthz and /tools for operators.
package transport
