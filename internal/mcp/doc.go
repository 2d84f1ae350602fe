// Package mcp binds the tool registry to a Model Context Protocol server.
//
// A Host owns an *mcp.Server from github.com/modelcontextprotocol/go-sdk and
// keeps its tool set in step with the registry's enabled tools, so every
// connected session is told when the list changes. Tool listing and calls are
// answered from the registry, and registry failures are translated to
// JSON-RPC errors. Static resources and prompt templates are registered on
// the same server.
//
// The host also offers a map-shaped view (ServerInstance) for dispatchers
// that carry MCP messages over a control channel instead of a transport.
package mcp
