// Package protocol answers MCP JSON-RPC messages carried as generic maps.
//
// The Dispatcher routes each message to a named host by method:
// initialize, ping, tools/list, tools/call, resources/list, resources/read,
// prompts/list and prompts/get. Registry failures keep the same JSON-RPC
// codes and data the session transports use.
//
// Example usage:
//
//	d := protocol.NewDispatcher(log, host)
//	resp, err := d.HandleMessage(ctx, host.Name(), map[string]any{
//		"jsonrpc": "2.0",
//		"id":      1,
//		"method":  "tools/list",
//	})
package protocol
