// Package errors defines the error kinds produced by the tool registry and
// their mapping onto JSON-RPC error codes.
//
// Registry failures are *ToolError values whose Kind is one of the sentinel
// errors, so they can be checked using errors.Is, errors.As, and errors.AsType.
package errors
