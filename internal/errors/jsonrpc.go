package errors

import (
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// JSON-RPC 2.0 error codes used by the host.
const (
	CodeInvalidRequest int64 = -32600
	CodeMethodNotFound int64 = -32601
	CodeInvalidParams  int64 = -32602
	CodeInternalError  int64 = -32603
)

// Reasons carried in the data member of JSON-RPC errors.
const (
	ReasonUnknownTool        = "unknown_tool"
	ReasonToolNotEnabled     = "tool_not_enabled"
	ReasonInvalidParams      = "invalid_params"
	ReasonInvalidToolsetName = "invalid_toolset_name"
	ReasonInternal           = "internal"
)

// Code maps err to a JSON-RPC error code.
func Code(err error) int64 {
	switch {
	case isHandlerError(err):
		return CodeInternalError
	case errors.Is(err, ErrUnknownTool), errors.Is(err, ErrToolNotEnabled):
		return CodeMethodNotFound
	case errors.Is(err, ErrInvalidParams):
		return CodeInvalidParams
	default:
		return CodeInternalError
	}
}

// Reason returns the machine-readable reason for err.
func Reason(err error) string {
	switch {
	case isHandlerError(err):
		return ReasonInternal
	case errors.Is(err, ErrUnknownTool):
		return ReasonUnknownTool
	case errors.Is(err, ErrToolNotEnabled):
		return ReasonToolNotEnabled
	case errors.Is(err, ErrInvalidToolsetName):
		return ReasonInvalidToolsetName
	case errors.Is(err, ErrInvalidParams):
		return ReasonInvalidParams
	default:
		return ReasonInternal
	}
}

func isHandlerError(err error) bool {
	_, ok := errors.AsType[*HandlerError](err)

	return ok
}

// ErrorData is the data member attached to JSON-RPC errors.
type ErrorData struct {
	Reason      string       `json:"reason"`
	Tool        string       `json:"tool,omitempty"`
	Names       []string     `json:"names,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Data builds the JSON-RPC data payload for err.
func Data(err error) ErrorData {
	data := ErrorData{Reason: Reason(err)}

	if he, ok := errors.AsType[*HandlerError](err); ok {
		data.Tool = he.Tool

		return data
	}

	var te *ToolError
	if errors.As(err, &te) {
		data.Tool = te.Tool
		data.Names = te.Names
		data.Diagnostics = te.Diagnostics
	}

	return data
}

// ToWire converts err into a JSON-RPC wire error. Errors that already are
// wire errors pass through unchanged.
func ToWire(err error) *jsonrpc.Error {
	if err == nil {
		return nil
	}

	var wire *jsonrpc.Error
	if errors.As(err, &wire) {
		return wire
	}

	out := &jsonrpc.Error{
		Code:    Code(err),
		Message: err.Error(),
	}

	if raw, mErr := json.Marshal(Data(err)); mErr == nil {
		out.Data = raw
	}

	return out
}
