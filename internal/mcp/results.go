package mcp

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// ErrorResult creates a CallToolResult reporting a tool-level failure.
// Unlike a returned error, the caller sees the message as tool output.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: message},
		},
		IsError: true,
	}
}

// ImageResult creates a CallToolResult with image content.
func ImageResult(data []byte, mimeType string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.ImageContent{
				Data:     data,
				MIMEType: mimeType,
			},
		},
	}
}

// JSONResult creates a CallToolResult carrying v as structured content and
// as its JSON text rendering.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: v,
	}, nil
}

// ResultToMap converts a CallToolResult to its wire map form. Content
// blocks use the SDK's own wire encoding, so every content type survives.
func ResultToMap(result *mcp.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{
			"content": []map[string]any{},
		}
	}

	content := make([]map[string]any, 0, len(result.Content))
	for _, c := range result.Content {
		if block := toMap(c); block != nil {
			content = append(content, block)
		}
	}

	out := map[string]any{"content": content}

	if result.StructuredContent != nil {
		out["structuredContent"] = result.StructuredContent
	}

	if result.IsError {
		out["isError"] = true
	}

	return out
}
