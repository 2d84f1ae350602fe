package transport

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	toolmcp "github.com/wagiedev/mcp-toolhost/internal/mcp"
)

// ServeStdio runs host over stdin/stdout until the client disconnects or ctx
// is cancelled.
func ServeStdio(ctx context.Context, host *toolmcp.Host) error {
	err := host.Run(ctx, &mcp.StdioTransport{})
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
