// Package config provides configuration types for the tool host.
package config

import (
	"fmt"
	"strings"
)

// TransportType selects how the host is served.
type TransportType string

const (
	// TransportStdio serves a single session over stdin/stdout.
	TransportStdio TransportType = "stdio"
	// TransportSSE serves the legacy HTTP+SSE transport.
	TransportSSE TransportType = "sse"
	// TransportHTTP serves the streamable HTTP transport.
	TransportHTTP TransportType = "http"
)

// ParseTransport normalizes a transport name.
func ParseTransport(s string) (TransportType, error) {
	switch t := TransportType(strings.ToLower(strings.TrimSpace(s))); t {
	case TransportStdio, TransportSSE, TransportHTTP:
		return t, nil
	case "", "streamable", "streamable-http":
		if t == "" {
			return TransportStdio, nil
		}

		return TransportHTTP, nil
	default:
		return "", fmt.Errorf("unknown transport %q", s)
	}
}

// IsHTTP reports whether t is served over HTTP.
func (t TransportType) IsHTTP() bool {
	return t == TransportSSE || t == TransportHTTP
}
