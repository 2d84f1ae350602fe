package config

import (
	"fmt"
	"strings"

	"github.com/wagiedev/mcp-toolhost/internal/registry"
)

// ParseMode normalizes a toolset mode name.
//
// Accepted spellings:
//   - "readOnly", "read-only", "read_only", "readonly", "ro" -> readOnly
//   - "readWrite", "read-write", "read_write", "readwrite", "rw", "" -> readWrite
func ParseMode(s string) (registry.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "readonly", "read-only", "read_only", "ro":
		return registry.ModeReadOnly, nil
	case "readwrite", "read-write", "read_write", "rw", "":
		return registry.ModeReadWrite, nil
	default:
		return "", fmt.Errorf("unknown toolset mode %q", s)
	}
}
