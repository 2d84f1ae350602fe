package mcp

import "github.com/wagiedev/mcp-toolhost/internal/registry"

// Status describes a running host.
type Status struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Mode      registry.Mode     `json:"mode"`
	Dynamic   bool              `json:"dynamic"`
	Namespace string            `json:"namespace,omitempty"`
	Sessions  int               `json:"sessions"`
	Tools     registry.Snapshot `json:"tools"`
}

// Status returns the host's current status.
func (h *Host) Status() Status {
	sessions := 0
	for range h.server.Sessions() {
		sessions++
	}

	return Status{
		Name:      h.name,
		Version:   h.version,
		Mode:      h.registry.Mode(),
		Dynamic:   h.registry.DynamicEnabled(),
		Namespace: h.qualifier.Server,
		Sessions:  sessions,
		Tools:     h.registry.Snapshot(),
	}
}
