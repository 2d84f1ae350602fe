// Package naming qualifies tool names with a server prefix at the protocol
// boundary, so several tool sets can be mounted side by side.
package naming

import "strings"

// Separator joins the server name and the tool name.
const Separator = "::"

// Qualifier maps between registry names and externally visible names.
// The zero value performs no qualification.
type Qualifier struct {
	Server string
}

// Enabled reports whether names are qualified.
func (q Qualifier) Enabled() bool {
	return q.Server != ""
}

// Qualify returns the external name for a registry tool name.
func (q Qualifier) Qualify(name string) string {
	if !q.Enabled() {
		return name
	}

	return q.Server + Separator + name
}

// Strip returns the registry name for an external name. Unqualified names
// are accepted as-is; names qualified for a different server are rejected.
func (q Qualifier) Strip(name string) (string, bool) {
	if !q.Enabled() {
		return name, true
	}

	if rest, ok := strings.CutPrefix(name, q.Server+Separator); ok {
		return rest, true
	}

	if strings.Contains(name, Separator) {
		return "", false
	}

	return name, true
}
