// Package cli implements the toolhost command: configuration discovery and
// the cobra command tree.
//
// # Config Discovery
//
// The Discoverer locates the YAML configuration file:
//
//	path, found, err := cli.NewDiscoverer(&cli.Config{
//	    Path:   flagPath, // optional explicit path
//	    Lookup: os.LookupEnv,
//	}).Discover()
//
// Discovery searches in the following order:
//  1. Explicit path in Config.Path (if provided, it must exist)
//  2. The TOOLHOST_CONFIG environment variable (if set, it must exist)
//  3. ./toolhost.yaml and ./toolhost.yml
//  4. $XDG_CONFIG_HOME/toolhost/toolhost.yaml (or ~/.config/toolhost)
//  5. /etc/toolhost/toolhost.yaml
//
// # Commands
//
//	toolhost serve [--transport stdio|sse|http] [--addr host:port]
//	               [--mode readOnly|readWrite] [--dynamic] [--namespace ns]
//	toolhost tools [--json]
//
// Settings are layered: built-in defaults, then the config file, then
// TOOLHOST_* environment variables, then flags.
package cli
