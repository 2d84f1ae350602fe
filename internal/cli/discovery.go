package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wagiedev/mcp-toolhost/internal/errors"
)

// EnvConfig names the environment variable holding a config file path.
const EnvConfig = "TOOLHOST_CONFIG"

// Config holds configuration for config file discovery.
type Config struct {
	// Path is an explicit config path that skips the search.
	Path string

	// Lookup reads environment variables. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)

	// SearchPaths overrides the default search locations.
	SearchPaths []string

	// Logger is an optional logger for discovery operations.
	Logger *slog.Logger
}

// Discoverer locates the toolhost configuration file.
type Discoverer interface {
	// Discover returns the config path. found is false when nothing was
	// requested explicitly and no default location exists.
	Discover() (path string, found bool, err error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a config discoverer.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.Lookup == nil {
		cfg.Lookup = os.LookupEnv
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log.With("component", "discovery"),
	}
}

func (d *discoverer) Discover() (string, bool, error) {
	// An explicit path is used and only it.
	if d.cfg.Path != "" {
		return d.explicit(d.cfg.Path)
	}

	if path, ok := d.cfg.Lookup(EnvConfig); ok && path != "" {
		d.log.Debug("using config from environment", "env", EnvConfig, "path", path)

		return d.explicit(path)
	}

	paths := d.cfg.SearchPaths
	if paths == nil {
		paths = DefaultSearchPaths(d.cfg.Lookup)
	}

	for _, path := range paths {
		d.log.Debug("checking config path", "path", path)

		if isFile(path) {
			d.log.Debug("found config", "path", path)

			return path, true, nil
		}
	}

	d.log.Debug("no config file found, using defaults", "searched_paths", paths)

	return "", false, nil
}

func (d *discoverer) explicit(path string) (string, bool, error) {
	if isFile(path) {
		return path, true, nil
	}

	return "", false, &errors.ConfigNotFoundError{SearchedPaths: []string{path}}
}

// DefaultSearchPaths returns the locations searched for a config file.
func DefaultSearchPaths(lookup func(string) (string, bool)) []string {
	paths := []string{"toolhost.yaml", "toolhost.yml"}

	configHome, ok := lookup("XDG_CONFIG_HOME")
	if !ok || configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}

	if configHome != "" {
		paths = append(paths, filepath.Join(configHome, "toolhost", "toolhost.yaml"))
	}

	return append(paths, "/etc/toolhost/toolhost.yaml")
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
