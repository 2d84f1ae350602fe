package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	toolhost "github.com/wagiedev/mcp-toolhost"
	"github.com/wagiedev/mcp-toolhost/internal/builtin"
	"github.com/wagiedev/mcp-toolhost/internal/config"
	"github.com/wagiedev/mcp-toolhost/internal/telemetry"
)

// addServerFlags registers the flags shared by commands that build a server.
func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "Tool mode: readOnly or readWrite")
	cmd.Flags().Bool("dynamic", false, "Enable dynamic discovery meta-tools")
	cmd.Flags().StringSlice("default-toolsets", nil, "Tools enabled at start with --dynamic")
	cmd.Flags().String("dynamic-name", "", "Prefix for the dynamic discovery meta-tool names")
	cmd.Flags().String("namespace", "", "Qualify tool names as namespace::tool")
}

// loadSettings layers defaults, the config file, the environment and flags.
func loadSettings(cmd *cobra.Command) (*config.File, error) {
	explicit, _ := cmd.Flags().GetString("config")

	path, found, err := NewDiscoverer(&Config{Path: explicit, Lookup: os.LookupEnv}).Discover()
	if err != nil {
		return nil, exitError(ExitConfig, "%v", err)
	}

	f := config.DefaultFile()
	if found {
		if f, err = config.LoadFile(path); err != nil {
			return nil, exitError(ExitConfig, "%v", err)
		}
	}

	if err := f.ApplyEnv(os.LookupEnv); err != nil {
		return nil, exitError(ExitConfig, "%v", err)
	}

	applyFlags(cmd, f)

	if err := f.Validate(); err != nil {
		return nil, exitError(ExitConfig, "invalid configuration: %v", err)
	}

	return f, nil
}

// applyFlags overrides f with the flags set on the command line.
func applyFlags(cmd *cobra.Command, f *config.File) {
	flags := cmd.Flags()

	if flags.Changed("log-level") {
		f.Log.Level, _ = flags.GetString("log-level")
	}

	if flags.Changed("log-format") {
		f.Log.Format, _ = flags.GetString("log-format")
	}

	if flags.Changed("mode") {
		f.Mode, _ = flags.GetString("mode")
	}

	if flags.Changed("dynamic") {
		f.Dynamic.Enabled, _ = flags.GetBool("dynamic")
	}

	if flags.Changed("default-toolsets") {
		f.Dynamic.DefaultEnabledToolsets, _ = flags.GetStringSlice("default-toolsets")
	}

	if flags.Changed("dynamic-name") {
		f.Dynamic.Name, _ = flags.GetString("dynamic-name")
	}

	if flags.Changed("namespace") {
		f.Namespace, _ = flags.GetString("namespace")
	}

	if flags.Lookup("transport") != nil && flags.Changed("transport") {
		f.Transport, _ = flags.GetString("transport")
	}

	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		f.HTTP.Addr, _ = flags.GetString("addr")
	}

	if flags.Lookup("stateless") != nil && flags.Changed("stateless") {
		f.HTTP.Stateless, _ = flags.GetBool("stateless")
	}
}

// newServer builds the builtin toolset server described by f. The returned
// shutdown flushes telemetry.
func newServer(
	ctx context.Context,
	f *config.File,
	version string,
	log *slog.Logger,
	telemetryOut io.Writer,
) (*toolhost.Server, func(context.Context) error, error) {
	set, err := builtin.New(nil)
	if err != nil {
		return nil, nil, err
	}

	opts := append([]toolhost.Option{
		toolhost.WithLogger(log),
		toolhost.WithName(f.Name),
		toolhost.WithVersion(version),
		toolhost.WithInstructions(f.Instructions),
		toolhost.WithMode(f.ModeValue()),
		toolhost.WithDynamicConfig(f.DynamicConfig()),
		toolhost.WithNamespace(f.Namespace),
	}, set.Options()...)

	shutdown := func(context.Context) error { return nil }

	if f.Telemetry.Enabled {
		serviceName := f.Telemetry.ServiceName
		if serviceName == "" {
			serviceName = f.Name
		}

		providers, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    serviceName,
			ServiceVersion: version,
			UseStdout:      true,
			Writer:         telemetryOut,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init telemetry: %w", err)
		}

		shutdown = providers.Shutdown
		opts = append(opts, toolhost.WithTelemetry(providers.Tracer, providers.Meter))
	}

	server, err := toolhost.NewServer(set.Tools, opts...)
	if err != nil {
		_ = shutdown(ctx)

		return nil, nil, err
	}

	return server, shutdown, nil
}
