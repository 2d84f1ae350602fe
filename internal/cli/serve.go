package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wagiedev/mcp-toolhost/internal/config"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the builtin toolset over stdio, SSE or streamable HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, version)
		},
	}

	addServerFlags(cmd)
	cmd.Flags().String("transport", "", "Transport: stdio, sse or http")
	cmd.Flags().String("addr", "", "Listen address for sse and http (default "+config.DefaultAddr+")")
	cmd.Flags().Bool("stateless", false, "Serve streamable HTTP without session tracking")

	return cmd
}

func runServe(cmd *cobra.Command, version string) error {
	f, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	// stdout carries the protocol on stdio, so logs and telemetry use stderr.
	log := f.NewLogger(cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, shutdown, err := newServer(ctx, f, version, log, cmd.ErrOrStderr())
	if err != nil {
		return exitError(ExitConfig, "%v", err)
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := shutdown(flushCtx); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}

		_ = server.Close()
	}()

	snap := server.Snapshot()
	log.Info("starting toolhost",
		"version", version,
		"transport", f.TransportValue(),
		"mode", server.Mode(),
		"dynamic", f.Dynamic.Enabled,
		"available", len(snap.Available),
		"enabled", len(snap.Enabled),
	)

	transport := f.TransportValue()
	if !transport.IsHTTP() {
		err = server.ServeStdio(ctx)
	} else {
		err = server.ServeHTTP(ctx, f.HTTP.Addr, f.HTTP.Stateless)
	}

	if err != nil {
		return exitError(ExitRuntime, "serve %s: %v", transport, err)
	}

	return nil
}
