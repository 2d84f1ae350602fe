package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the toolhost command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "toolhost",
		Short: "Serve MCP tools with runtime enable/disable",
		Long: "toolhost serves a toolset over the Model Context Protocol. " +
			"Tools can be gated by a read-only mode and toggled at runtime through dynamic discovery.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to toolhost.yaml (default: discovered)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "", "Log format: text or json")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("toolhost version %s\n", version))

	root.AddCommand(NewServeCmd(version))
	root.AddCommand(NewToolsCmd(version))

	return root
}
