package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewToolsCmd creates the "tools" subcommand.
func NewToolsCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool listing a client would see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTools(cmd, version)
		},
	}

	addServerFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the tools/list result as JSON")
	cmd.Flags().Bool("all", false, "Also list registered tools that are not enabled")

	return cmd
}

func runTools(cmd *cobra.Command, version string) error {
	f, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	log := f.NewLogger(cmd.ErrOrStderr())
	f.Telemetry.Enabled = false

	server, _, err := newServer(cmd.Context(), f, version, log, io.Discard)
	if err != nil {
		return exitError(ExitConfig, "%v", err)
	}
	defer server.Close()

	resp, err := server.HandleMessage(cmd.Context(), map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
	})
	if err != nil {
		return exitError(ExitRuntime, "list tools: %v", err)
	}

	result, _ := resp["result"].(map[string]any)
	tools, _ := result["tools"].([]map[string]any)

	asJSON, _ := cmd.Flags().GetBool("json")
	all, _ := cmd.Flags().GetBool("all")

	out := cmd.OutOrStdout()

	if asJSON {
		payload := map[string]any{"tools": tools}
		if all {
			payload["snapshot"] = server.Snapshot()
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(payload)
	}

	var hidden []string

	if all {
		snap := server.Snapshot()

		for _, name := range snap.Available {
			if !slices.Contains(snap.Enabled, name) {
				hidden = append(hidden, name)
			}
		}
	}

	return printTools(out, tools, hidden)
}

func printTools(out io.Writer, tools []map[string]any, hidden []string) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tREAD-ONLY\tDESCRIPTION")

	for _, tool := range tools {
		name, _ := tool["name"].(string)
		description, _ := tool["description"].(string)
		annotations, _ := tool["annotations"].(map[string]any)
		readOnly, _ := annotations["readOnlyHint"].(bool)

		fmt.Fprintf(tw, "%s\t%t\t%s\n", name, readOnly, description)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if len(hidden) > 0 {
		fmt.Fprintf(out, "\nnot enabled: %v\n", hidden)
	}

	return nil
}
