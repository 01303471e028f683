// Command hospitalctl is the hospital operations platform's ops CLI
// (SPEC_FULL.md §2.1): a thin wrapper over a running hospitalcored's RPC
// Boundary (spec.md §6) for operators who want to list tools, call one
// directly, check health, or drive a chat turn from a terminal without
// standing up any UI. Grounded on haasonsaas-nexus's cmd/nexus Cobra root
// command plus its api_client.go HTTP client, the pack's only example of a
// CLI whose job is entirely "talk to my own already-running service over
// HTTP" rather than embed the service itself.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var addr string

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hospitalctl:", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached,
// separated from main for testability (mirrors nexus's own buildRootCmd).
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hospitalctl",
		Short:        "hospitalctl - operator CLI for the hospital operations platform",
		Long:         "hospitalctl talks to a running hospitalcored instance's RPC Boundary: list tools, call one, check health, or run a chat turn.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "http://localhost:8080", "base URL of the hospitalcored RPC Boundary")

	rootCmd.AddCommand(
		buildToolsCmd(),
		buildHealthCmd(),
		buildChatCmd(),
	)
	return rootCmd
}
