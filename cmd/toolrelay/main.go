package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD)".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "toolrelay",
		Short: "toolrelay - reasoning model tools over MCP",
		Long: `toolrelay exposes a catalogue of code assistance tools (chat, debug,
codereview, ...) over the Model Context Protocol. Each call is fitted into the
model's context window and relayed to an OpenAI compatible endpoint.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildToolsCmd(),
		buildPlanCmd(),
		buildConfigCmd(),
	)
	return rootCmd
}
