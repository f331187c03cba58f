// Package main provides the entry point for the codedrift CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codedrift/cmd/codedrift/commands"
	"github.com/Sumatoshi-tech/codedrift/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codedrift",
		Short: "Codedrift - semantic code change analysis",
		Long: `Codedrift turns a repository's history into typed semantic change events.

Commands:
  analyze   Walk a repository's commits and persist their change events
  query     Query stored events by kind, node, location, author, or date
  render    Render stored events as an HTML timeline
  mcp       Start the MCP stdio server for AI agent integration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "codedrift %s\n", version.String())
		},
	}
}
