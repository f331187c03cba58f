package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codedrift/internal/mcp"
	"github.com/Sumatoshi-tech/codedrift/internal/observability"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		configPath  string
		dbPath      string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes Codedrift capabilities as tools that AI agents can
discover and invoke:
  - codedrift_query:   query stored semantic change events
  - codedrift_analyze: analyze a repository's history into events`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			application, err := newApp(setupOptions{
				configPath:  configPath,
				dbPath:      dbPath,
				metricsAddr: metricsAddr,
				mode:        observability.ModeMCP,
				openStore:   true,
			})
			if err != nil {
				return err
			}
			defer application.close()

			eng, err := application.buildEngine()
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(application.meter())
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Store:   application.store,
				Engine:  eng,
				Logger:  application.log,
				Metrics: red,
				Tracer:  application.providers.Tracer,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&dbPath, "db", "", "event store directory (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"serve /healthz, /readyz, and /metrics on this address (overrides config)")

	return cmd
}
