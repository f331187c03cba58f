package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codedrift/internal/observability"
	"github.com/Sumatoshi-tech/codedrift/internal/runner"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// hashDisplayLen is the abbreviated commit hash length in progress output.
const hashDisplayLen = 8

// NewAnalyzeCommand creates the analyze subcommand.
func NewAnalyzeCommand() *cobra.Command {
	var (
		configPath  string
		dbPath      string
		metricsAddr string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <repo-path>",
		Short: "Walk a repository's commits and persist their change events",
		Long: `Analyze walks the repository's history from its root commit to HEAD,
classifies every changed Python, JavaScript, and PHP file into semantic
change events, and persists one event batch per commit. Commits already
present in the store are skipped, so interrupted runs resume.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			repoPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve repository path: %w", err)
			}

			application, err := newApp(setupOptions{
				configPath:  configPath,
				dbPath:      dbPath,
				metricsAddr: metricsAddr,
				mode:        observability.ModeCLI,
				openStore:   true,
			})
			if err != nil {
				return err
			}
			defer application.close()

			return runAnalyze(cobraCmd, application, repoPath, quiet)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&dbPath, "db", "", "event store directory (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "",
		"serve /healthz, /readyz, and /metrics on this address (overrides config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-commit progress")

	return cmd
}

func runAnalyze(cmd *cobra.Command, application *app, repoPath string, quiet bool) error {
	eng, err := application.buildEngine()
	if err != nil {
		return err
	}

	opts := []runner.Option{}
	if !quiet {
		opts = append(opts, runner.WithProgress(printProgress))
	}

	run := runner.New(eng, application.store, application.log, opts...)

	start := time.Now()

	stats, err := run.Run(cmd.Context(), repoPath)
	if err != nil {
		return err
	}

	printSummary(stats, time.Since(start))

	return nil
}

func printProgress(meta event.Meta, events int) {
	hash := meta.Hash
	if len(hash) > hashDisplayLen {
		hash = hash[:hashDisplayLen]
	}

	fmt.Fprintf(os.Stderr, "%s %s %s\n",
		color.CyanString(hash),
		meta.Timestamp.Format("2006-01-02"),
		color.GreenString("%s", eventCountLabel(events)),
	)
}

func printSummary(stats runner.Stats, elapsed time.Duration) {
	bold := color.New(color.Bold)

	bold.Fprintln(os.Stderr, "analysis complete")
	fmt.Fprintf(os.Stderr, "  commits:  %s analyzed, %s skipped\n",
		humanize.Comma(int64(stats.Commits)),
		humanize.Comma(int64(stats.Skipped)),
	)
	fmt.Fprintf(os.Stderr, "  events:   %s\n", humanize.Comma(int64(stats.Events)))
	fmt.Fprintf(os.Stderr, "  elapsed:  %s\n", elapsed.Round(time.Millisecond))
}

func eventCountLabel(count int) string {
	if count == 1 {
		return "1 event"
	}

	return fmt.Sprintf("%d events", count)
}
