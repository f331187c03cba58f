package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/codedrift/internal/observability"
	"github.com/Sumatoshi-tech/codedrift/internal/storage"
)

// Output format names.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// ErrUnknownFormat indicates an unsupported --format value.
var ErrUnknownFormat = errors.New("format must be one of table, json, yaml")

// ErrInvalidQueryTime indicates a --since/--until value could not be parsed.
var ErrInvalidQueryTime = errors.New("time must be RFC3339 or YYYY-MM-DD")

// queryFlags holds the filter flags of the query command.
type queryFlags struct {
	kinds         []string
	nodeID        string
	location      string
	author        string
	since         string
	until         string
	minConfidence float64
	format        string
}

// NewQueryCommand creates the query subcommand.
func NewQueryCommand() *cobra.Command {
	var (
		configPath string
		dbPath     string
		flags      queryFlags
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query stored events by kind, node, location, author, or date",
		Long: `Query filters the stored event history. All filters combine with AND;
results stream in commit order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			application, err := newApp(setupOptions{
				configPath: configPath,
				dbPath:     dbPath,
				mode:       observability.ModeCLI,
				openStore:  true,
			})
			if err != nil {
				return err
			}
			defer application.close()

			return runQuery(cobraCmd, application, flags)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&dbPath, "db", "", "event store directory (overrides config)")
	cmd.Flags().StringSliceVarP(&flags.kinds, "kind", "k", nil, "event kind names (repeatable)")
	cmd.Flags().StringVar(&flags.nodeID, "node", "", "exact node identity path")
	cmd.Flags().StringVarP(&flags.location, "location", "l", "", "file path substring")
	cmd.Flags().StringVarP(&flags.author, "author", "a", "", "commit author substring")
	cmd.Flags().StringVar(&flags.since, "since", "", "earliest commit time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.until, "until", "", "latest commit time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().Float64Var(&flags.minConfidence, "min-confidence", 0, "drop advisory events below this confidence")
	cmd.Flags().StringVarP(&flags.format, "format", "f", formatTable, "output format: table, json, yaml")

	return cmd
}

func runQuery(cmd *cobra.Command, application *app, flags queryFlags) error {
	filter, err := buildFilter(flags)
	if err != nil {
		return err
	}

	results, err := application.store.Query(cmd.Context(), filter)
	if err != nil {
		return err
	}

	return writeResults(os.Stdout, results, flags.format)
}

func buildFilter(flags queryFlags) (storage.Filter, error) {
	since, err := parseQueryTime(flags.since)
	if err != nil {
		return storage.Filter{}, err
	}

	until, err := parseQueryTime(flags.until)
	if err != nil {
		return storage.Filter{}, err
	}

	return storage.Filter{
		Kinds:         flags.kinds,
		NodeID:        flags.nodeID,
		Location:      flags.location,
		Author:        flags.author,
		Since:         since,
		Until:         until,
		MinConfidence: flags.minConfidence,
	}, nil
}

func parseQueryTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed, nil
	}

	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: got %q", ErrInvalidQueryTime, raw)
	}

	return parsed, nil
}

func writeResults(out io.Writer, results []storage.Result, format string) error {
	switch format {
	case formatTable:
		writeTable(out, results)

		return nil
	case formatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}

		return nil
	case formatYAML:
		if err := yaml.NewEncoder(out).Encode(results); err != nil {
			return fmt.Errorf("encode results: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrUnknownFormat, format)
	}
}

func writeTable(out io.Writer, results []storage.Result) {
	writer := table.NewWriter()
	writer.SetOutputMirror(out)
	writer.AppendHeader(table.Row{"Commit", "Date", "Kind", "Node", "File", "Details"})

	for _, result := range results {
		hash := result.Commit.Hash
		if len(hash) > hashDisplayLen {
			hash = hash[:hashDisplayLen]
		}

		kind := result.Event.Kind.String()
		if result.Event.Advisory != "" {
			kind = kind + ":" + result.Event.Advisory
		}

		writer.AppendRow(table.Row{
			hash,
			result.Commit.Timestamp.Format("2006-01-02"),
			kind,
			result.Event.NodeID,
			result.Event.File,
			result.Event.Details,
		})
	}

	writer.AppendFooter(table.Row{"", "", "", "", "events", len(results)})
	writer.Render()
}
