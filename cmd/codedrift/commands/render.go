package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/codedrift/internal/observability"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

const (
	renderDirPerm   = 0o750
	renderFileName  = "timeline.html"
	renderPageTitle = "Codedrift - change event timeline"
)

// timelineLayers is the render order of the stacked series.
var timelineLayers = []event.Layer{
	event.LayerStructural,
	event.LayerSyntactic,
	event.LayerSemantic,
	event.LayerBehavioral,
	event.LayerAdvisory,
}

// NewRenderCommand creates the render subcommand.
func NewRenderCommand() *cobra.Command {
	var (
		configPath string
		dbPath     string
		outputDir  string
	)

	cmd := &cobra.Command{
		Use:           "render",
		Short:         "Render stored events as an HTML timeline",
		Long:          `Render draws a per-commit stacked bar chart of event counts by layer.`,
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

			return runRender(cobraCmd, application, outputDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVar(&dbPath, "db", "", "event store directory (overrides config)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory for the HTML file")

	return cmd
}

// timelinePoint is one commit's event counts.
type timelinePoint struct {
	label  string
	counts map[event.Layer]int
}

func runRender(cmd *cobra.Command, application *app, outputDir string) error {
	var points []timelinePoint

	err := application.store.Scan(cmd.Context(), func(batch *event.Batch) error {
		hash := batch.Commit.Hash
		if len(hash) > hashDisplayLen {
			hash = hash[:hashDisplayLen]
		}

		points = append(points, timelinePoint{
			label:  hash,
			counts: batch.CountByLayer(),
		})

		return nil
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, renderDirPerm); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	outPath := filepath.Join(outputDir, renderFileName)

	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer file.Close()

	page := components.NewPage()
	page.PageTitle = renderPageTitle
	page.AddCharts(buildTimelineChart(points))

	if err := page.Render(file); err != nil {
		return fmt.Errorf("render timeline: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s (%d commits)\n", outPath, len(points))

	return nil
}

func buildTimelineChart(points []timelinePoint) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Change events per commit",
			Subtitle: "stacked by classification layer, oldest commit first",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	labels := make([]string, len(points))
	for i, point := range points {
		labels[i] = point.label
	}

	bar.SetXAxis(labels)

	for _, layer := range timelineLayers {
		series := make([]opts.BarData, len(points))
		for i, point := range points {
			series[i] = opts.BarData{Value: point.counts[layer]}
		}

		bar.AddSeries(layer.String(), series,
			charts.WithBarChartOpts(opts.BarChart{Stack: "layers"}),
		)
	}

	return bar
}
