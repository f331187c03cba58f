package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

const (
	metricCommitsTotal       = "codedrift.analysis.commits.total"
	metricCommitDuration     = "codedrift.analysis.commit.duration.seconds"
	metricFilesTotal         = "codedrift.analysis.files.total"
	metricParseFailuresTotal = "codedrift.analysis.parse.failures.total"
	metricFaultsTotal        = "codedrift.analysis.classifier.faults.total"
	metricEventsTotal        = "codedrift.analysis.events.total"
	metricAIRetriesTotal     = "codedrift.analysis.ai.retries.total"
	metricAIFailuresTotal    = "codedrift.analysis.ai.failures.total"

	attrLayer = "layer"
)

// durationBucketBoundaries covers 10ms to 600s, from near-empty commits to
// large refactoring commits with many files.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// AnalysisMetrics holds OTel instruments for analysis counters. It satisfies
// the engine's observer contract.
type AnalysisMetrics struct {
	commitsTotal   metric.Int64Counter
	commitDuration metric.Float64Histogram
	filesTotal     metric.Int64Counter
	parseFailures  metric.Int64Counter
	faultsTotal    metric.Int64Counter
	eventsTotal    metric.Int64Counter
	aiRetries      metric.Int64Counter
	aiFailures     metric.Int64Counter
}

// NewAnalysisMetrics creates analysis metric instruments from the given
// meter.
func NewAnalysisMetrics(mt metric.Meter) (*AnalysisMetrics, error) {
	commits, err := mt.Int64Counter(metricCommitsTotal,
		metric.WithDescription("Total commits analyzed"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsTotal, err)
	}

	commitDur, err := mt.Float64Histogram(metricCommitDuration,
		metric.WithDescription("Per-commit analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitDuration, err)
	}

	files, err := mt.Int64Counter(metricFilesTotal,
		metric.WithDescription("Total changed files analyzed"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesTotal, err)
	}

	parseFailures, err := mt.Int64Counter(metricParseFailuresTotal,
		metric.WithDescription("Files whose before or after revision failed to parse"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricParseFailuresTotal, err)
	}

	faults, err := mt.Int64Counter(metricFaultsTotal,
		metric.WithDescription("Classifier panics recovered by layer"),
		metric.WithUnit("{fault}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFaultsTotal, err)
	}

	events, err := mt.Int64Counter(metricEventsTotal,
		metric.WithDescription("Events emitted by classification layer"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEventsTotal, err)
	}

	aiRetries, err := mt.Int64Counter(metricAIRetriesTotal,
		metric.WithDescription("Advisory classifier retry attempts"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricAIRetriesTotal, err)
	}

	aiFailures, err := mt.Int64Counter(metricAIFailuresTotal,
		metric.WithDescription("Advisory classifier calls abandoned after retries"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricAIFailuresTotal, err)
	}

	return &AnalysisMetrics{
		commitsTotal:   commits,
		commitDuration: commitDur,
		filesTotal:     files,
		parseFailures:  parseFailures,
		faultsTotal:    faults,
		eventsTotal:    events,
		aiRetries:      aiRetries,
		aiFailures:     aiFailures,
	}, nil
}

// FileAnalyzed counts one analyzed file.
func (am *AnalysisMetrics) FileAnalyzed() {
	am.filesTotal.Add(context.Background(), 1)
}

// ParseFailure counts one file that could not be parsed.
func (am *AnalysisMetrics) ParseFailure() {
	am.parseFailures.Add(context.Background(), 1)
}

// ClassifierFault counts one recovered classifier panic.
func (am *AnalysisMetrics) ClassifierFault(layer event.Layer) {
	am.faultsTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(attrLayer, layer.String()),
	))
}

// EventsEmitted counts finalized events for one layer.
func (am *AnalysisMetrics) EventsEmitted(layer event.Layer, count int) {
	am.eventsTotal.Add(context.Background(), int64(count), metric.WithAttributes(
		attribute.String(attrLayer, layer.String()),
	))
}

// AIRetry counts one advisory retry attempt.
func (am *AnalysisMetrics) AIRetry() {
	am.aiRetries.Add(context.Background(), 1)
}

// AIFailure counts one advisory call abandoned after exhausting retries.
func (am *AnalysisMetrics) AIFailure() {
	am.aiFailures.Add(context.Background(), 1)
}

// CommitAnalyzed counts one completed commit and records its duration.
func (am *AnalysisMetrics) CommitAnalyzed(duration time.Duration) {
	ctx := context.Background()

	am.commitsTotal.Add(ctx, 1)
	am.commitDuration.Record(ctx, duration.Seconds())
}
