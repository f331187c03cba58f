package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/codedrift/internal/observability"
	"github.com/Sumatoshi-tech/codedrift/pkg/engine"
	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "codedrift", cfg.ServiceName)
	assert.Equal(t, observability.ModeCLI, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5, cfg.ShutdownTimeoutSec)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)
	require.NotNil(t, providers.Logger)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func TestTracingHandlerAddsServiceAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	handler := observability.NewTracingHandler(inner, "codedrift", "test", observability.ModeCLI)
	logger := slog.New(handler)

	logger.Info("hello")

	record := decodeLogLine(t, &buf)
	assert.Equal(t, "codedrift", record["service"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

func TestTracingHandlerInjectsTraceContext(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	handler := observability.NewTracingHandler(inner, "codedrift", "", observability.ModeMCP)
	logger := slog.New(handler)

	ctx, span := tp.Tracer("codedrift").Start(context.Background(), "analyze")
	logger.InfoContext(ctx, "inside span")
	span.End()

	record := decodeLogLine(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["span_id"])
}

func TestTracingHandlerAddsCommitHash(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	inner := slog.NewJSONHandler(&buf, nil)
	handler := observability.NewTracingHandler(inner, "codedrift", "", observability.ModeCLI)
	logger := slog.New(handler)

	ctx := observability.WithCommit(context.Background(), "cafe1234")
	logger.InfoContext(ctx, "commit analyzed")

	record := decodeLogLine(t, &buf)
	assert.Equal(t, "cafe1234", record["commit"])

	buf.Reset()
	logger.Info("outside any commit")

	record = decodeLogLine(t, &buf)
	assert.NotContains(t, record, "commit")
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, scope := range rm.ScopeMetrics {
		for i := range scope.Metrics {
			if scope.Metrics[i].Name == name {
				return &scope.Metrics[i]
			}
		}
	}

	return nil
}

func TestAnalysisMetricsRecordsCounters(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("codedrift")

	metrics, err := observability.NewAnalysisMetrics(meter)
	require.NoError(t, err)

	var _ engine.Observer = metrics

	metrics.FileAnalyzed()
	metrics.FileAnalyzed()
	metrics.ParseFailure()
	metrics.ClassifierFault(event.LayerBehavioral)
	metrics.EventsEmitted(event.LayerSemantic, 3)
	metrics.AIRetry()
	metrics.AIFailure()
	metrics.CommitAnalyzed(250 * time.Millisecond)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.NotNil(t, findMetric(rm, "codedrift.analysis.files.total"))
	assert.NotNil(t, findMetric(rm, "codedrift.analysis.parse.failures.total"))
	assert.NotNil(t, findMetric(rm, "codedrift.analysis.classifier.faults.total"))
	assert.NotNil(t, findMetric(rm, "codedrift.analysis.events.total"))
	assert.NotNil(t, findMetric(rm, "codedrift.analysis.ai.retries.total"))
	assert.NotNil(t, findMetric(rm, "codedrift.analysis.ai.failures.total"))
	assert.NotNil(t, findMetric(rm, "codedrift.analysis.commits.total"))
	assert.NotNil(t, findMetric(rm, "codedrift.analysis.commit.duration.seconds"))
}

func TestPrometheusHandlerServesMetrics(t *testing.T) {
	t.Parallel()

	provider, handler, err := observability.PrometheusHandler()
	require.NoError(t, err)
	require.NotNil(t, provider)
	require.NotNil(t, handler)
}

func startDiagnostics(t *testing.T, checks ...observability.ReadyCheck) *observability.DiagnosticsServer {
	t.Helper()

	diag, err := observability.NewDiagnosticsServer("127.0.0.1:0", slog.Default(), checks...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, diag.Close()) })

	return diag
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec,noctx // loopback address from the test fixture.
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestDiagnosticsServerEndpoints(t *testing.T) {
	t.Parallel()

	diag := startDiagnostics(t)
	base := "http://" + diag.Addr()

	status, body := getBody(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	status, _ = getBody(t, base+"/readyz")
	assert.Equal(t, http.StatusOK, status)
}

func TestDiagnosticsServerReadinessFailure(t *testing.T) {
	t.Parallel()

	failing := func(context.Context) error { return assert.AnError }
	diag := startDiagnostics(t, failing)

	status, body := getBody(t, "http://"+diag.Addr()+"/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"status":"unavailable"`)

	status, _ = getBody(t, "http://"+diag.Addr()+"/healthz")
	assert.Equal(t, http.StatusOK, status)
}

func TestDiagnosticsServerExportsMeterInstruments(t *testing.T) {
	t.Parallel()

	diag := startDiagnostics(t)

	metrics, err := observability.NewAnalysisMetrics(diag.Meter())
	require.NoError(t, err)

	metrics.FileAnalyzed()
	metrics.EventsEmitted(event.LayerStructural, 2)

	status, body := getBody(t, "http://"+diag.Addr()+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "codedrift_analysis_files_total")
	assert.Contains(t, body, "codedrift_analysis_events_total")
}
