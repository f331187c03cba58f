// Package commands implements CLI command handlers for codedrift.
package commands

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/codedrift/internal/config"
	"github.com/Sumatoshi-tech/codedrift/internal/observability"
	"github.com/Sumatoshi-tech/codedrift/internal/storage"
	"github.com/Sumatoshi-tech/codedrift/pkg/ai"
	"github.com/Sumatoshi-tech/codedrift/pkg/engine"
	"github.com/Sumatoshi-tech/codedrift/pkg/version"
)

// app bundles the wired collaborators behind every command.
type app struct {
	cfg       *config.Config
	providers observability.Providers
	store     *storage.Store
	diag      *observability.DiagnosticsServer
	log       *slog.Logger
}

// setupOptions tweak the shared wiring per command.
type setupOptions struct {
	configPath  string
	dbPath      string
	metricsAddr string
	mode        observability.AppMode
	openStore   bool
}

// newApp loads configuration, initializes telemetry, and opens the event
// store. Callers must invoke close when done.
func newApp(opts setupOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.dbPath != "" {
		cfg.Storage.Path = opts.dbPath
	}

	providers, err := observability.Init(cfg.ObservabilityConfig(opts.mode, version.Version))
	if err != nil {
		return nil, err
	}

	application := &app{
		cfg:       cfg,
		providers: providers,
		log:       providers.Logger,
	}

	if opts.openStore {
		store, err := storage.Open(cfg.StoreConfig(providers.Logger))
		if err != nil {
			application.close()

			return nil, err
		}

		application.store = store
	}

	if opts.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = opts.metricsAddr
	}

	if cfg.Telemetry.MetricsAddr != "" {
		diag, err := observability.NewDiagnosticsServer(
			cfg.Telemetry.MetricsAddr, providers.Logger, application.readyChecks()...)
		if err != nil {
			application.close()

			return nil, err
		}

		application.diag = diag
	}

	return application, nil
}

// readyChecks builds the readiness probes for the diagnostics server.
func (a *app) readyChecks() []observability.ReadyCheck {
	if a.store == nil {
		return nil
	}

	return []observability.ReadyCheck{func(ctx context.Context) error {
		_, err := a.store.Has(ctx, "readyz")

		return err
	}}
}

// meter returns the meter analysis instruments should record through. With a
// diagnostics server running it is Prometheus-backed so the counters show up
// on /metrics; otherwise it is the OTLP (or noop) meter from Init.
func (a *app) meter() metric.Meter {
	if a.diag != nil {
		return a.diag.Meter()
	}

	return a.providers.Meter
}

func (a *app) close() {
	if a.diag != nil {
		if err := a.diag.Close(); err != nil {
			a.log.Warn("diagnostics close failed", slog.Any("error", err))
		}
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", slog.Any("error", err))
		}
	}

	if err := a.providers.Shutdown(context.Background()); err != nil {
		a.log.Warn("observability shutdown failed", slog.Any("error", err))
	}
}

// buildEngine constructs the analysis engine with metrics and, when enabled,
// the advisory classifier.
func (a *app) buildEngine() (*engine.Engine, error) {
	opts := []engine.Option{}

	metrics, err := observability.NewAnalysisMetrics(a.meter())
	if err != nil {
		return nil, err
	}

	opts = append(opts, engine.WithObserver(metrics))

	aiCfg := a.cfg.Engine.AI
	if aiCfg.Enabled && aiCfg.APIKey != "" {
		advisor := ai.NewOpenAI(aiCfg.APIKey, aiCfg.Model, a.log)
		opts = append(opts, engine.WithAdvisor(advisor))
	}

	return engine.New(a.cfg.Engine, a.log, opts...), nil
}
