package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// diagnosticsReadTimeout bounds header reads on the diagnostics listener.
const diagnosticsReadTimeout = 10 * time.Second

// ReadyCheck probes one subsystem; nil means it can serve.
type ReadyCheck func(ctx context.Context) error

// DiagnosticsServer serves liveness, readiness, and Prometheus scrape
// endpoints while an analysis surface is running. It owns a Prometheus-backed
// meter provider: instruments created through Meter appear on /metrics.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
	provider *sdkmetric.MeterProvider
	log      *slog.Logger
}

// NewDiagnosticsServer listens on addr and serves /healthz, /readyz, and
// /metrics. Readiness runs the given checks per request; a failing check
// answers 503 so a scraper or orchestrator stops routing to this process.
func NewDiagnosticsServer(addr string, log *slog.Logger, checks ...ReadyCheck) (*DiagnosticsServer, error) {
	if log == nil {
		log = slog.Default()
	}

	provider, metricsHandler, err := PrometheusHandler()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", statusHandler(nil))
	mux.Handle("/readyz", statusHandler(checks))
	mux.Handle("/metrics", metricsHandler)

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		flushErr := provider.Shutdown(context.Background())

		return nil, errors.Join(fmt.Errorf("listen on %s: %w", addr, err), flushErr)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: diagnosticsReadTimeout}

	diag := &DiagnosticsServer{
		server:   srv,
		listener: listener,
		provider: provider,
		log:      log,
	}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Warn("diagnostics server stopped", slog.Any("error", serveErr))
		}
	}()

	log.Info("diagnostics listening", slog.String("addr", diag.Addr()))

	return diag, nil
}

// Meter returns the meter whose instruments are exported on /metrics.
func (d *DiagnosticsServer) Meter() metric.Meter {
	return d.provider.Meter(meterName)
}

// Addr returns the bound listen address, useful when addr was ":0".
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close shuts the HTTP server down and flushes the meter provider.
func (d *DiagnosticsServer) Close() error {
	serveErr := d.server.Shutdown(context.Background())
	flushErr := d.provider.Shutdown(context.Background())

	if serveErr != nil || flushErr != nil {
		return fmt.Errorf("close diagnostics server: %w", errors.Join(serveErr, flushErr))
	}

	return nil
}

// statusHandler answers a health probe. With no checks it is a pure liveness
// signal; with checks it degrades to 503 on the first failure.
func statusHandler(checks []ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json")

		for _, check := range checks {
			if err := check(req.Context()); err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				writeStatus(rw, "unavailable")

				return
			}
		}

		rw.WriteHeader(http.StatusOK)
		writeStatus(rw, "ok")
	})
}

func writeStatus(rw http.ResponseWriter, status string) {
	payload, err := json.Marshal(map[string]string{"status": status, "service": defaultServiceName})
	if err != nil {
		return
	}

	if _, err := rw.Write(payload); err != nil {
		return
	}
}
