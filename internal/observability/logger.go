package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Correlation attribute keys on log records.
const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrCommit  = "commit"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

type commitCtxKey struct{}

// WithCommit marks ctx as belonging to one commit's analysis. Records logged
// under the returned context carry the hash, so engine and store log lines
// can be traced back to the commit that produced them.
func WithCommit(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, commitCtxKey{}, hash)
}

func commitFromContext(ctx context.Context) string {
	hash, _ := ctx.Value(commitCtxKey{}).(string)

	return hash
}

// TracingHandler decorates an [slog.Handler] with correlation attributes:
// the active span's trace and span ids, the commit hash under analysis, and
// the fixed service identity. Identity attributes are attached to the inner
// handler at construction so later WithGroup calls leave them at the record
// top level.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with the service identity (service, mode,
// and env when non-empty) plus per-record correlation.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	identity := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		identity = append(identity, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(identity)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle stamps the record with span and commit correlation, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if hash := commitFromContext(ctx); hash != "" {
		record.AddAttrs(slog.String(attrCommit, hash))
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs wraps the inner handler's derived handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup wraps the inner handler's derived handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
