package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"basegraph.app/meetrelay/core/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// Setup installs the process-wide slog default. Production with OTel exports
// through the otelslog bridge; otherwise records go to stdout, JSON in
// production and text in development.
func Setup(cfg config.Config) {
	slog.SetDefault(slog.New(newHandler(cfg, os.Stdout)))
}

func newHandler(cfg config.Config, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level(cfg),
		ReplaceAttr: redact,
	}

	switch {
	case cfg.IsProduction() && cfg.OTel.Enabled():
		return otelslog.NewHandler(
			cfg.OTel.ServiceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		)
	case cfg.IsProduction():
		return NewTraceHandler(slog.NewJSONHandler(w, opts))
	default:
		return NewTraceHandler(slog.NewTextHandler(w, opts))
	}
}

// level honours LOG_LEVEL, then falls back to debug in development and info
// elsewhere.
func level(cfg config.Config) slog.Level {
	var lvl slog.Level
	if cfg.LogLevel != "" && lvl.UnmarshalText([]byte(cfg.LogLevel)) == nil {
		return lvl
	}
	if cfg.IsDevelopment() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Webhook headers and provider credentials must never reach the log sink.
var sensitiveKeys = map[string]bool{
	"authorization":     true,
	"api_key":           true,
	"token":             true,
	"signature":         true,
	"svix-signature":    true,
	"webhook-signature": true,
	"secret":            true,
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

// TraceHandler decorates records with the active span and any LogFields on
// the context.
type TraceHandler struct {
	slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	r.AddAttrs(GetLogFields(ctx).attrs()...)
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}
