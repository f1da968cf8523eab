package logger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "meetrelay"

// SpanContext pairs a started span with the context that carries it.
type SpanContext struct {
	ctx  context.Context
	span trace.Span
}

// StartSpan starts a child span of whatever trace ctx carries.
//
//	sc := logger.StartSpan(ctx, "dispatch.route")
//	defer sc.End()
//	ctx = sc.Context()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) *SpanContext {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, opts...)
	return &SpanContext{ctx: ctx, span: span}
}

// StartFieldSpan starts a span tagged with the identifiers in the context's
// LogFields, so traces and logs for a bot or meeting can be joined.
func StartFieldSpan(ctx context.Context, name string) *SpanContext {
	attrs := GetLogFields(ctx).spanAttrs()
	return StartSpan(ctx, name, trace.WithAttributes(attrs...))
}

// StartSpanFromTraceID continues a trace that crossed a process boundary as a
// bare hex trace id (queue messages carry one). An empty or malformed id
// starts a fresh root span.
func StartSpanFromTraceID(ctx context.Context, traceIDHex string, name string, opts ...trace.SpanStartOption) *SpanContext {
	if traceID, err := trace.TraceIDFromHex(traceIDHex); err == nil {
		remote := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			TraceFlags: trace.FlagsSampled,
			Remote:     true,
		})
		opts = append(opts, trace.WithLinks(trace.Link{SpanContext: remote}))
		ctx = trace.ContextWithRemoteSpanContext(ctx, remote)
	}
	return StartSpan(ctx, name, opts...)
}

// TraceID returns the hex trace id on ctx, or "" when there is none.
func TraceID(ctx context.Context) string {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

func (sc *SpanContext) Context() context.Context {
	return sc.ctx
}

// End is safe to call more than once.
func (sc *SpanContext) End() {
	if sc.span != nil {
		sc.span.End()
	}
}

// RecordError marks the span failed. nil is ignored.
func (sc *SpanContext) RecordError(err error) {
	if sc.span == nil || err == nil {
		return
	}
	sc.span.RecordError(err)
	sc.span.SetStatus(codes.Error, err.Error())
}

func (sc *SpanContext) Span() trace.Span {
	return sc.span
}

func (f LogFields) spanAttrs() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 5)
	if f.MeetingID != nil {
		attrs = append(attrs, attribute.Int64("meetrelay.meeting_id", *f.MeetingID))
	}
	if f.BotID != nil {
		attrs = append(attrs, attribute.String("meetrelay.bot_id", *f.BotID))
	}
	if f.EnvelopeID != nil {
		attrs = append(attrs, attribute.String("meetrelay.envelope_id", *f.EnvelopeID))
	}
	if f.EventType != nil {
		attrs = append(attrs, attribute.String("meetrelay.event_type", *f.EventType))
	}
	if f.RequestID != nil {
		attrs = append(attrs, attribute.String("meetrelay.request_id", *f.RequestID))
	}
	return attrs
}
