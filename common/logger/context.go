package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to a context and emitted with every record logged
// through it, so handlers deep in the call tree don't have to repeat the
// meeting or bot they are working on.
type LogFields struct {
	MeetingID     *int64  // Meeting being processed
	BotID         *string // Provider bot ID
	EnvelopeID    *string // Provider webhook envelope id (svix-id)
	MessageID     *string // Redis stream message ID
	StageRunID    *int64  // Pipeline stage run
	EventType     *string // Provider or domain event type (e.g. "bot.done")
	CorrelationID *string // Domain event correlation id
	RequestID     *string // Inbound HTTP request id
	Component     string  // e.g. "meetrelay.dispatch.bot"
}

// WithLogFields merges fields into the ones already on ctx. Set values in
// fields win over existing ones.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	return context.WithValue(ctx, logFieldsKey, GetLogFields(ctx).merge(fields))
}

// GetLogFields returns the fields on ctx, or a zero LogFields.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func (f LogFields) merge(other LogFields) LogFields {
	if other.MeetingID != nil {
		f.MeetingID = other.MeetingID
	}
	if other.BotID != nil {
		f.BotID = other.BotID
	}
	if other.EnvelopeID != nil {
		f.EnvelopeID = other.EnvelopeID
	}
	if other.MessageID != nil {
		f.MessageID = other.MessageID
	}
	if other.StageRunID != nil {
		f.StageRunID = other.StageRunID
	}
	if other.EventType != nil {
		f.EventType = other.EventType
	}
	if other.CorrelationID != nil {
		f.CorrelationID = other.CorrelationID
	}
	if other.RequestID != nil {
		f.RequestID = other.RequestID
	}
	if other.Component != "" {
		f.Component = other.Component
	}
	return f
}

func (f LogFields) attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, 9)
	if f.MeetingID != nil {
		attrs = append(attrs, slog.Int64("meeting_id", *f.MeetingID))
	}
	if f.BotID != nil {
		attrs = append(attrs, slog.String("bot_id", *f.BotID))
	}
	if f.EnvelopeID != nil {
		attrs = append(attrs, slog.String("envelope_id", *f.EnvelopeID))
	}
	if f.MessageID != nil {
		attrs = append(attrs, slog.String("message_id", *f.MessageID))
	}
	if f.StageRunID != nil {
		attrs = append(attrs, slog.Int64("stage_run_id", *f.StageRunID))
	}
	if f.EventType != nil {
		attrs = append(attrs, slog.String("event_type", *f.EventType))
	}
	if f.CorrelationID != nil {
		attrs = append(attrs, slog.String("correlation_id", *f.CorrelationID))
	}
	if f.RequestID != nil {
		attrs = append(attrs, slog.String("request_id", *f.RequestID))
	}
	if f.Component != "" {
		attrs = append(attrs, slog.String("component", f.Component))
	}
	return attrs
}

// Ptr returns a pointer to v, for inline LogFields literals.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate cuts s to maxLen bytes and appends "..." when it was longer.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
