package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	if err := task.validate(); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.TaskType, err)
	}

	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := taskValues(task, attempt)
	if task.TraceID != nil && *task.TraceID != "" {
		fields["trace_id"] = *task.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.TaskType, err)
	}

	attrs := []any{"task_type", task.TaskType, "attempt", attempt}
	if task.MeetingID != nil {
		attrs = append(attrs, "meeting_id", *task.MeetingID)
	}
	if task.EnvelopeID != "" {
		attrs = append(attrs, "envelope_id", task.EnvelopeID)
	}
	p.logger.InfoContext(ctx, "enqueued task", attrs...)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func taskValues(task Task, attempt int) map[string]any {
	values := map[string]any{
		"task_type": string(task.TaskType),
		"attempt":   attempt,
	}
	if task.MeetingID != nil {
		values["meeting_id"] = *task.MeetingID
	}
	if task.RecordingID != "" {
		values["recording_id"] = task.RecordingID
	}
	if task.CausationID != "" {
		values["causation_id"] = task.CausationID
	}
	if task.EnvelopeID != "" {
		values["envelope_id"] = task.EnvelopeID
	}
	if task.Payload != "" {
		values["payload"] = task.Payload
	}
	if task.SentAt != "" {
		values["sent_at"] = task.SentAt
	}
	return values
}
