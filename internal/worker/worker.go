package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/internal/queue"
)

type Config struct {
	MaxAttempts int
	ErrorPause  time.Duration
}

type Worker struct {
	consumer Consumer
	handler  TaskHandler
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, handler TaskHandler, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = time.Second
	}
	return &Worker{
		consumer:  consumer,
		handler:   handler,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "meetrelay.worker"})
	slog.InfoContext(ctx, "worker started", "max_attempts", w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-w.stopCh:
				case <-time.After(w.cfg.ErrorPause):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.ProcessMessage(ctx, msg)
	}
	return nil
}

// ProcessMessage runs msg through the handler and settles it: ack on
// success, requeue on a retryable failure, DLQ once attempts run out.
// Exported so the reclaimer can reuse it.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) {
	span := startTaskSpan(messageContext(ctx, msg), msg)
	defer span.End()
	ctx = span.Context()

	slog.InfoContext(ctx, "processing task",
		"task_type", msg.TaskType,
		"attempt", msg.Attempt)

	start := time.Now()
	err := w.handleSafe(ctx, msg)
	if err == nil {
		if ackErr := w.consumer.Ack(ctx, msg); ackErr != nil {
			// Left pending; the reclaimer will pick it up again.
			slog.WarnContext(ctx, "failed to ACK message", "error", ackErr)
		}
		slog.InfoContext(ctx, "task processed",
			"task_type", msg.TaskType,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}

	span.RecordError(err)
	slog.ErrorContext(ctx, "task failed",
		"error", err,
		"task_type", msg.TaskType,
		"attempt", msg.Attempt)
	w.handleFailedMessage(ctx, msg, err)
}

func (w *Worker) handleSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in task processing", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.handler.Handle(ctx, msg)
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if !IsPermanent(err) && msg.Attempt < w.cfg.MaxAttempts {
		slog.WarnContext(ctx, "requeuing failed task", "attempt", msg.Attempt)
		if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
			slog.ErrorContext(ctx, "failed to requeue task", "error", requeueErr)
		}
		return
	}

	slog.ErrorContext(ctx, "task exhausted, sending to DLQ",
		"attempts", msg.Attempt,
		"permanent", IsPermanent(err))
	w.exhaustedSafe(ctx, msg, err)
	if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
		slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
	}
}

func (w *Worker) exhaustedSafe(ctx context.Context, msg queue.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in exhaustion handler", "panic", r)
		}
	}()
	w.handler.Exhausted(ctx, msg, err)
}

func messageContext(ctx context.Context, msg queue.Message) context.Context {
	fields := logger.LogFields{MessageID: logger.Ptr(msg.ID)}
	if msg.MeetingID != nil {
		fields.MeetingID = msg.MeetingID
	}
	if msg.EnvelopeID != "" {
		fields.EnvelopeID = logger.Ptr(msg.EnvelopeID)
	}
	return logger.WithLogFields(ctx, fields)
}

// startTaskSpan continues the producer's trace when the task carries one.
func startTaskSpan(ctx context.Context, msg queue.Message) *logger.SpanContext {
	name := "worker." + string(msg.TaskType)
	if msg.TraceID != "" {
		return logger.StartSpanFromTraceID(ctx, msg.TraceID, name)
	}
	return logger.StartSpan(ctx, name)
}
