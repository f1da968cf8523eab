package service

import (
	"context"
	"fmt"
	"log/slog"

	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/queue"
	"basegraph.app/meetrelay/internal/worker"
)

// WebhookRetryHandler re-routes deliveries whose first handling failed. It
// runs on the worker as the webhook_retry task handler.
type WebhookRetryHandler struct {
	router NotificationRouter
}

func NewWebhookRetryHandler(router NotificationRouter) *WebhookRetryHandler {
	return &WebhookRetryHandler{router: router}
}

func (h *WebhookRetryHandler) Handle(ctx context.Context, msg queue.Message) error {
	n, err := domain.ParseNotification(msg.EnvelopeID, []byte(msg.Payload), envelopeTime(msg.SentAt))
	if err != nil {
		return worker.Permanent(fmt.Errorf("parsing queued webhook: %w", err))
	}
	if _, err := h.router.Route(ctx, n); err != nil {
		return fmt.Errorf("routing %s: %w", n.Type, err)
	}
	slog.InfoContext(ctx, "webhook retry succeeded", "event_type", n.Type)
	return nil
}

// Exhausted leaves the payload on the DLQ stream for manual replay.
func (h *WebhookRetryHandler) Exhausted(ctx context.Context, msg queue.Message, cause error) {
	slog.ErrorContext(ctx, "webhook delivery abandoned after retries",
		"envelope_id", msg.EnvelopeID,
		"attempts", msg.Attempt,
		"error", cause)
}
