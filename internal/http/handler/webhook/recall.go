package webhook

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"basegraph.app/meetrelay/internal/service"
	"basegraph.app/meetrelay/internal/signature"
)

// maxBodyBytes bounds a single notification; provider payloads are a few KB.
const maxBodyBytes = 1 << 20

type RecallWebhookHandler struct {
	webhooks service.WebhookService
}

func NewRecallWebhookHandler(webhooks service.WebhookService) *RecallWebhookHandler {
	return &RecallWebhookHandler{webhooks: webhooks}
}

func (h *RecallWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.WarnContext(ctx, "webhook body too large", "limit_bytes", tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		slog.WarnContext(ctx, "failed to read webhook body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	env := signature.FromHeaders(c.Request.Header, body)
	result, err := h.webhooks.Ingest(ctx, env)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		slog.ErrorContext(ctx, "webhook processing failed", "error", err, "envelope_id", env.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	slog.DebugContext(ctx, "webhook accepted",
		"envelope_id", env.ID,
		"event_type", result.EventType,
		"handled", result.Handled,
		"duplicate", result.Duplicated,
		"retrying", result.Retrying,
	)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
