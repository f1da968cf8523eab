package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/queue"
	"basegraph.app/meetrelay/internal/signature"
)

var ErrInvalidSignature = errors.New("invalid signature")

// EnvelopeVerifier authenticates a delivery.
type EnvelopeVerifier interface {
	Verify(ctx context.Context, env signature.Envelope) bool
}

// NotificationRouter dispatches a parsed notification.
type NotificationRouter interface {
	Route(ctx context.Context, n domain.Notification) (bool, error)
}

type WebhookResult struct {
	EventType  domain.EventType
	Handled    bool
	Duplicated bool
	// Retrying is set when routing failed and the delivery was queued for
	// another attempt on the worker.
	Retrying bool
}

type WebhookService interface {
	// Ingest verifies, de-duplicates and routes one delivery. Only
	// ErrInvalidSignature and failures to queue a retry are returned.
	Ingest(ctx context.Context, env signature.Envelope) (*WebhookResult, error)
}

type webhookService struct {
	verifier    EnvelopeVerifier
	idempotency IdempotencyStore
	router      NotificationRouter
	queue       queue.Producer
	logger      *slog.Logger
}

func NewWebhookService(verifier EnvelopeVerifier, idempotency IdempotencyStore, router NotificationRouter, queue queue.Producer, logger *slog.Logger) WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &webhookService{
		verifier:    verifier,
		idempotency: idempotency,
		router:      router,
		queue:       queue,
		logger:      logger,
	}
}

func (s *webhookService) Ingest(ctx context.Context, env signature.Envelope) (*WebhookResult, error) {
	if !s.verifier.Verify(ctx, env) {
		return nil, ErrInvalidSignature
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{EnvelopeID: logger.Ptr(env.ID)})

	n, err := domain.ParseNotification(env.ID, env.Body, envelopeTime(env.Timestamp))
	if err != nil {
		// Redelivering a body we cannot read will not help.
		s.logger.WarnContext(ctx, "discarding unreadable webhook", "error", err)
		return &WebhookResult{}, nil
	}
	result := &WebhookResult{EventType: n.Type}

	key := idempotencyKey(env)
	claimed, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		// Fall through: the status and event stores dedupe on their own.
		s.logger.WarnContext(ctx, "idempotency check failed, processing anyway", "error", err)
		claimed = true
	}
	if !claimed {
		s.logger.InfoContext(ctx, "duplicate webhook delivery", "event_type", n.Type)
		result.Duplicated = true
		return result, nil
	}

	handled, routeErr := s.router.Route(ctx, n)
	result.Handled = handled
	if routeErr == nil {
		return result, nil
	}

	s.logger.ErrorContext(ctx, "webhook handler failed, queueing retry",
		"error", routeErr,
		"event_type", n.Type)
	if err := s.queue.Enqueue(ctx, queue.Task{
		TaskType:   queue.TaskTypeWebhookRetry,
		EnvelopeID: env.ID,
		Payload:    string(env.Body),
		SentAt:     env.Timestamp,
		TraceID:    traceID(ctx),
		Attempt:    1,
	}); err != nil {
		if relErr := s.idempotency.Release(ctx, key); relErr != nil {
			s.logger.WarnContext(ctx, "failed to release idempotency key", "error", relErr)
		}
		return nil, fmt.Errorf("queueing webhook retry: %w", errors.Join(routeErr, err))
	}
	result.Retrying = true
	return result, nil
}

func idempotencyKey(env signature.Envelope) string {
	if env.ID != "" {
		return env.ID
	}
	hash := sha256.Sum256(env.Body)
	return hex.EncodeToString(hash[:])
}

// envelopeTime parses the signed unix timestamp. The verifier has already
// rejected anything unparseable; zero falls back to now.
func envelopeTime(ts string) time.Time {
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || sec == 0 {
		return time.Now().UTC()
	}
	return time.Unix(sec, 0).UTC()
}

func traceID(ctx context.Context) *string {
	if id := logger.TraceID(ctx); id != "" {
		return &id
	}
	return nil
}
