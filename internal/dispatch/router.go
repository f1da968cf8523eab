// Package dispatch routes verified provider notifications to the handler
// for their event family.
package dispatch

import (
	"context"
	"log/slog"

	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/internal/domain"
)

// Handler processes one family of notifications.
type Handler interface {
	Handle(ctx context.Context, n domain.Notification) error
}

type Router struct {
	bot        Handler
	transcript Handler
	media      Handler
}

func NewRouter(bot, transcript, media Handler) *Router {
	return &Router{
		bot:        bot,
		transcript: transcript,
		media:      media,
	}
}

// Route hands n to its family handler. Unknown event types are logged and
// reported as unhandled without an error.
func (r *Router) Route(ctx context.Context, n domain.Notification) (bool, error) {
	fields := logger.LogFields{
		EventType: logger.Ptr(string(n.Type)),
		Component: "meetrelay.dispatch",
	}
	if n.EnvelopeID != "" {
		fields.EnvelopeID = logger.Ptr(n.EnvelopeID)
	}
	if n.BotID != "" {
		fields.BotID = logger.Ptr(n.BotID)
	}
	ctx = logger.WithLogFields(ctx, fields)

	var h Handler
	switch n.Type.Family() {
	case domain.FamilyBot:
		h = r.bot
	case domain.FamilyTranscript:
		h = r.transcript
	case domain.FamilyMedia:
		h = r.media
	default:
		slog.InfoContext(ctx, "ignoring unknown webhook event type")
		return false, nil
	}

	sc := logger.StartFieldSpan(ctx, "dispatch."+string(n.Type.Family()))
	defer sc.End()

	if err := h.Handle(sc.Context(), n); err != nil {
		sc.RecordError(err)
		return true, err
	}
	return true, nil
}
