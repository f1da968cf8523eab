package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/store"
)

// MediaHandler counts separate audio and video chunks per bot. The chunks
// themselves are not stored.
type MediaHandler struct {
	bots store.BotStore
}

func NewMediaHandler(bots store.BotStore) *MediaHandler {
	return &MediaHandler{bots: bots}
}

func (h *MediaHandler) Handle(ctx context.Context, n domain.Notification) error {
	kind := n.Type.MediaKind()
	if err := h.bots.RecordMediaChunk(ctx, n.BotID, kind); err != nil {
		return fmt.Errorf("recording %s chunk for bot %s: %w", kind, n.BotID, err)
	}
	slog.DebugContext(ctx, "media chunk recorded", "kind", kind)
	return nil
}
