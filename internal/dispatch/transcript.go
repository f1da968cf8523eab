package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/store"
)

type TranscriptHandler struct {
	meetings store.MeetingStore
	pipeline Pipeline
}

func NewTranscriptHandler(meetings store.MeetingStore, pipeline Pipeline) *TranscriptHandler {
	return &TranscriptHandler{meetings: meetings, pipeline: pipeline}
}

func (h *TranscriptHandler) Handle(ctx context.Context, n domain.Notification) error {
	if n.Type == domain.EventTranscriptPartialData {
		slog.DebugContext(ctx, "partial transcript received", "transcript_id", n.TranscriptID)
		return nil
	}

	meeting, err := h.meetings.GetByBotID(ctx, n.BotID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "no meeting for transcript event", "transcript_id", n.TranscriptID)
			return nil
		}
		return fmt.Errorf("loading meeting for bot %s: %w", n.BotID, err)
	}

	causation := model.TranscriptCausationID(firstNonEmpty(n.TranscriptID, n.RecordingID, n.BotID))

	switch n.Type {
	case domain.EventTranscriptData:
		if meeting.TranscriptStatus != model.TranscriptPending {
			return nil
		}
		if err := h.meetings.SetTranscriptStatus(ctx, meeting.ID, model.TranscriptProcessing); err != nil {
			return fmt.Errorf("setting transcript status: %w", err)
		}
		slog.InfoContext(ctx, "transcript streaming started", "meeting_id", meeting.ID)
		return nil

	case domain.EventTranscriptDone, domain.EventLegacyTranscriptionReady:
		err := h.pipeline.BeginExtraction(ctx, meeting.ID, causation)
		if errors.Is(err, pipeline.ErrInvalidTransition) {
			slog.InfoContext(ctx, "meeting already finished, ignoring transcript", "stage", meeting.Stage)
			return nil
		}
		return err

	case domain.EventTranscriptFailed:
		reason := "provider reported transcript failure"
		if n.Status.SubCode != nil {
			reason += ": " + *n.Status.SubCode
		} else if n.Status.Message != nil {
			reason += ": " + *n.Status.Message
		}
		err := h.pipeline.FailTranscription(ctx, meeting.ID, reason, causation)
		if errors.Is(err, pipeline.ErrInvalidTransition) {
			slog.InfoContext(ctx, "meeting already finished, ignoring transcript failure", "stage", meeting.Stage)
			return nil
		}
		return err
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
