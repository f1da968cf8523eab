package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"basegraph.app/meetrelay/internal/diagnosis"
	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/notify"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/store"
)

const (
	msgWaitingRoom      = "Your meeting bot is waiting to be admitted to the meeting. Please ask the host to admit the bot."
	msgPermissionDenied = "Recording permission was denied for your meeting bot. Please check meeting settings."
	msgFatal            = "Your meeting bot encountered a fatal error and could not join the meeting."

	fatalStageError = "bot fatal: "
)

// Pipeline is the part of the coordinator webhook handlers drive.
type Pipeline interface {
	MarkRecording(ctx context.Context, meetingID int64, causationID string) error
	BeginTranscription(ctx context.Context, meetingID int64, recordingID, causationID string) error
	BeginExtraction(ctx context.Context, meetingID int64, causationID string) error
	FailTranscription(ctx context.Context, meetingID int64, reason, causationID string) error
}

// BotHandler records bot status changes. A redelivered status runs the same
// steps again: events are published as replays, which the event log
// dedupes, and stage transitions are guarded. That lets a retried delivery
// finish whatever an earlier attempt left undone. Client notifications only
// go out on the attempt that records the status or fails the meeting.
type BotHandler struct {
	bots      store.BotStore
	meetings  store.MeetingStore
	engine    *diagnosis.Engine
	publisher events.Publisher
	pipeline  Pipeline
	notifier  notify.Notifier
}

func NewBotHandler(bots store.BotStore, meetings store.MeetingStore, engine *diagnosis.Engine, publisher events.Publisher, pipeline Pipeline, notifier notify.Notifier) *BotHandler {
	return &BotHandler{
		bots:      bots,
		meetings:  meetings,
		engine:    engine,
		publisher: publisher,
		pipeline:  pipeline,
		notifier:  notifier,
	}
}

func (h *BotHandler) Handle(ctx context.Context, n domain.Notification) error {
	if n.BotID == "" {
		slog.WarnContext(ctx, "bot event without bot id")
		return nil
	}

	change := model.StatusChange{
		Code:       n.Status.Code,
		SubCode:    n.Status.SubCode,
		Message:    n.Status.Message,
		OccurredAt: n.Status.OccurredAt,
	}

	meeting, err := h.meetings.GetByBotID(ctx, n.BotID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		meeting = nil
	case err != nil:
		return fmt.Errorf("loading meeting for bot %s: %w", n.BotID, err)
	}

	appended, err := h.bots.AppendStatus(ctx, n.BotID, change)
	if err != nil {
		return fmt.Errorf("appending status for bot %s: %w", n.BotID, err)
	}
	if !appended {
		slog.InfoContext(ctx, "bot status not appended", "code", change.Code)
	}

	causation := model.BotCausationID(n.BotID)
	switch change.Code {
	case "in_call_recording":
		if meeting == nil {
			return nil
		}
		return h.pipeline.MarkRecording(ctx, meeting.ID, causation)
	case "in_waiting_room":
		if appended {
			h.notifyClient(ctx, meeting, n, notify.TypeBotWaitingRoom, msgWaitingRoom, nil)
		}
	case "recording_permission_denied":
		if appended {
			h.notifyClient(ctx, meeting, n, notify.TypeBotRecordingPermission, msgPermissionDenied, nil)
		}
	case model.BotStatusDone:
		return h.done(ctx, n, change, meeting, appended)
	case model.BotStatusFatal:
		return h.fatal(ctx, n, change, meeting, appended)
	default:
		slog.DebugContext(ctx, "bot status recorded", "code", change.Code)
	}
	return nil
}

func (h *BotHandler) done(ctx context.Context, n domain.Notification, change model.StatusChange, meeting *model.Meeting, appended bool) error {
	causation := model.BotCausationID(n.BotID)

	bot, diag, err := h.diagnose(ctx, n.BotID)
	if err != nil {
		return err
	}
	if !appended && !bot.Recorded(change) {
		slog.InfoContext(ctx, "bot already finished, ignoring done", "current_status", bot.CurrentStatus)
		return nil
	}

	params := events.PublishParams{
		Replay:        !appended,
		EventType:     domain.BotProcessingCompleted,
		AggregateID:   n.BotID,
		AggregateType: model.AggregateBot,
		CausationID:   causation,
		Payload: map[string]any{
			"botId":       n.BotID,
			"recordingId": n.RecordingID,
			"hasIssues":   diag.HasIssues,
			"issues":      diag.Summary(),
		},
	}
	if meeting != nil {
		params.MeetingID = &meeting.ID
	}
	_, _ = h.publisher.Publish(ctx, params)

	if meeting == nil {
		slog.WarnContext(ctx, "no meeting for finished bot")
		return nil
	}
	_, _ = h.publisher.Publish(ctx, events.PublishParams{
		Replay:        !appended,
		EventType:     domain.MeetingEnded,
		AggregateID:   fmt.Sprint(meeting.ID),
		AggregateType: model.AggregateMeeting,
		MeetingID:     &meeting.ID,
		CausationID:   causation,
		Payload: map[string]any{
			"meetingId": meeting.ID,
			"botId":     n.BotID,
			"clientId":  meeting.ClientID,
		},
	})

	err = h.pipeline.BeginTranscription(ctx, meeting.ID, n.RecordingID, causation)
	if errors.Is(err, pipeline.ErrInvalidTransition) {
		slog.InfoContext(ctx, "meeting already finished, not starting transcription", "stage", meeting.Stage)
		return nil
	}
	return err
}

func (h *BotHandler) fatal(ctx context.Context, n domain.Notification, change model.StatusChange, meeting *model.Meeting, appended bool) error {
	bot, diag, err := h.diagnose(ctx, n.BotID)
	if err != nil {
		return err
	}
	if !appended && !bot.Recorded(change) {
		slog.InfoContext(ctx, "bot already finished, ignoring fatal", "current_status", bot.CurrentStatus)
		return nil
	}

	reason := "bot reported a fatal error"
	subCode := ""
	if issue, ok := diag.Fatal(); ok {
		reason = issue.Message
		if issue.SubCode != nil {
			subCode = *issue.SubCode
		}
	}

	failed := false
	if meeting != nil {
		_, err := h.meetings.Fail(ctx, meeting.ID, store.MeetingFailure{
			StageError:         fatalStageError + reason,
			FailureReason:      &reason,
			TroubleshootingURL: &diag.InspectionURL,
		})
		switch {
		case err == nil:
			failed = true
		case errors.Is(err, store.ErrStageConflict):
			slog.InfoContext(ctx, "meeting already finished, not failing it", "stage", meeting.Stage)
		default:
			return fmt.Errorf("failing meeting %d: %w", meeting.ID, err)
		}
	}

	causation := model.BotCausationID(n.BotID)
	params := events.PublishParams{
		Replay:        !appended,
		EventType:     domain.BotFatal,
		AggregateID:   n.BotID,
		AggregateType: model.AggregateBot,
		CausationID:   causation,
		Payload: map[string]any{
			"botId":         n.BotID,
			"subCode":       subCode,
			"reason":        reason,
			"inspectionUrl": diag.InspectionURL,
		},
	}
	if meeting != nil {
		params.MeetingID = &meeting.ID
	}
	_, _ = h.publisher.Publish(ctx, params)

	if failed || failedByBot(meeting) {
		_, _ = h.publisher.Publish(ctx, events.PublishParams{
			Replay:        !failed,
			EventType:     domain.MeetingFailed,
			AggregateID:   fmt.Sprint(meeting.ID),
			AggregateType: model.AggregateMeeting,
			MeetingID:     &meeting.ID,
			CausationID:   causation,
			Payload: map[string]any{
				"meetingId":          meeting.ID,
				"failureReason":      reason,
				"troubleshootingUrl": diag.InspectionURL,
			},
		})
	}

	if !appended && !failed {
		return nil
	}

	h.notifyClient(ctx, meeting, n, notify.TypeBotFatalError, msgFatal, &diag)

	errorMessage := reason
	if n.Status.Message != nil {
		errorMessage = *n.Status.Message
	}
	if err := h.notifier.SendFatalAlert(ctx, notify.FatalAlert{
		BotID:        n.BotID,
		ErrorMessage: errorMessage,
		ErrorCode:    n.Status.Code,
		SubCode:      subCode,
		Diagnosis:    diag,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to send fatal alert", "error", err)
	}

	slog.WarnContext(ctx, "bot failed fatally",
		"sub_code", subCode,
		"reason", reason,
		"inspection_url", diag.InspectionURL)
	return nil
}

// failedByBot reports whether an earlier attempt already failed the meeting
// for this bot.
func failedByBot(meeting *model.Meeting) bool {
	return meeting != nil &&
		meeting.Stage == model.StageFailed &&
		meeting.StageError != nil &&
		strings.HasPrefix(*meeting.StageError, fatalStageError)
}

func (h *BotHandler) diagnose(ctx context.Context, botID string) (*model.Bot, diagnosis.Diagnosis, error) {
	bot, err := h.bots.Get(ctx, botID)
	if err != nil {
		return nil, diagnosis.Diagnosis{}, fmt.Errorf("loading bot %s: %w", botID, err)
	}
	diag := h.engine.Diagnose(*bot)
	slog.InfoContext(ctx, "bot diagnosed", "has_issues", diag.HasIssues, "issues", diag.Summary())
	return bot, diag, nil
}

func (h *BotHandler) notifyClient(ctx context.Context, meeting *model.Meeting, n domain.Notification, kind, message string, diag *diagnosis.Diagnosis) {
	if meeting == nil {
		return
	}
	cn := notify.ClientNotification{
		Type:      kind,
		MeetingID: meeting.ID,
		ClientID:  meeting.ClientID,
		BotID:     n.BotID,
		Message:   message,
	}
	if n.Status.SubCode != nil {
		cn.SubCode = *n.Status.SubCode
	}
	if diag != nil {
		cn.Diagnosis = *diag
		cn.TroubleshootingURL = diag.InspectionURL
	}
	if err := h.notifier.NotifyClient(ctx, cn); err != nil {
		slog.ErrorContext(ctx, "failed to notify client", "error", err, "notification_type", kind)
	}
}
