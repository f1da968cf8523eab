package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/queue"
	"basegraph.app/meetrelay/internal/store"
)

var (
	ErrInvalidTransition     = errors.New("invalid stage transition")
	ErrMeetingNotCompletable = errors.New("meeting cannot complete while its transcript is not done")
	ErrRecordingRequired     = errors.New("recording id is required")
)

// CancelPublisher tells every worker to stop processing a meeting.
type CancelPublisher interface {
	PublishCancel(ctx context.Context, meetingID int64) error
}

// Coordinator moves meetings between stages and queues the work for each
// stage. It never runs stage work itself.
type Coordinator struct {
	meetings  store.MeetingStore
	producer  queue.Producer
	publisher events.Publisher
	cancels   CancelPublisher
}

func NewCoordinator(meetings store.MeetingStore, producer queue.Producer, publisher events.Publisher, cancels CancelPublisher) *Coordinator {
	return &Coordinator{
		meetings:  meetings,
		producer:  producer,
		publisher: publisher,
		cancels:   cancels,
	}
}

// BeginTranscription moves the meeting to transcribing and queues transcript
// retrieval. recordingID may be empty; the worker then resolves it from the
// meeting's bot. A meeting already transcribing gets its retrieval task
// queued again, since an earlier call may have advanced it without queueing.
// A meeting already extracting is left alone.
func (c *Coordinator) BeginTranscription(ctx context.Context, meetingID int64, recordingID, causationID string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MeetingID: &meetingID, Component: "meetrelay.pipeline.coordinator"})

	meeting, err := c.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("loading meeting %d: %w", meetingID, err)
	}
	switch meeting.Stage {
	case model.StageExtracting:
		slog.InfoContext(ctx, "extraction already underway, not restarting transcription")
		return nil
	case model.StageTranscribing:
		slog.InfoContext(ctx, "transcription already underway, requeueing retrieval")
	default:
		if err := c.advance(ctx, meeting, model.StageTranscribing); err != nil {
			return err
		}
	}

	if recordingID != "" {
		if err := c.meetings.SetRecordingID(ctx, meetingID, recordingID); err != nil {
			return fmt.Errorf("setting recording id: %w", err)
		}
	} else if meeting.RecordingID != nil {
		recordingID = *meeting.RecordingID
	}
	if meeting.TranscriptStatus != model.TranscriptProcessing {
		if err := c.meetings.SetTranscriptStatus(ctx, meetingID, model.TranscriptProcessing); err != nil {
			return fmt.Errorf("setting transcript status: %w", err)
		}
	}

	return c.enqueue(ctx, queue.Task{
		TaskType:    queue.TaskTypeTranscriptRetrieval,
		MeetingID:   &meetingID,
		RecordingID: recordingID,
		CausationID: causationID,
	})
}

// BeginExtraction moves the meeting to extracting and queues artifact
// extraction. The worker fetches the transcript first if none is stored.
// A meeting already extracting gets its task queued again.
func (c *Coordinator) BeginExtraction(ctx context.Context, meetingID int64, causationID string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MeetingID: &meetingID, Component: "meetrelay.pipeline.coordinator"})

	meeting, err := c.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("loading meeting %d: %w", meetingID, err)
	}
	if meeting.Stage == model.StageExtracting {
		slog.InfoContext(ctx, "extraction already underway, requeueing extraction")
	} else if err := c.advance(ctx, meeting, model.StageExtracting); err != nil {
		return err
	}

	return c.enqueue(ctx, queue.Task{
		TaskType:    queue.TaskTypeArtifactExtraction,
		MeetingID:   &meetingID,
		CausationID: causationID,
	})
}

// SubmitRecording starts processing for a recording supplied through the
// API rather than discovered from a bot.
func (c *Coordinator) SubmitRecording(ctx context.Context, meetingID int64, recordingID string) error {
	if recordingID == "" {
		return ErrRecordingRequired
	}
	return c.BeginTranscription(ctx, meetingID, recordingID, "recording_"+recordingID)
}

// MarkRecording moves the meeting to recording when the bot starts
// recording. Meetings already past recording are left alone.
func (c *Coordinator) MarkRecording(ctx context.Context, meetingID int64, causationID string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MeetingID: &meetingID, Component: "meetrelay.pipeline.coordinator"})

	meeting, err := c.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("loading meeting %d: %w", meetingID, err)
	}
	if !meeting.Stage.CanAdvanceTo(model.StageRecording) {
		slog.DebugContext(ctx, "meeting already past recording", "stage", meeting.Stage)
		return nil
	}
	if err := c.advance(ctx, meeting, model.StageRecording); err != nil {
		return err
	}

	_, _ = c.publisher.Publish(ctx, events.PublishParams{
		EventType:     domain.MeetingRecording,
		AggregateID:   fmt.Sprint(meetingID),
		AggregateType: model.AggregateMeeting,
		MeetingID:     &meetingID,
		CausationID:   causationID,
		Payload:       map[string]any{"meetingId": meetingID, "botId": meeting.BotID},
	})
	return nil
}

// FailTranscription is the hard failure path: the meeting fails with its
// transcript marked failed, and transcript.failed and meeting.failed are
// published. A meeting that already finished returns ErrInvalidTransition.
func (c *Coordinator) FailTranscription(ctx context.Context, meetingID int64, reason, causationID string) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MeetingID: &meetingID, Component: "meetrelay.pipeline.coordinator"})

	meeting, err := c.meetings.Fail(ctx, meetingID, store.MeetingFailure{
		StageError:       reason,
		TranscriptFailed: true,
	})
	if err != nil {
		if errors.Is(err, store.ErrStageConflict) {
			return fmt.Errorf("failing meeting %d: %w", meetingID, ErrInvalidTransition)
		}
		return fmt.Errorf("failing meeting %d: %w", meetingID, err)
	}

	_, _ = c.publisher.Publish(ctx, events.PublishParams{
		EventType:     domain.TranscriptFailed,
		AggregateID:   fmt.Sprint(meetingID),
		AggregateType: model.AggregateTranscript,
		MeetingID:     &meetingID,
		CausationID:   causationID,
		Payload:       map[string]any{"meetingId": meetingID, "error": reason},
	})
	_, _ = c.publisher.Publish(ctx, events.PublishParams{
		EventType:     domain.MeetingFailed,
		AggregateID:   fmt.Sprint(meetingID),
		AggregateType: model.AggregateMeeting,
		MeetingID:     &meetingID,
		CausationID:   causationID,
		Payload: map[string]any{
			"meetingId":  meetingID,
			"stage":      meeting.Stage,
			"stageError": meeting.StageError,
		},
	})

	slog.ErrorContext(ctx, "meeting failed in transcription", "reason", reason)
	return nil
}

// Cancel fails the meeting and asks every worker to abandon its running
// stage.
func (c *Coordinator) Cancel(ctx context.Context, meetingID int64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MeetingID: &meetingID, Component: "meetrelay.pipeline.coordinator"})

	meeting, err := c.meetings.Fail(ctx, meetingID, store.MeetingFailure{StageError: "processing cancelled"})
	if err != nil {
		if errors.Is(err, store.ErrStageConflict) {
			return fmt.Errorf("cancelling meeting %d: %w", meetingID, ErrInvalidTransition)
		}
		return fmt.Errorf("cancelling meeting %d: %w", meetingID, err)
	}

	if err := c.cancels.PublishCancel(ctx, meetingID); err != nil {
		// Running stages will still stop at their next stage check.
		slog.ErrorContext(ctx, "failed to broadcast cancellation", "error", err)
	}

	_, _ = c.publisher.Publish(ctx, events.PublishParams{
		EventType:     domain.MeetingCancelled,
		AggregateID:   fmt.Sprint(meetingID),
		AggregateType: model.AggregateMeeting,
		MeetingID:     &meetingID,
		CausationID:   "api",
		Payload: map[string]any{
			"meetingId": meetingID,
			"stage":     meeting.Stage,
		},
	})

	slog.InfoContext(ctx, "meeting processing cancelled")
	return nil
}

func (c *Coordinator) advance(ctx context.Context, meeting *model.Meeting, next model.Stage) error {
	if !meeting.Stage.CanAdvanceTo(next) {
		return fmt.Errorf("meeting %d from %s to %s: %w", meeting.ID, meeting.Stage, next, ErrInvalidTransition)
	}
	if _, err := c.meetings.UpdateStage(ctx, meeting.ID, next); err != nil {
		if errors.Is(err, store.ErrStageConflict) {
			return fmt.Errorf("meeting %d to %s: %w", meeting.ID, next, ErrInvalidTransition)
		}
		return fmt.Errorf("updating stage: %w", err)
	}
	slog.InfoContext(ctx, "meeting stage advanced", "from", meeting.Stage, "to", next)
	return nil
}

func (c *Coordinator) enqueue(ctx context.Context, task queue.Task) error {
	if traceID := logger.TraceID(ctx); traceID != "" {
		task.TraceID = &traceID
	}
	if err := c.producer.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("queueing %s: %w", task.TaskType, err)
	}
	return nil
}
