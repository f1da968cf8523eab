package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/meetrelay/common/id"
	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/queue"
	"basegraph.app/meetrelay/internal/recall"
	"basegraph.app/meetrelay/internal/store"
	"basegraph.app/meetrelay/internal/worker"
)

// StoreProvider mirrors store.Stores for the stores a stage touches.
type StoreProvider interface {
	Meetings() store.MeetingStore
	Transcripts() store.TranscriptStore
	Artifacts() store.ArtifactStore
	StageRuns() store.StageRunStore
}

// TranscriptSource is the part of the provider client the stages need.
type TranscriptSource interface {
	GetBot(ctx context.Context, botID string) (*recall.Bot, error)
	GetTranscript(ctx context.Context, recordingID string) ([]recall.TranscriptEntry, error)
}

// StageRunner executes queued stage tasks on the worker. Transcript
// retrieval failures are hard: once retries run out the meeting fails.
// Extraction failures are soft: artifacts are marked failed and the
// meeting still completes.
type StageRunner struct {
	stores      StoreProvider
	source      TranscriptSource
	extractor   Extractor
	publisher   events.Publisher
	coordinator *Coordinator
	supervisor  *Supervisor
}

// NewStageRunner builds a runner. A nil extractor skips extraction and
// marks artifacts skipped.
func NewStageRunner(stores StoreProvider, source TranscriptSource, extractor Extractor, publisher events.Publisher, coordinator *Coordinator, supervisor *Supervisor) *StageRunner {
	return &StageRunner{
		stores:      stores,
		source:      source,
		extractor:   extractor,
		publisher:   publisher,
		coordinator: coordinator,
		supervisor:  supervisor,
	}
}

func (r *StageRunner) Handle(ctx context.Context, msg queue.Message) error {
	if msg.MeetingID == nil {
		return worker.Permanent(fmt.Errorf("%s task without meeting id", msg.TaskType))
	}
	meetingID := *msg.MeetingID

	meeting, err := r.stores.Meetings().GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return worker.Permanent(fmt.Errorf("meeting %d: %w", meetingID, err))
		}
		return fmt.Errorf("loading meeting %d: %w", meetingID, err)
	}
	if meeting.Stage.Terminal() {
		slog.InfoContext(ctx, "meeting already finished, skipping stage",
			"task_type", msg.TaskType,
			"stage", meeting.Stage)
		return nil
	}

	var stage model.Stage
	var run func(ctx context.Context, meeting *model.Meeting, msg queue.Message) error
	switch msg.TaskType {
	case queue.TaskTypeTranscriptRetrieval:
		stage, run = model.StageTranscribing, r.retrieveTranscript
	case queue.TaskTypeArtifactExtraction:
		stage, run = model.StageExtracting, r.extractArtifacts
	default:
		return worker.Permanent(fmt.Errorf("stage runner cannot handle %q", msg.TaskType))
	}

	return r.supervised(ctx, meeting, stage, msg, run)
}

// supervised wraps a stage in a StageRun row and makes it cancellable.
func (r *StageRunner) supervised(ctx context.Context, meeting *model.Meeting, stage model.Stage, msg queue.Message, fn func(context.Context, *model.Meeting, queue.Message) error) error {
	stageRun, err := r.stores.StageRuns().Create(ctx, &model.StageRun{
		ID:        id.New(),
		MeetingID: meeting.ID,
		Stage:     stage,
		Attempt:   int32(msg.Attempt),
		Status:    model.StageRunStarted,
	})
	if err != nil {
		return fmt.Errorf("recording stage run: %w", err)
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{StageRunID: &stageRun.ID})

	runCtx, done := r.supervisor.Track(ctx, meeting.ID)
	err = fn(runCtx, meeting, msg)
	cancelled := Cancelled(runCtx)
	done()

	switch {
	case cancelled:
		r.finish(ctx, stageRun.ID, model.StageRunCancelled, ErrCancelled)
		slog.InfoContext(ctx, "stage cancelled", "stage", stage)
		return nil
	case err != nil:
		r.finish(ctx, stageRun.ID, model.StageRunFailed, err)
		return err
	default:
		r.finish(ctx, stageRun.ID, model.StageRunSucceeded, nil)
		return nil
	}
}

func (r *StageRunner) finish(ctx context.Context, runID int64, status model.StageRunStatus, cause error) {
	var msg *string
	if cause != nil {
		msg = logger.Ptr(cause.Error())
	}
	// Detached so a cancelled stage still records its outcome.
	if err := r.stores.StageRuns().Finish(context.WithoutCancel(ctx), runID, status, msg); err != nil {
		slog.ErrorContext(ctx, "failed to finish stage run", "error", err, "status", status)
	}
}

func (r *StageRunner) retrieveTranscript(ctx context.Context, meeting *model.Meeting, msg queue.Message) error {
	if meeting.Stage == model.StageExtracting && meeting.TranscriptStatus == model.TranscriptDone {
		causation := msg.CausationID
		if meeting.RecordingID != nil {
			causation = model.TranscriptCausationID(*meeting.RecordingID)
		}
		slog.InfoContext(ctx, "transcript already retrieved, requeueing extraction")
		return r.coordinator.BeginExtraction(ctx, meeting.ID, causation)
	}

	transcript, err := r.fetchTranscript(ctx, meeting, msg.RecordingID)
	if err != nil {
		return err
	}

	_, _ = r.publisher.Publish(ctx, events.PublishParams{
		Replay:        redelivered(msg),
		EventType:     domain.TranscriptCompleted,
		AggregateID:   transcript.RecordingID,
		AggregateType: model.AggregateTranscript,
		MeetingID:     &meeting.ID,
		CausationID:   msg.CausationID,
		Payload: map[string]any{
			"meetingId":    meeting.ID,
			"recordingId":  transcript.RecordingID,
			"segmentCount": len(transcript.Segments),
		},
	})

	return r.coordinator.BeginExtraction(ctx, meeting.ID, model.TranscriptCausationID(transcript.RecordingID))
}

// fetchTranscript downloads, stores and marks the transcript done.
func (r *StageRunner) fetchTranscript(ctx context.Context, meeting *model.Meeting, recordingID string) (*model.Transcript, error) {
	recordingID, err := r.resolveRecordingID(ctx, meeting, recordingID)
	if err != nil {
		return nil, err
	}

	entries, err := r.source.GetTranscript(ctx, recordingID)
	if err != nil {
		err = fmt.Errorf("fetching transcript for recording %s: %w", recordingID, err)
		if !recall.IsRetryable(err) {
			return nil, worker.Permanent(err)
		}
		return nil, err
	}

	transcript := recall.ToTranscript(meeting.ID, recordingID, entries)
	if err := r.stores.Transcripts().Save(ctx, transcript); err != nil {
		return nil, fmt.Errorf("saving transcript: %w", err)
	}
	if err := r.stores.Meetings().SetTranscriptStatus(ctx, meeting.ID, model.TranscriptDone); err != nil {
		return nil, fmt.Errorf("setting transcript status: %w", err)
	}
	meeting.TranscriptStatus = model.TranscriptDone

	slog.InfoContext(ctx, "transcript stored",
		"recording_id", recordingID,
		"segments", len(transcript.Segments))
	return transcript, nil
}

func (r *StageRunner) resolveRecordingID(ctx context.Context, meeting *model.Meeting, recordingID string) (string, error) {
	if recordingID != "" {
		return recordingID, nil
	}
	if meeting.RecordingID != nil && *meeting.RecordingID != "" {
		return *meeting.RecordingID, nil
	}
	if meeting.BotID == nil {
		return "", worker.Permanent(fmt.Errorf("meeting %d has neither a recording nor a bot", meeting.ID))
	}

	bot, err := r.source.GetBot(ctx, *meeting.BotID)
	if err != nil {
		return "", fmt.Errorf("resolving recording from bot %s: %w", *meeting.BotID, err)
	}
	recordingID = bot.LatestRecordingID()
	if recordingID == "" {
		return "", worker.Permanent(fmt.Errorf("bot %s produced no recording", *meeting.BotID))
	}
	if err := r.stores.Meetings().SetRecordingID(ctx, meeting.ID, recordingID); err != nil {
		return "", fmt.Errorf("setting recording id: %w", err)
	}
	return recordingID, nil
}

func (r *StageRunner) extractArtifacts(ctx context.Context, meeting *model.Meeting, msg queue.Message) error {
	transcript, err := r.stores.Transcripts().Get(ctx, meeting.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		transcript, err = r.fetchTranscript(ctx, meeting, "")
		if err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("loading transcript: %w", err)
	}

	if r.extractor == nil {
		if err := r.stores.Meetings().SetArtifactsStatus(ctx, meeting.ID, model.ArtifactsSkipped); err != nil {
			return fmt.Errorf("setting artifacts status: %w", err)
		}
		return r.complete(ctx, meeting.ID, redelivered(msg))
	}

	if err := r.stores.Meetings().SetArtifactsStatus(ctx, meeting.ID, model.ArtifactsProcessing); err != nil {
		return fmt.Errorf("setting artifacts status: %w", err)
	}

	artifacts, err := r.extractor.Extract(ctx, meeting, transcript)
	if err != nil {
		return err
	}
	if err := r.stores.Artifacts().Save(ctx, artifacts); err != nil {
		return fmt.Errorf("saving artifacts: %w", err)
	}
	if err := r.stores.Meetings().SetArtifactsStatus(ctx, meeting.ID, model.ArtifactsDone); err != nil {
		return fmt.Errorf("setting artifacts status: %w", err)
	}

	_, _ = r.publisher.Publish(ctx, events.PublishParams{
		Replay:        redelivered(msg),
		EventType:     domain.ArtifactsGenerated,
		AggregateID:   fmt.Sprint(meeting.ID),
		AggregateType: model.AggregateMeeting,
		MeetingID:     &meeting.ID,
		CausationID:   msg.CausationID,
		Payload: map[string]any{
			"meetingId":   meeting.ID,
			"actionItems": len(artifacts.ActionItems),
			"model":       artifacts.Model,
		},
	})

	return r.complete(ctx, meeting.ID, redelivered(msg))
}

// redelivered reports whether msg may repeat work an earlier attempt
// already published.
func redelivered(msg queue.Message) bool {
	return msg.Attempt > 1
}

func (r *StageRunner) complete(ctx context.Context, meetingID int64, replay bool) error {
	meeting, err := r.stores.Meetings().Complete(ctx, meetingID)
	if err != nil {
		if errors.Is(err, store.ErrStageConflict) {
			return worker.Permanent(fmt.Errorf("meeting %d: %w", meetingID, ErrMeetingNotCompletable))
		}
		return fmt.Errorf("completing meeting: %w", err)
	}

	_, _ = r.publisher.Publish(ctx, events.PublishParams{
		Replay:        replay,
		EventType:     domain.MeetingCompleted,
		AggregateID:   fmt.Sprint(meetingID),
		AggregateType: model.AggregateMeeting,
		MeetingID:     &meetingID,
		Payload: map[string]any{
			"meetingId":       meetingID,
			"artifactsStatus": meeting.ArtifactsStatus,
		},
	})
	slog.InfoContext(ctx, "meeting completed", "artifacts_status", meeting.ArtifactsStatus)
	return nil
}

// Exhausted applies the stage's failure policy after the last attempt.
func (r *StageRunner) Exhausted(ctx context.Context, msg queue.Message, cause error) {
	if msg.MeetingID == nil {
		return
	}
	meetingID := *msg.MeetingID

	switch msg.TaskType {
	case queue.TaskTypeTranscriptRetrieval:
		r.failTranscript(ctx, meetingID, msg, cause)
	case queue.TaskTypeArtifactExtraction:
		// Without a finished transcript the meeting cannot complete, so a
		// failed fetch inside extraction is still a hard failure.
		meeting, err := r.stores.Meetings().GetByID(ctx, meetingID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to load meeting after extraction failure", "error", err)
			return
		}
		if meeting.Stage.Terminal() {
			return
		}
		if meeting.TranscriptStatus != model.TranscriptDone {
			r.failTranscript(ctx, meetingID, msg, cause)
			return
		}
		r.failArtifacts(ctx, meetingID, msg, cause)
	}
}

func (r *StageRunner) failTranscript(ctx context.Context, meetingID int64, msg queue.Message, cause error) {
	err := r.coordinator.FailTranscription(ctx, meetingID, "transcript retrieval failed: "+cause.Error(), msg.CausationID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to mark meeting failed", "error", err)
	}
}

func (r *StageRunner) failArtifacts(ctx context.Context, meetingID int64, msg queue.Message, cause error) {
	if err := r.stores.Meetings().SetArtifactsStatus(ctx, meetingID, model.ArtifactsFailed); err != nil {
		slog.ErrorContext(ctx, "failed to mark artifacts failed", "error", err)
		return
	}

	_, _ = r.publisher.Publish(ctx, events.PublishParams{
		EventType:     domain.ArtifactsFailed,
		AggregateID:   fmt.Sprint(meetingID),
		AggregateType: model.AggregateMeeting,
		MeetingID:     &meetingID,
		CausationID:   msg.CausationID,
		Payload:       map[string]any{"meetingId": meetingID, "error": cause.Error()},
	})
	slog.WarnContext(ctx, "artifact extraction failed, completing meeting without artifacts", "error", cause)

	if err := r.complete(ctx, meetingID, false); err != nil {
		slog.ErrorContext(ctx, "failed to complete meeting after extraction failure", "error", err)
	}
}
