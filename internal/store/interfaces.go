package store

import (
	"context"
	"errors"

	"basegraph.app/meetrelay/internal/model"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStageConflict is returned when a conditional stage update found the
	// meeting in a stage that does not allow it.
	ErrStageConflict = errors.New("meeting stage does not allow this transition")
)

// MeetingFailure is what gets written when a meeting fails.
type MeetingFailure struct {
	StageError         string
	FailureReason      *string
	TroubleshootingURL *string
	TranscriptFailed   bool
}

type MeetingStore interface {
	GetByID(ctx context.Context, id int64) (*model.Meeting, error)
	GetByBotID(ctx context.Context, botID string) (*model.Meeting, error)
	// UpdateStage moves a non-terminal meeting to stage.
	UpdateStage(ctx context.Context, id int64, stage model.Stage) (*model.Meeting, error)
	// Complete moves the meeting to completed only when its transcript is
	// done. It returns ErrStageConflict otherwise.
	Complete(ctx context.Context, id int64) (*model.Meeting, error)
	Fail(ctx context.Context, id int64, failure MeetingFailure) (*model.Meeting, error)
	SetRecordingID(ctx context.Context, id int64, recordingID string) error
	SetTranscriptStatus(ctx context.Context, id int64, status model.TranscriptStatus) error
	SetArtifactsStatus(ctx context.Context, id int64, status model.ArtifactsStatus) error
}

type BotStore interface {
	Get(ctx context.Context, id string) (*model.Bot, error)
	// AppendStatus records change and makes it the bot's current status.
	// appended is false when the same (bot, code, sub-code, occurred_at)
	// was already recorded or the bot is terminal.
	AppendStatus(ctx context.Context, botID string, change model.StatusChange) (appended bool, err error)
	RecordMediaChunk(ctx context.Context, botID string, kind string) error
}

type EventLogStore interface {
	// Append stores evt. created is false when an event with the same
	// dedupe key already exists.
	Append(ctx context.Context, evt *model.DomainEvent) (created bool, err error)
	ListByCorrelation(ctx context.Context, correlationID string, limit int32) ([]model.DomainEvent, error)
}

type TranscriptStore interface {
	Get(ctx context.Context, meetingID int64) (*model.Transcript, error)
	Save(ctx context.Context, t *model.Transcript) error
}

type ArtifactStore interface {
	Get(ctx context.Context, meetingID int64) (*model.Artifacts, error)
	Save(ctx context.Context, a *model.Artifacts) error
}

type StageRunStore interface {
	Create(ctx context.Context, run *model.StageRun) (*model.StageRun, error)
	Finish(ctx context.Context, id int64, status model.StageRunStatus, errMsg *string) error
	ListByMeeting(ctx context.Context, meetingID int64, limit int32) ([]model.StageRun, error)
}
