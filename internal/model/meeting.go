package model

import "time"

// Stage is a meeting's position in the processing pipeline.
type Stage string

const (
	StageScheduled    Stage = "scheduled"
	StageRecording    Stage = "recording"
	StageTranscribing Stage = "transcribing"
	StageExtracting   Stage = "extracting"
	StageCompleted    Stage = "completed"
	StageFailed       Stage = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// CanAdvanceTo reports whether a meeting at s may move to next. Any
// non-terminal stage may fail; otherwise stages only move forward.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if s.Terminal() {
		return false
	}
	if next == StageFailed {
		return true
	}
	return stageOrder(next) > stageOrder(s)
}

func stageOrder(s Stage) int {
	switch s {
	case StageScheduled:
		return 0
	case StageRecording:
		return 1
	case StageTranscribing:
		return 2
	case StageExtracting:
		return 3
	case StageCompleted:
		return 4
	default:
		return -1
	}
}

type TranscriptStatus string

const (
	TranscriptPending    TranscriptStatus = "pending"
	TranscriptProcessing TranscriptStatus = "processing"
	TranscriptDone       TranscriptStatus = "done"
	TranscriptFailed     TranscriptStatus = "failed"
)

func (s TranscriptStatus) Terminal() bool {
	return s == TranscriptDone || s == TranscriptFailed
}

type ArtifactsStatus string

const (
	ArtifactsPending    ArtifactsStatus = "pending"
	ArtifactsProcessing ArtifactsStatus = "processing"
	ArtifactsDone       ArtifactsStatus = "done"
	ArtifactsFailed     ArtifactsStatus = "failed"
	ArtifactsSkipped    ArtifactsStatus = "skipped"
)

type Meeting struct {
	ID                 int64            `json:"id"`
	ClientID           string           `json:"client_id"`
	Title              string           `json:"title"`
	BotID              *string          `json:"bot_id,omitempty"`
	RecordingID        *string          `json:"recording_id,omitempty"`
	Stage              Stage            `json:"stage"`
	StageError         *string          `json:"stage_error,omitempty"`
	TranscriptStatus   TranscriptStatus `json:"transcript_status"`
	ArtifactsStatus    ArtifactsStatus  `json:"artifacts_status"`
	FailureReason      *string          `json:"failure_reason,omitempty"`
	TroubleshootingURL *string          `json:"troubleshooting_url,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// CanComplete is false while a transcript is still open, so a completed
// meeting never has transcription in flight.
func (m Meeting) CanComplete() bool {
	return !m.Stage.Terminal() && m.TranscriptStatus == TranscriptDone
}

// CorrelationID is shared by every domain event emitted for this meeting.
func (m Meeting) CorrelationID() string {
	return MeetingCorrelationID(m.ID)
}
