package model

import "time"

type StageRunStatus string

const (
	StageRunStarted   StageRunStatus = "started"
	StageRunSucceeded StageRunStatus = "succeeded"
	StageRunFailed    StageRunStatus = "failed"
	StageRunCancelled StageRunStatus = "cancelled"
)

// StageRun records one attempt at executing a pipeline stage.
type StageRun struct {
	ID         int64          `json:"id"`
	MeetingID  int64          `json:"meeting_id"`
	Stage      Stage          `json:"stage"`
	Attempt    int32          `json:"attempt"`
	Status     StageRunStatus `json:"status"`
	Error      *string        `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}
