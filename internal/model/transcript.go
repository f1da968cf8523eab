package model

import "time"

type TranscriptSegment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

type Transcript struct {
	MeetingID   int64               `json:"meeting_id"`
	RecordingID string              `json:"recording_id"`
	Text        string              `json:"text"`
	Segments    []TranscriptSegment `json:"segments"`
	CreatedAt   time.Time           `json:"created_at"`
}

type ActionItem struct {
	Description string  `json:"description"`
	Assignee    string  `json:"assignee"`
	DueDate     string  `json:"due_date"`
	Priority    string  `json:"priority"`
	Confidence  float64 `json:"confidence"`
}

// Artifacts are derived from a transcript by the text-generation
// collaborator.
type Artifacts struct {
	MeetingID   int64        `json:"meeting_id"`
	Summary     string       `json:"summary"`
	KeyPoints   []string     `json:"key_points"`
	Decisions   []string     `json:"decisions"`
	NextSteps   []string     `json:"next_steps"`
	ActionItems []ActionItem `json:"action_items"`
	Sentiment   string       `json:"sentiment"`
	Model       string       `json:"model"`
	CreatedAt   time.Time    `json:"created_at"`
}
