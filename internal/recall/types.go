package recall

import (
	"strings"
	"time"

	"basegraph.app/meetrelay/internal/model"
)

type Bot struct {
	ID            string         `json:"id"`
	MeetingURL    any            `json:"meeting_url"`
	StatusChanges []StatusChange `json:"status_changes"`
	Recordings    []Recording    `json:"recordings"`
}

type StatusChange struct {
	Code      string    `json:"code"`
	SubCode   *string   `json:"sub_code"`
	Message   *string   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Recording struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type Screenshot struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Status is the latest reported status code, or "unknown" for a bot that
// has not reported one yet.
func (b Bot) Status() string {
	if len(b.StatusChanges) == 0 {
		return "unknown"
	}
	return b.StatusChanges[len(b.StatusChanges)-1].Code
}

// History converts the provider's status changes for the diagnosis engine.
func (b Bot) History() []model.StatusChange {
	out := make([]model.StatusChange, 0, len(b.StatusChanges))
	for _, sc := range b.StatusChanges {
		change := model.StatusChange{
			Code:       sc.Code,
			Message:    sc.Message,
			OccurredAt: sc.CreatedAt.UTC(),
		}
		if sc.SubCode != nil && *sc.SubCode != "" {
			change.SubCode = sc.SubCode
		}
		out = append(out, change)
	}
	return out
}

// ToModel is the bot as the diagnosis engine sees it.
func (b Bot) ToModel() model.Bot {
	return model.Bot{
		ID:            b.ID,
		CurrentStatus: b.Status(),
		StatusHistory: b.History(),
	}
}

// LatestRecordingID is empty when the bot produced no recording.
func (b Bot) LatestRecordingID() string {
	if len(b.Recordings) == 0 {
		return ""
	}
	return b.Recordings[len(b.Recordings)-1].ID
}

type TranscriptEntry struct {
	Speaker string `json:"speaker"`
	Words   []Word `json:"words"`
}

type Word struct {
	Text           string  `json:"text"`
	StartTimestamp float64 `json:"start_timestamp"`
	EndTimestamp   float64 `json:"end_timestamp"`
}

// ToTranscript flattens provider entries into one segment per speaker turn.
func ToTranscript(meetingID int64, recordingID string, entries []TranscriptEntry) *model.Transcript {
	t := &model.Transcript{
		MeetingID:   meetingID,
		RecordingID: recordingID,
		Segments:    make([]model.TranscriptSegment, 0, len(entries)),
	}

	var lines []string
	for _, e := range entries {
		if len(e.Words) == 0 {
			continue
		}
		words := make([]string, 0, len(e.Words))
		for _, w := range e.Words {
			words = append(words, w.Text)
		}
		text := strings.Join(words, " ")
		speaker := e.Speaker
		if speaker == "" {
			speaker = "Unknown"
		}
		t.Segments = append(t.Segments, model.TranscriptSegment{
			Speaker: speaker,
			Text:    text,
			Start:   e.Words[0].StartTimestamp,
			End:     e.Words[len(e.Words)-1].EndTimestamp,
		})
		lines = append(lines, speaker+": "+text)
	}
	t.Text = strings.Join(lines, "\n")
	return t
}
