package model

import (
	"encoding/json"
	"fmt"
	"time"
)

type AggregateType string

const (
	AggregateMeeting    AggregateType = "meeting"
	AggregateBot        AggregateType = "bot"
	AggregateTranscript AggregateType = "transcript"
)

// DomainEvent is immutable once published.
type DomainEvent struct {
	ID            string          `json:"id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	ActorID       string          `json:"actor_id"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   string          `json:"causation_id"`
	Version       int             `json:"version"`
	DedupeKey     string          `json:"-"`
}

func MeetingCorrelationID(meetingID int64) string {
	return fmt.Sprintf("meeting_%d", meetingID)
}

func BotCausationID(botID string) string {
	return "bot_" + botID
}

func TranscriptCausationID(transcriptID string) string {
	return "transcript_" + transcriptID
}
