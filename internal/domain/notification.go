package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Notification is a parsed provider webhook body.
type Notification struct {
	EnvelopeID   string
	Type         EventType
	BotID        string
	Status       StatusData
	TranscriptID string
	RecordingID  string
	Raw          json.RawMessage
}

// StatusData is the bot status block carried by bot-family events.
type StatusData struct {
	Code       string
	SubCode    *string
	Message    *string
	OccurredAt time.Time
}

type wireNotification struct {
	Event       string `json:"event"`
	EventType   string `json:"event_type"`
	BotID       string `json:"bot_id"`
	RecordingID string `json:"recording_id"`
	Data        struct {
		Bot struct {
			ID string `json:"id"`
		} `json:"bot"`
		Data struct {
			Code      string     `json:"code"`
			SubCode   *string    `json:"sub_code"`
			Message   *string    `json:"message"`
			UpdatedAt *time.Time `json:"updated_at"`
		} `json:"data"`
		Transcript struct {
			ID string `json:"id"`
		} `json:"transcript"`
		Recording struct {
			ID string `json:"id"`
		} `json:"recording"`
	} `json:"data"`
}

// ParseNotification decodes body. Status timestamps fall back to sentAt
// (the signed envelope timestamp) so redeliveries resolve to the same
// status tuple.
func ParseNotification(envelopeID string, body []byte, sentAt time.Time) (Notification, error) {
	var w wireNotification
	if err := json.Unmarshal(body, &w); err != nil {
		return Notification{}, fmt.Errorf("decoding notification: %w", err)
	}

	eventType := w.EventType
	if eventType == "" {
		eventType = w.Event
	}
	if eventType == "" {
		return Notification{}, fmt.Errorf("notification has no event type")
	}

	n := Notification{
		EnvelopeID:   envelopeID,
		Type:         EventType(eventType),
		BotID:        firstNonEmpty(w.Data.Bot.ID, w.BotID),
		TranscriptID: w.Data.Transcript.ID,
		RecordingID:  firstNonEmpty(w.Data.Recording.ID, w.RecordingID),
		Raw:          json.RawMessage(body),
	}

	occurredAt := sentAt
	if w.Data.Data.UpdatedAt != nil {
		occurredAt = *w.Data.Data.UpdatedAt
	}
	code := w.Data.Data.Code
	if status, ok := n.Type.BotStatus(); ok {
		code = status
	}
	subCode := w.Data.Data.SubCode
	if subCode != nil && *subCode == "" {
		subCode = nil
	}
	n.Status = StatusData{
		Code:       code,
		SubCode:    subCode,
		Message:    w.Data.Data.Message,
		OccurredAt: occurredAt.UTC(),
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
