package model

import (
	"fmt"
	"time"
)

const (
	BotStatusDone  = "done"
	BotStatusFatal = "fatal"
)

// StatusChange is one entry of a bot's provider-reported lifecycle.
type StatusChange struct {
	Code       string    `json:"code"`
	SubCode    *string   `json:"sub_code,omitempty"`
	Message    *string   `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Key identifies a status change for idempotent appends.
func (c StatusChange) Key(botID string) string {
	return fmt.Sprintf("%s:%s:%s:%d", botID, c.Code, deref(c.SubCode), c.OccurredAt.UnixNano())
}

// Bot never references its meeting; the meeting holds the bot id and is
// found with MeetingStore.GetByBotID.
type Bot struct {
	ID            string         `json:"id"`
	CurrentStatus string         `json:"current_status"`
	StatusHistory []StatusChange `json:"status_history"`
	MediaChunks   map[string]int `json:"media_chunks,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Terminal is true once the bot reported done or fatal; its history is
// frozen from then on.
func (b Bot) Terminal() bool {
	return b.CurrentStatus == BotStatusDone || b.CurrentStatus == BotStatusFatal
}

// Recorded reports whether change is already in the bot's history. Times
// compare at the store's microsecond precision.
func (b Bot) Recorded(change StatusChange) bool {
	for _, c := range b.StatusHistory {
		if c.Code == change.Code &&
			deref(c.SubCode) == deref(change.SubCode) &&
			c.OccurredAt.Truncate(time.Microsecond).Equal(change.OccurredAt.Truncate(time.Microsecond)) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
