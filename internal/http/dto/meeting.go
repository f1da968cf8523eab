package dto

import (
	"encoding/json"
	"time"

	"basegraph.app/meetrelay/internal/model"
)

type SubmitRecordingRequest struct {
	RecordingID string `json:"recording_id" binding:"required,max=255"`
}

type StageRunResponse struct {
	ID         int64      `json:"id,string"`
	Stage      string     `json:"stage"`
	Attempt    int32      `json:"attempt"`
	Status     string     `json:"status"`
	Error      *string    `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func ToStageRunResponses(runs []model.StageRun) []StageRunResponse {
	out := make([]StageRunResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, StageRunResponse{
			ID:         r.ID,
			Stage:      string(r.Stage),
			Attempt:    r.Attempt,
			Status:     string(r.Status),
			Error:      r.Error,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
		})
	}
	return out
}

type DomainEventResponse struct {
	ID            string          `json:"id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	CausationID   string          `json:"causation_id"`
}

func ToDomainEventResponses(events []model.DomainEvent) []DomainEventResponse {
	out := make([]DomainEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, DomainEventResponse{
			ID:            e.ID,
			EventType:     e.EventType,
			AggregateID:   e.AggregateID,
			AggregateType: string(e.AggregateType),
			Payload:       e.Payload,
			OccurredAt:    e.OccurredAt,
			CorrelationID: e.CorrelationID,
			CausationID:   e.CausationID,
		})
	}
	return out
}
