package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"basegraph.app/meetrelay/common/id"
	"basegraph.app/meetrelay/internal/domain"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/store"
)

const eventVersion = 1

// Broadcaster delivers a published event to live subscribers. Delivery is
// at least once: subscribers dedupe on the event's DedupeKey.
type Broadcaster interface {
	Broadcast(ctx context.Context, evt model.DomainEvent) error
	Close() error
}

type Publisher interface {
	// Publish appends evt to the durable log and broadcasts it. Both are
	// always attempted; the returned error joins whichever failed and is
	// already logged. Replay publishes skip the broadcast when the log
	// already holds the event.
	Publish(ctx context.Context, params PublishParams) (model.DomainEvent, error)
}

type PublishParams struct {
	EventType     domain.DomainEventType
	AggregateID   string
	AggregateType model.AggregateType
	Payload       any
	ActorID       string

	// MeetingID, when set, supplies the default correlation id.
	MeetingID     *int64
	CorrelationID string
	CausationID   string

	// Optional overrides.
	ID         string
	OccurredAt time.Time
	DedupeKey  string

	// Replay marks a publish that may repeat an earlier attempt. The append
	// runs first and the broadcast only follows a new append or a failed one.
	Replay bool
}

type publisher struct {
	log         store.EventLogStore
	broadcaster Broadcaster
	now         func() time.Time
}

func NewPublisher(log store.EventLogStore, broadcaster Broadcaster) Publisher {
	return &publisher{log: log, broadcaster: broadcaster, now: time.Now}
}

func (p *publisher) Publish(ctx context.Context, params PublishParams) (model.DomainEvent, error) {
	evt, err := p.build(params)
	if err != nil {
		return model.DomainEvent{}, err
	}

	var created, skipped bool
	var appendErr, broadcastErr error
	if params.Replay {
		created, appendErr = p.log.Append(ctx, &evt)
		skipped = appendErr == nil && !created
		if !skipped {
			broadcastErr = p.broadcaster.Broadcast(ctx, evt)
		}
	} else {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			created, appendErr = p.log.Append(ctx, &evt)
		}()
		go func() {
			defer wg.Done()
			broadcastErr = p.broadcaster.Broadcast(ctx, evt)
		}()
		wg.Wait()
	}

	attrs := []any{
		"event_id", evt.ID,
		"event_type", evt.EventType,
		"aggregate_type", evt.AggregateType,
		"aggregate_id", evt.AggregateID,
		"correlation_id", evt.CorrelationID,
	}
	if appendErr != nil {
		appendErr = fmt.Errorf("append domain event: %w", appendErr)
		slog.ErrorContext(ctx, "failed to append domain event", append(attrs, "error", appendErr)...)
	} else if !created {
		slog.InfoContext(ctx, "domain event already recorded", append(attrs, "broadcast_skipped", skipped)...)
	}
	if broadcastErr != nil {
		broadcastErr = fmt.Errorf("broadcast domain event: %w", broadcastErr)
		slog.ErrorContext(ctx, "failed to broadcast domain event", append(attrs, "error", broadcastErr)...)
	}
	if appendErr == nil && broadcastErr == nil {
		slog.DebugContext(ctx, "domain event published", attrs...)
	}

	return evt, errors.Join(appendErr, broadcastErr)
}

func (p *publisher) build(params PublishParams) (model.DomainEvent, error) {
	if params.EventType == "" || params.AggregateID == "" || params.AggregateType == "" {
		return model.DomainEvent{}, fmt.Errorf("event type, aggregate id and aggregate type are required")
	}

	payload, err := json.Marshal(params.Payload)
	if err != nil {
		return model.DomainEvent{}, fmt.Errorf("encoding payload for %s: %w", params.EventType, err)
	}

	evt := model.DomainEvent{
		ID:            params.ID,
		EventType:     string(params.EventType),
		AggregateID:   params.AggregateID,
		AggregateType: params.AggregateType,
		Payload:       payload,
		OccurredAt:    params.OccurredAt,
		ActorID:       params.ActorID,
		CorrelationID: params.CorrelationID,
		CausationID:   params.CausationID,
		Version:       eventVersion,
		DedupeKey:     params.DedupeKey,
	}
	if evt.ID == "" {
		evt.ID = id.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = p.now().UTC()
	}
	if evt.CorrelationID == "" {
		evt.CorrelationID = DefaultCorrelationID(params.MeetingID, params.AggregateType, params.AggregateID)
	}
	if evt.DedupeKey == "" {
		evt.DedupeKey = fmt.Sprintf("%s:%s:%s:%s:%s",
			evt.CorrelationID, evt.EventType, evt.AggregateType, evt.AggregateID, evt.CausationID)
	}
	return evt, nil
}

// DefaultCorrelationID groups events under their meeting when one is known,
// otherwise under their own aggregate.
func DefaultCorrelationID(meetingID *int64, aggregateType model.AggregateType, aggregateID string) string {
	if meetingID != nil {
		return model.MeetingCorrelationID(*meetingID)
	}
	return fmt.Sprintf("%s_%s", aggregateType, aggregateID)
}
