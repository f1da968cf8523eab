package store

import (
	"context"
	"errors"

	"basegraph.app/meetrelay/core/db"
	"basegraph.app/meetrelay/internal/model"
	"github.com/jackc/pgx/v5"
)

type eventLogStore struct {
	conn db.DBTX
}

func (s *eventLogStore) Append(ctx context.Context, evt *model.DomainEvent) (bool, error) {
	payload := evt.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	var id string
	err := s.conn.QueryRow(ctx, `
		INSERT INTO domain_events (id, event_type, aggregate_id, aggregate_type, payload,
			occurred_at, actor_id, correlation_id, causation_id, version, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id`,
		evt.ID, evt.EventType, evt.AggregateID, evt.AggregateType, []byte(payload),
		evt.OccurredAt, evt.ActorID, evt.CorrelationID, evt.CausationID, evt.Version, evt.DedupeKey,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *eventLogStore) ListByCorrelation(ctx context.Context, correlationID string, limit int32) ([]model.DomainEvent, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, event_type, aggregate_id, aggregate_type, payload, occurred_at,
			actor_id, correlation_id, causation_id, version, dedupe_key
		FROM domain_events
		WHERE correlation_id = $1
		ORDER BY occurred_at, id
		LIMIT $2`, correlationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.DomainEvent, 0)
	for rows.Next() {
		var (
			e       model.DomainEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.EventType, &e.AggregateID, &e.AggregateType, &payload,
			&e.OccurredAt, &e.ActorID, &e.CorrelationID, &e.CausationID, &e.Version, &e.DedupeKey); err != nil {
			return nil, err
		}
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}
