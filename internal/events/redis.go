package events

import (
	"context"
	"encoding/json"
	"fmt"

	"basegraph.app/meetrelay/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisBroadcaster appends events to a capped Redis stream that live
// subscribers tail with XREAD.
type RedisBroadcaster struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisBroadcaster(client *redis.Client, stream string, maxLen int64) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, stream: stream, maxLen: maxLen}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, evt model.DomainEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_type":     evt.EventType,
			"correlation_id": evt.CorrelationID,
			"event":          string(data),
		},
	}).Err()
}

// Close is a no-op; the client is owned by the caller.
func (b *RedisBroadcaster) Close() error {
	return nil
}
