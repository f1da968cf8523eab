package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"basegraph.app/meetrelay/internal/model"
	"github.com/nats-io/nats.go"
)

// NATSBroadcaster publishes each event on "{prefix}.{event_type}", e.g.
// meetrelay.events.meeting.ended, so consumers can subscribe by family with
// wildcards such as "meetrelay.events.meeting.>".
type NATSBroadcaster struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSBroadcaster(url, prefix string, opts ...nats.Option) (*NATSBroadcaster, error) {
	defaults := []nats.Option{
		nats.Name("meetrelay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSBroadcaster{conn: nc, prefix: prefix}, nil
}

func (b *NATSBroadcaster) Subject(eventType string) string {
	return b.prefix + "." + eventType
}

func (b *NATSBroadcaster) Broadcast(_ context.Context, evt model.DomainEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	msg := nats.NewMsg(b.Subject(evt.EventType))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, evt.ID)
	msg.Header.Set("Correlation-Id", evt.CorrelationID)
	return b.conn.PublishMsg(msg)
}

func (b *NATSBroadcaster) Close() error {
	return b.conn.Drain()
}
