package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"basegraph.app/meetrelay/common/logger"
	"github.com/redis/go-redis/v9"
)

// RedisCancelBus fans meeting cancellations out to every worker over a
// Redis pub/sub channel.
type RedisCancelBus struct {
	client  *redis.Client
	channel string
}

func NewRedisCancelBus(client *redis.Client, channel string) *RedisCancelBus {
	return &RedisCancelBus{client: client, channel: channel}
}

func (b *RedisCancelBus) PublishCancel(ctx context.Context, meetingID int64) error {
	if err := b.client.Publish(ctx, b.channel, strconv.FormatInt(meetingID, 10)).Err(); err != nil {
		return fmt.Errorf("publishing cancel for meeting %d: %w", meetingID, err)
	}
	return nil
}

// Listen cancels supervised stages as cancellations arrive. It blocks until
// ctx is done.
func (b *RedisCancelBus) Listen(ctx context.Context, supervisor *Supervisor) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "meetrelay.pipeline.cancel"})

	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	slog.InfoContext(ctx, "listening for cancellations", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			meetingID, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				slog.WarnContext(ctx, "ignoring malformed cancellation", "payload", msg.Payload)
				continue
			}
			supervisor.Cancel(meetingID)
		}
	}
}
