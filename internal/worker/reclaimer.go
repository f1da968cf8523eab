package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"basegraph.app/meetrelay/common/logger"
	"basegraph.app/meetrelay/internal/queue"
	"github.com/redis/go-redis/v9"
)

type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
}

// RedisReclaimer claims tasks left pending by a worker that died between
// XREADGROUP and XACK and settles them through process.
type RedisReclaimer struct {
	client  *redis.Client
	cfg     RedisReclaimerConfig
	acker   Consumer
	process func(ctx context.Context, msg queue.Message)

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRedisReclaimer(client *redis.Client, cfg RedisReclaimerConfig, acker Consumer, process func(ctx context.Context, msg queue.Message)) *RedisReclaimer {
	return &RedisReclaimer{
		client:    client,
		cfg:       cfg,
		acker:     acker,
		process:   process,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx is done.
func (r *RedisReclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "meetrelay.worker.reclaimer",
	})

	defer close(r.stoppedCh)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"stream", r.cfg.Stream,
		"group", r.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if err := r.reclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

func (r *RedisReclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// reclaimOnce claims every delivery idle longer than MinIdle in one XCLAIM
// and hands each to process. Deliveries that no longer parse go straight to
// the DLQ.
func (r *RedisReclaimer) reclaimOnce(ctx context.Context) error {
	pending, err := r.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: r.cfg.Stream,
		Group:  r.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return fmt.Errorf("xpending: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	deliveries := make(map[string]redis.XPendingExt, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		deliveries[p.ID] = p
		ids = append(ids, p.ID)
	}

	claimed, err := r.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   r.cfg.Stream,
		Group:    r.cfg.Group,
		Consumer: r.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return fmt.Errorf("xclaim: %w", err)
	}

	slog.InfoContext(ctx, "reclaimed stale deliveries", "pending", len(pending), "claimed", len(claimed))

	for _, raw := range claimed {
		r.settle(ctx, raw, deliveries[raw.ID])
	}
	return nil
}

func (r *RedisReclaimer) settle(ctx context.Context, raw redis.XMessage, pending redis.XPendingExt) {
	msgID := raw.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: &msgID})

	msg, err := queue.ParseMessage(raw)
	if err != nil {
		slog.ErrorContext(ctx, "reclaimed delivery is unparseable, moving to dlq",
			"error", err,
			"original_consumer", pending.Consumer)
		poison := queue.Message{ID: raw.ID, Raw: raw}
		if dlqErr := r.acker.SendDLQ(ctx, poison, "unparseable: "+err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to dead-letter reclaimed delivery", "error", dlqErr)
		}
		return
	}

	// A worker that crashed mid-task never bumped the payload's attempt;
	// the stream's delivery count is the better number.
	if delivered := int(pending.RetryCount); delivered > msg.Attempt {
		msg.Attempt = delivered
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{MeetingID: msg.MeetingID})
	slog.InfoContext(ctx, "resuming reclaimed task",
		"task_type", msg.TaskType,
		"attempt", msg.Attempt,
		"original_consumer", pending.Consumer,
		"idle_ms", pending.Idle.Milliseconds())
	r.process(ctx, msg)
}
