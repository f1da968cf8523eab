package worker

import (
	"context"

	"basegraph.app/meetrelay/internal/queue"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// TaskHandler executes one task. A nil error acks the message; an error
// requeues it until MaxAttempts, after which Exhausted is called and the
// message goes to the DLQ. Errors wrapped with Permanent skip the retries.
type TaskHandler interface {
	Handle(ctx context.Context, msg queue.Message) error
	Exhausted(ctx context.Context, msg queue.Message, err error)
}
