package worker

import (
	"context"
	"fmt"

	"basegraph.app/meetrelay/internal/queue"
)

// Mux routes tasks to a handler by task type.
type Mux map[queue.TaskType]TaskHandler

func (m Mux) Handle(ctx context.Context, msg queue.Message) error {
	h, ok := m[msg.TaskType]
	if !ok {
		return Permanent(fmt.Errorf("no handler for task type %q", msg.TaskType))
	}
	return h.Handle(ctx, msg)
}

func (m Mux) Exhausted(ctx context.Context, msg queue.Message, err error) {
	if h, ok := m[msg.TaskType]; ok {
		h.Exhausted(ctx, msg, err)
	}
}
