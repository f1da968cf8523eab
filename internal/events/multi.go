package events

import (
	"context"
	"errors"

	"basegraph.app/meetrelay/internal/model"
)

// Multi broadcasts to every wrapped broadcaster, continuing past failures.
type Multi []Broadcaster

func (m Multi) Broadcast(ctx context.Context, evt model.DomainEvent) error {
	var errs []error
	for _, b := range m {
		if err := b.Broadcast(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, b := range m {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
