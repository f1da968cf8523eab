package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrCancelled = errors.New("meeting processing cancelled")

// Supervisor tracks running stages by meeting so they can be cancelled from
// outside the task that runs them.
type Supervisor struct {
	mu      sync.Mutex
	running map[int64]map[*run]struct{}
}

type run struct {
	cancel context.CancelCauseFunc
}

func NewSupervisor() *Supervisor {
	return &Supervisor{running: make(map[int64]map[*run]struct{})}
}

// Track returns a context that is cancelled with ErrCancelled when Cancel is
// called for meetingID. done must be called when the stage finishes.
func (s *Supervisor) Track(ctx context.Context, meetingID int64) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	r := &run{cancel: cancel}

	s.mu.Lock()
	if s.running[meetingID] == nil {
		s.running[meetingID] = make(map[*run]struct{})
	}
	s.running[meetingID][r] = struct{}{}
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		delete(s.running[meetingID], r)
		if len(s.running[meetingID]) == 0 {
			delete(s.running, meetingID)
		}
		s.mu.Unlock()
		cancel(nil)
	}
}

// Cancel stops every tracked stage of meetingID and reports how many there
// were.
func (s *Supervisor) Cancel(meetingID int64) int {
	s.mu.Lock()
	runs := s.running[meetingID]
	delete(s.running, meetingID)
	s.mu.Unlock()

	for r := range runs {
		r.cancel(ErrCancelled)
	}
	if len(runs) > 0 {
		slog.Info("cancelled running stages", "meeting_id", meetingID, "count", len(runs))
	}
	return len(runs)
}

func (s *Supervisor) Running(meetingID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running[meetingID])
}

// Cancelled reports whether ctx was stopped by Supervisor.Cancel.
func Cancelled(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrCancelled)
}
