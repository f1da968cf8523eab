package service

import (
	"context"
	"errors"
	"fmt"

	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/store"
)

var ErrMeetingNotFound = errors.New("meeting not found")

const (
	stageRunLimit = 100
	eventLimit    = 500
)

// MeetingCoordinator is the part of the pipeline coordinator the API drives.
type MeetingCoordinator interface {
	SubmitRecording(ctx context.Context, meetingID int64, recordingID string) error
	Cancel(ctx context.Context, meetingID int64) error
}

type MeetingService interface {
	SubmitRecording(ctx context.Context, meetingID int64, recordingID string) error
	CancelProcessing(ctx context.Context, meetingID int64) error
	Stages(ctx context.Context, meetingID int64) ([]model.StageRun, error)
	Events(ctx context.Context, meetingID int64) ([]model.DomainEvent, error)
}

type meetingService struct {
	meetings    store.MeetingStore
	stageRuns   store.StageRunStore
	eventLogs   store.EventLogStore
	coordinator MeetingCoordinator
}

func NewMeetingService(meetings store.MeetingStore, stageRuns store.StageRunStore, eventLogs store.EventLogStore, coordinator MeetingCoordinator) MeetingService {
	return &meetingService{
		meetings:    meetings,
		stageRuns:   stageRuns,
		eventLogs:   eventLogs,
		coordinator: coordinator,
	}
}

func (s *meetingService) SubmitRecording(ctx context.Context, meetingID int64, recordingID string) error {
	return notFound(s.coordinator.SubmitRecording(ctx, meetingID, recordingID))
}

func (s *meetingService) CancelProcessing(ctx context.Context, meetingID int64) error {
	return notFound(s.coordinator.Cancel(ctx, meetingID))
}

func (s *meetingService) Stages(ctx context.Context, meetingID int64) ([]model.StageRun, error) {
	if _, err := s.meetings.GetByID(ctx, meetingID); err != nil {
		return nil, notFound(fmt.Errorf("loading meeting %d: %w", meetingID, err))
	}
	runs, err := s.stageRuns.ListByMeeting(ctx, meetingID, stageRunLimit)
	if err != nil {
		return nil, fmt.Errorf("listing stage runs: %w", err)
	}
	return runs, nil
}

func (s *meetingService) Events(ctx context.Context, meetingID int64) ([]model.DomainEvent, error) {
	if _, err := s.meetings.GetByID(ctx, meetingID); err != nil {
		return nil, notFound(fmt.Errorf("loading meeting %d: %w", meetingID, err))
	}
	evts, err := s.eventLogs.ListByCorrelation(ctx, model.MeetingCorrelationID(meetingID), eventLimit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return evts, nil
}

// notFound adds ErrMeetingNotFound to store.ErrNotFound chains so handlers
// only check one sentinel.
func notFound(err error) error {
	if err != nil && errors.Is(err, store.ErrNotFound) {
		return errors.Join(ErrMeetingNotFound, err)
	}
	return err
}
