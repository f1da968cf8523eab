package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"basegraph.app/meetrelay/internal/recall"
)

var ErrUnknownRecordingAction = errors.New("unknown recording action")

type RecordingAction string

const (
	RecordingStart  RecordingAction = "start"
	RecordingStop   RecordingAction = "stop"
	RecordingPause  RecordingAction = "pause"
	RecordingResume RecordingAction = "resume"
)

// RecordingController is the write side of the provider client.
type RecordingController interface {
	StartRecording(ctx context.Context, botID string) error
	StopRecording(ctx context.Context, botID string) error
	PauseRecording(ctx context.Context, botID string) error
	ResumeRecording(ctx context.Context, botID string) error
}

type RecordingService interface {
	Control(ctx context.Context, botID string, action RecordingAction) error
}

type recordingService struct {
	provider RecordingController
}

func NewRecordingService(provider RecordingController) RecordingService {
	return &recordingService{provider: provider}
}

func (s *recordingService) Control(ctx context.Context, botID string, action RecordingAction) error {
	var fn func(context.Context, string) error
	switch action {
	case RecordingStart:
		fn = s.provider.StartRecording
	case RecordingStop:
		fn = s.provider.StopRecording
	case RecordingPause:
		fn = s.provider.PauseRecording
	case RecordingResume:
		fn = s.provider.ResumeRecording
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRecordingAction, action)
	}

	if err := fn(ctx, botID); err != nil {
		if errors.Is(err, recall.ErrNotFound) {
			return fmt.Errorf("bot %s: %w", botID, ErrBotNotFound)
		}
		return fmt.Errorf("%s recording for bot %s: %w", action, botID, err)
	}
	slog.InfoContext(ctx, "recording control sent", "bot_id", botID, "action", action)
	return nil
}
