package pipeline_test

import (
	"context"
	"fmt"
	"sync"

	"basegraph.app/meetrelay/internal/events"
	"basegraph.app/meetrelay/internal/model"
	"basegraph.app/meetrelay/internal/queue"
	"basegraph.app/meetrelay/internal/recall"
	"basegraph.app/meetrelay/internal/store"
)

// memMeetings mirrors the guarded updates of the SQL store.
type memMeetings struct {
	mu       sync.Mutex
	meetings map[int64]*model.Meeting
}

func newMemMeetings(ms ...model.Meeting) *memMeetings {
	s := &memMeetings{meetings: make(map[int64]*model.Meeting)}
	for i := range ms {
		m := ms[i]
		s.meetings[m.ID] = &m
	}
	return s
}

func (s *memMeetings) get(id int64) model.Meeting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.meetings[id]
}

func (s *memMeetings) GetByID(_ context.Context, id int64) (*model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memMeetings) GetByBotID(_ context.Context, botID string) (*model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meetings {
		if m.BotID != nil && *m.BotID == botID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memMeetings) guarded(id int64, extra func(m *model.Meeting) bool, apply func(m *model.Meeting)) (*model.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if m.Stage.Terminal() || (extra != nil && !extra(m)) {
		return nil, fmt.Errorf("meeting %d: %w", id, store.ErrStageConflict)
	}
	apply(m)
	cp := *m
	return &cp, nil
}

func (s *memMeetings) UpdateStage(_ context.Context, id int64, stage model.Stage) (*model.Meeting, error) {
	return s.guarded(id, nil, func(m *model.Meeting) { m.Stage = stage })
}

func (s *memMeetings) Complete(_ context.Context, id int64) (*model.Meeting, error) {
	return s.guarded(id,
		func(m *model.Meeting) bool { return m.TranscriptStatus == model.TranscriptDone },
		func(m *model.Meeting) { m.Stage = model.StageCompleted })
}

func (s *memMeetings) Fail(_ context.Context, id int64, f store.MeetingFailure) (*model.Meeting, error) {
	return s.guarded(id, nil, func(m *model.Meeting) {
		m.Stage = model.StageFailed
		m.StageError = &f.StageError
		if f.FailureReason != nil {
			m.FailureReason = f.FailureReason
		}
		if f.TroubleshootingURL != nil {
			m.TroubleshootingURL = f.TroubleshootingURL
		}
		if f.TranscriptFailed {
			m.TranscriptStatus = model.TranscriptFailed
		}
	})
}

func (s *memMeetings) update(id int64, fn func(m *model.Meeting)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(m)
	return nil
}

func (s *memMeetings) SetRecordingID(_ context.Context, id int64, recordingID string) error {
	return s.update(id, func(m *model.Meeting) { m.RecordingID = &recordingID })
}

func (s *memMeetings) SetTranscriptStatus(_ context.Context, id int64, status model.TranscriptStatus) error {
	return s.update(id, func(m *model.Meeting) { m.TranscriptStatus = status })
}

func (s *memMeetings) SetArtifactsStatus(_ context.Context, id int64, status model.ArtifactsStatus) error {
	return s.update(id, func(m *model.Meeting) { m.ArtifactsStatus = status })
}

type memTranscripts struct {
	mu    sync.Mutex
	byMtg map[int64]*model.Transcript
}

func (s *memTranscripts) Get(_ context.Context, meetingID int64) (*model.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byMtg[meetingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t, nil
}

func (s *memTranscripts) Save(_ context.Context, t *model.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMtg[t.MeetingID] = t
	return nil
}

type memArtifacts struct {
	mu    sync.Mutex
	byMtg map[int64]*model.Artifacts
}

func (s *memArtifacts) Get(_ context.Context, meetingID int64) (*model.Artifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byMtg[meetingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (s *memArtifacts) Save(_ context.Context, a *model.Artifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byMtg[a.MeetingID] = a
	return nil
}

type memStageRuns struct {
	mu   sync.Mutex
	runs []*model.StageRun
}

func (s *memStageRuns) Create(_ context.Context, run *model.StageRun) (*model.StageRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.runs = append(s.runs, &cp)
	return &cp, nil
}

func (s *memStageRuns) Finish(_ context.Context, id int64, status model.StageRunStatus, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.runs {
		if r.ID == id {
			r.Status = status
			r.Error = errMsg
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *memStageRuns) ListByMeeting(_ context.Context, meetingID int64, _ int32) ([]model.StageRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StageRun
	for _, r := range s.runs {
		if r.MeetingID == meetingID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStageRuns) statuses() []model.StageRunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StageRunStatus
	for _, r := range s.runs {
		out = append(out, r.Status)
	}
	return out
}

type memStores struct {
	meetings    *memMeetings
	transcripts *memTranscripts
	artifacts   *memArtifacts
	stageRuns   *memStageRuns
}

func (s *memStores) Meetings() store.MeetingStore { return s.meetings }
func (s *memStores) Transcripts() store.TranscriptStore { return s.transcripts }
func (s *memStores) Artifacts() store.ArtifactStore { return s.artifacts }
func (s *memStores) StageRuns() store.StageRunStore { return s.stageRuns }

type mockProducer struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (m *mockProducer) Enqueue(_ context.Context, task queue.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockProducer) Close() error { return nil }

type mockPublisher struct {
	mu        sync.Mutex
	published []events.PublishParams
}

func (m *mockPublisher) Publish(_ context.Context, p events.PublishParams) (model.DomainEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, p)
	return model.DomainEvent{EventType: string(p.EventType)}, nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, p := range m.published {
		out = append(out, string(p.EventType))
	}
	return out
}

type mockCancels struct {
	published []int64
}

func (m *mockCancels) PublishCancel(_ context.Context, meetingID int64) error {
	m.published = append(m.published, meetingID)
	return nil
}

type mockSource struct {
	getBotFn        func(ctx context.Context, botID string) (*recall.Bot, error)
	getTranscriptFn func(ctx context.Context, recordingID string) ([]recall.TranscriptEntry, error)
	transcriptCalls int
}

func (m *mockSource) GetBot(ctx context.Context, botID string) (*recall.Bot, error) {
	if m.getBotFn != nil {
		return m.getBotFn(ctx, botID)
	}
	return &recall.Bot{ID: botID}, nil
}

func (m *mockSource) GetTranscript(ctx context.Context, recordingID string) ([]recall.TranscriptEntry, error) {
	m.transcriptCalls++
	if m.getTranscriptFn != nil {
		return m.getTranscriptFn(ctx, recordingID)
	}
	return []recall.TranscriptEntry{
		{Speaker: "Ana", Words: []recall.Word{{Text: "ship", StartTimestamp: 0, EndTimestamp: 0.5}, {Text: "it", StartTimestamp: 0.6, EndTimestamp: 0.8}}},
	}, nil
}

type mockExtractor struct {
	extractFn func(ctx context.Context, meeting *model.Meeting, t *model.Transcript) (*model.Artifacts, error)
}

func (m *mockExtractor) Extract(ctx context.Context, meeting *model.Meeting, t *model.Transcript) (*model.Artifacts, error) {
	if m.extractFn != nil {
		return m.extractFn(ctx, meeting, t)
	}
	return &model.Artifacts{MeetingID: meeting.ID, Summary: "shipped", Model: "test"}, nil
}
