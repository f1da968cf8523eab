package service

import (
	"basegraph.app/meetrelay/internal/diagnosis"
	"basegraph.app/meetrelay/internal/pipeline"
	"basegraph.app/meetrelay/internal/recall"
	"basegraph.app/meetrelay/internal/store"
)

type Services struct {
	stores      *store.Stores
	provider    recall.Client
	engine      *diagnosis.Engine
	coordinator *pipeline.Coordinator
}

func NewServices(stores *store.Stores, provider recall.Client, engine *diagnosis.Engine, coordinator *pipeline.Coordinator) *Services {
	return &Services{
		stores:      stores,
		provider:    provider,
		engine:      engine,
		coordinator: coordinator,
	}
}

func (s *Services) Troubleshooting() TroubleshootingService {
	return NewTroubleshootingService(s.provider, s.engine)
}

func (s *Services) Recording() RecordingService {
	return NewRecordingService(s.provider)
}

func (s *Services) Meetings() MeetingService {
	return NewMeetingService(s.stores.Meetings(), s.stores.StageRuns(), s.stores.EventLogs(), s.coordinator)
}
