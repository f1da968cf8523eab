package store

import "basegraph.app/meetrelay/core/db"

// Stores hands out store implementations bound to one connection or
// transaction.
type Stores struct {
	conn db.DBTX
}

func NewStores(conn db.DBTX) *Stores {
	return &Stores{conn: conn}
}

func (s *Stores) Meetings() MeetingStore {
	return &meetingStore{conn: s.conn}
}

func (s *Stores) Bots() BotStore {
	return &botStore{conn: s.conn}
}

func (s *Stores) EventLogs() EventLogStore {
	return &eventLogStore{conn: s.conn}
}

func (s *Stores) Transcripts() TranscriptStore {
	return &transcriptStore{conn: s.conn}
}

func (s *Stores) Artifacts() ArtifactStore {
	return &artifactStore{conn: s.conn}
}

func (s *Stores) StageRuns() StageRunStore {
	return &stageRunStore{conn: s.conn}
}
