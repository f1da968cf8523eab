package store

import (
	"context"
	"errors"
	"fmt"

	"basegraph.app/meetrelay/core/db"
	"basegraph.app/meetrelay/internal/model"
	"github.com/jackc/pgx/v5"
)

type meetingStore struct {
	conn db.DBTX
}

const meetingColumns = `id, client_id, title, bot_id, recording_id, stage, stage_error,
	transcript_status, artifacts_status, failure_reason, troubleshooting_url, created_at, updated_at`

func (s *meetingStore) GetByID(ctx context.Context, id int64) (*model.Meeting, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
	return scanMeeting(row)
}

func (s *meetingStore) GetByBotID(ctx context.Context, botID string) (*model.Meeting, error) {
	row := s.conn.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE bot_id = $1`, botID)
	return scanMeeting(row)
}

func (s *meetingStore) UpdateStage(ctx context.Context, id int64, stage model.Stage) (*model.Meeting, error) {
	row := s.conn.QueryRow(ctx, `
		UPDATE meetings SET stage = $2, stage_error = NULL, updated_at = now()
		WHERE id = $1 AND stage NOT IN ('completed', 'failed')
		RETURNING `+meetingColumns, id, stage)
	return s.conditional(ctx, id, row)
}

func (s *meetingStore) Complete(ctx context.Context, id int64) (*model.Meeting, error) {
	row := s.conn.QueryRow(ctx, `
		UPDATE meetings SET stage = 'completed', updated_at = now()
		WHERE id = $1 AND transcript_status = 'done' AND stage NOT IN ('completed', 'failed')
		RETURNING `+meetingColumns, id)
	return s.conditional(ctx, id, row)
}

func (s *meetingStore) Fail(ctx context.Context, id int64, f MeetingFailure) (*model.Meeting, error) {
	row := s.conn.QueryRow(ctx, `
		UPDATE meetings SET
			stage = 'failed',
			stage_error = $2,
			failure_reason = COALESCE($3, failure_reason),
			troubleshooting_url = COALESCE($4, troubleshooting_url),
			transcript_status = CASE WHEN $5 THEN 'failed' ELSE transcript_status END,
			updated_at = now()
		WHERE id = $1 AND stage NOT IN ('completed', 'failed')
		RETURNING `+meetingColumns, id, f.StageError, f.FailureReason, f.TroubleshootingURL, f.TranscriptFailed)
	return s.conditional(ctx, id, row)
}

func (s *meetingStore) SetRecordingID(ctx context.Context, id int64, recordingID string) error {
	return s.exec(ctx, `UPDATE meetings SET recording_id = $2, updated_at = now() WHERE id = $1`, id, recordingID)
}

func (s *meetingStore) SetTranscriptStatus(ctx context.Context, id int64, status model.TranscriptStatus) error {
	return s.exec(ctx, `UPDATE meetings SET transcript_status = $2, updated_at = now() WHERE id = $1`, id, status)
}

func (s *meetingStore) SetArtifactsStatus(ctx context.Context, id int64, status model.ArtifactsStatus) error {
	return s.exec(ctx, `UPDATE meetings SET artifacts_status = $2, updated_at = now() WHERE id = $1`, id, status)
}

func (s *meetingStore) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.conn.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// conditional resolves a guarded UPDATE that matched no row into either
// ErrNotFound or ErrStageConflict.
func (s *meetingStore) conditional(ctx context.Context, id int64, row pgx.Row) (*model.Meeting, error) {
	m, err := scanMeeting(row)
	if !errors.Is(err, ErrNotFound) {
		return m, err
	}
	if _, getErr := s.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("meeting %d: %w", id, ErrStageConflict)
}

func scanMeeting(row pgx.Row) (*model.Meeting, error) {
	var m model.Meeting
	err := row.Scan(
		&m.ID, &m.ClientID, &m.Title, &m.BotID, &m.RecordingID, &m.Stage, &m.StageError,
		&m.TranscriptStatus, &m.ArtifactsStatus, &m.FailureReason, &m.TroubleshootingURL,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
