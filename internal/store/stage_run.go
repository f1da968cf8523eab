package store

import (
	"context"

	"basegraph.app/meetrelay/core/db"
	"basegraph.app/meetrelay/internal/model"
	"github.com/jackc/pgx/v5"
)

type stageRunStore struct {
	conn db.DBTX
}

const stageRunColumns = `id, meeting_id, stage, attempt, status, error, started_at, finished_at`

func (s *stageRunStore) Create(ctx context.Context, run *model.StageRun) (*model.StageRun, error) {
	row := s.conn.QueryRow(ctx, `
		INSERT INTO stage_runs (id, meeting_id, stage, attempt, status, error, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+stageRunColumns,
		run.ID, run.MeetingID, run.Stage, run.Attempt, run.Status, run.Error)
	return scanStageRun(row)
}

func (s *stageRunStore) Finish(ctx context.Context, id int64, status model.StageRunStatus, errMsg *string) error {
	tag, err := s.conn.Exec(ctx, `
		UPDATE stage_runs SET status = $2, error = $3, finished_at = now()
		WHERE id = $1`, id, status, errMsg)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *stageRunStore) ListByMeeting(ctx context.Context, meetingID int64, limit int32) ([]model.StageRun, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+stageRunColumns+` FROM stage_runs
		WHERE meeting_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, meetingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]model.StageRun, 0)
	for rows.Next() {
		run, err := scanStageRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanStageRun(row pgx.Row) (*model.StageRun, error) {
	var run model.StageRun
	if err := row.Scan(&run.ID, &run.MeetingID, &run.Stage, &run.Attempt, &run.Status,
		&run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
		return nil, err
	}
	return &run, nil
}
