package store

import (
	"context"
	"errors"

	"basegraph.app/meetrelay/core/db"
	"basegraph.app/meetrelay/internal/model"
	"github.com/jackc/pgx/v5"
)

type botStore struct {
	conn db.DBTX
}

func (s *botStore) Get(ctx context.Context, id string) (*model.Bot, error) {
	var bot model.Bot
	err := s.conn.QueryRow(ctx, `
		SELECT id, current_status, media_chunks, created_at, updated_at
		FROM bots WHERE id = $1`, id,
	).Scan(&bot.ID, &bot.CurrentStatus, &bot.MediaChunks, &bot.CreatedAt, &bot.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rows, err := s.conn.Query(ctx, `
		SELECT code, sub_code, message, occurred_at
		FROM bot_status_changes WHERE bot_id = $1
		ORDER BY occurred_at, id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bot.StatusHistory = make([]model.StatusChange, 0)
	for rows.Next() {
		var (
			c       model.StatusChange
			subCode string
		)
		if err := rows.Scan(&c.Code, &subCode, &c.Message, &c.OccurredAt); err != nil {
			return nil, err
		}
		if subCode != "" {
			c.SubCode = &subCode
		}
		bot.StatusHistory = append(bot.StatusHistory, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &bot, nil
}

func (s *botStore) AppendStatus(ctx context.Context, botID string, change model.StatusChange) (bool, error) {
	if err := s.ensure(ctx, botID); err != nil {
		return false, err
	}

	subCode := ""
	if change.SubCode != nil {
		subCode = *change.SubCode
	}

	var id string
	err := s.conn.QueryRow(ctx, `
		WITH appended AS (
			INSERT INTO bot_status_changes (bot_id, code, sub_code, message, occurred_at)
			SELECT b.id, $2, $3, $4, $5 FROM bots b
			WHERE b.id = $1 AND b.current_status NOT IN ('done', 'fatal')
			ON CONFLICT (bot_id, code, sub_code, occurred_at) DO NOTHING
			RETURNING bot_id
		)
		UPDATE bots SET current_status = $2, updated_at = now()
		WHERE id = $1 AND EXISTS (SELECT 1 FROM appended)
		RETURNING id`,
		botID, change.Code, subCode, change.Message, change.OccurredAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *botStore) RecordMediaChunk(ctx context.Context, botID string, kind string) error {
	if err := s.ensure(ctx, botID); err != nil {
		return err
	}
	_, err := s.conn.Exec(ctx, `
		UPDATE bots SET
			media_chunks = jsonb_set(media_chunks, ARRAY[$2::text],
				to_jsonb(COALESCE((media_chunks ->> $2::text)::int, 0) + 1)),
			updated_at = now()
		WHERE id = $1`, botID, kind)
	return err
}

func (s *botStore) ensure(ctx context.Context, botID string) error {
	_, err := s.conn.Exec(ctx, `INSERT INTO bots (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, botID)
	return err
}
