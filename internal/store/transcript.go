package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"basegraph.app/meetrelay/core/db"
	"basegraph.app/meetrelay/internal/model"
	"github.com/jackc/pgx/v5"
)

type transcriptStore struct {
	conn db.DBTX
}

func (s *transcriptStore) Get(ctx context.Context, meetingID int64) (*model.Transcript, error) {
	var (
		t        model.Transcript
		segments []byte
	)
	err := s.conn.QueryRow(ctx, `
		SELECT meeting_id, recording_id, text, segments, created_at
		FROM transcripts WHERE meeting_id = $1`, meetingID,
	).Scan(&t.MeetingID, &t.RecordingID, &t.Text, &segments, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(segments, &t.Segments); err != nil {
		return nil, fmt.Errorf("decoding transcript segments: %w", err)
	}
	return &t, nil
}

func (s *transcriptStore) Save(ctx context.Context, t *model.Transcript) error {
	segments, err := json.Marshal(nonNil(t.Segments))
	if err != nil {
		return fmt.Errorf("encoding transcript segments: %w", err)
	}
	_, err = s.conn.Exec(ctx, `
		INSERT INTO transcripts (meeting_id, recording_id, text, segments)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (meeting_id) DO UPDATE SET
			recording_id = EXCLUDED.recording_id,
			text = EXCLUDED.text,
			segments = EXCLUDED.segments`,
		t.MeetingID, t.RecordingID, t.Text, segments)
	return err
}

type artifactStore struct {
	conn db.DBTX
}

func (s *artifactStore) Get(ctx context.Context, meetingID int64) (*model.Artifacts, error) {
	var a model.Artifacts
	var keyPoints, decisions, nextSteps, actionItems []byte
	err := s.conn.QueryRow(ctx, `
		SELECT meeting_id, summary, key_points, decisions, next_steps, action_items, sentiment, model, created_at
		FROM artifacts WHERE meeting_id = $1`, meetingID,
	).Scan(&a.MeetingID, &a.Summary, &keyPoints, &decisions, &nextSteps, &actionItems, &a.Sentiment, &a.Model, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	for _, f := range []struct {
		raw []byte
		dst any
	}{
		{keyPoints, &a.KeyPoints},
		{decisions, &a.Decisions},
		{nextSteps, &a.NextSteps},
		{actionItems, &a.ActionItems},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("decoding artifacts: %w", err)
		}
	}
	return &a, nil
}

func (s *artifactStore) Save(ctx context.Context, a *model.Artifacts) error {
	encoded := make([][]byte, 0, 4)
	for _, v := range []any{nonNil(a.KeyPoints), nonNil(a.Decisions), nonNil(a.NextSteps), nonNil(a.ActionItems)} {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding artifacts: %w", err)
		}
		encoded = append(encoded, b)
	}
	_, err := s.conn.Exec(ctx, `
		INSERT INTO artifacts (meeting_id, summary, key_points, decisions, next_steps, action_items, sentiment, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (meeting_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			key_points = EXCLUDED.key_points,
			decisions = EXCLUDED.decisions,
			next_steps = EXCLUDED.next_steps,
			action_items = EXCLUDED.action_items,
			sentiment = EXCLUDED.sentiment,
			model = EXCLUDED.model`,
		a.MeetingID, a.Summary, encoded[0], encoded[1], encoded[2], encoded[3], a.Sentiment, a.Model)
	return err
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
