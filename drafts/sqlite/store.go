// Package sqlite stores drafts in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/postpilothq/postpilot/drafts"
)

//go:embed schema.sql
var schemaSQL string

const defaultLimit = 50

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize drafts schema: %w", err)
	}
	return s, nil
}

func (s *Store) Save(ctx context.Context, draft drafts.Draft) error {
	if draft.ID == "" {
		return fmt.Errorf("draft id is required")
	}
	if draft.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if draft.Status == "" {
		draft.Status = drafts.StatusDraft
	}
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}

	const q = `
INSERT INTO drafts (
  id, thread_id, user_id, content, status, virality_score, scheduled_for, predicted_reach, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  thread_id=excluded.thread_id,
  user_id=excluded.user_id,
  content=excluded.content,
  status=excluded.status,
  virality_score=excluded.virality_score,
  scheduled_for=excluded.scheduled_for,
  predicted_reach=excluded.predicted_reach,
  updated_at=excluded.updated_at;
`
	_, err := s.db.ExecContext(
		ctx,
		q,
		draft.ID,
		draft.ThreadID,
		draft.UserID,
		draft.Content,
		draft.Status,
		draft.ViralityScore,
		draft.ScheduledFor,
		draft.PredictedReach,
		draft.CreatedAt.Format(time.RFC3339Nano),
		draft.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (drafts.Draft, error) {
	if strings.TrimSpace(id) == "" {
		return drafts.Draft{}, fmt.Errorf("draft id is required")
	}

	const q = `
SELECT id, thread_id, user_id, content, status, virality_score, scheduled_for, predicted_reach, created_at, updated_at
FROM drafts
WHERE id = ?;
`
	row := s.db.QueryRowContext(ctx, q, id)
	draft, err := scanDraft(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return drafts.Draft{}, drafts.ErrNotFound
		}
		return drafts.Draft{}, fmt.Errorf("failed to load draft: %w", err)
	}
	return draft, nil
}

func (s *Store) List(ctx context.Context, query drafts.ListQuery) ([]drafts.Draft, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		where []string
		args  []any
	)
	if query.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, query.UserID)
	}
	if query.Status != "" {
		where = append(where, "status = ?")
		args = append(args, query.Status)
	}

	sqlText := `
SELECT id, thread_id, user_id, content, status, virality_score, scheduled_for, predicted_reach, created_at, updated_at
FROM drafts
`
	if len(where) > 0 {
		sqlText += " WHERE " + strings.Join(where, " AND ")
	}
	sqlText += " ORDER BY updated_at DESC LIMIT ?;"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	out := make([]drafts.Draft, 0, limit)
	for rows.Next() {
		draft, err := scanDraft(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan draft row: %w", err)
		}
		out = append(out, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate drafts: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func scanDraft(scan func(...any) error) (drafts.Draft, error) {
	var (
		draft      drafts.Draft
		createdRaw string
		updatedRaw string
	)
	if err := scan(
		&draft.ID,
		&draft.ThreadID,
		&draft.UserID,
		&draft.Content,
		&draft.Status,
		&draft.ViralityScore,
		&draft.ScheduledFor,
		&draft.PredictedReach,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return drafts.Draft{}, err
	}
	created, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return drafts.Draft{}, fmt.Errorf("failed to parse draft created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, updatedRaw)
	if err != nil {
		return drafts.Draft{}, fmt.Errorf("failed to parse draft updated_at: %w", err)
	}
	draft.CreatedAt = created.UTC()
	draft.UpdatedAt = updated.UTC()
	return draft, nil
}
