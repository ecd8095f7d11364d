// Package sqlite stores vault entries in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/postpilothq/postpilot/vault"
)

//go:embed schema.sql
var schemaSQL string

const defaultLimit = 10

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
		return nil, fmt.Errorf("failed to initialize vault schema: %w", err)
	}
	return s, nil
}

func (s *Store) Save(ctx context.Context, userID, text string) (vault.Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return vault.Entry{}, fmt.Errorf("user_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return vault.Entry{}, fmt.Errorf("text is required")
	}

	now := time.Now().UTC()
	const q = `INSERT INTO vault_entries (user_id, text, created_at) VALUES (?, ?, ?);`
	res, err := s.db.ExecContext(ctx, q, userID, text, now.Format(time.RFC3339Nano))
	if err != nil {
		return vault.Entry{}, fmt.Errorf("failed to save vault entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return vault.Entry{}, fmt.Errorf("failed to read vault entry id: %w", err)
	}
	return vault.Entry{ID: id, UserID: userID, Text: text, CreatedAt: now}, nil
}

func (s *Store) Search(ctx context.Context, userID, query string, limit int) ([]vault.Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if strings.TrimSpace(query) == "" {
		return s.Recent(ctx, userID, limit)
	}

	// Match on any single query term; ranking is recency, not relevance.
	terms := strings.Fields(strings.ToLower(query))
	where := make([]string, 0, len(terms))
	args := []any{userID}
	for _, term := range terms {
		where = append(where, "LOWER(text) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	sqlText := `
SELECT id, user_id, text, created_at
FROM vault_entries
WHERE user_id = ? AND (` + strings.Join(where, " OR ") + `)
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	args = append(args, limit)
	return s.query(ctx, sqlText, args...)
}

func (s *Store) Recent(ctx context.Context, userID string, limit int) ([]vault.Entry, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	const q = `
SELECT id, user_id, text, created_at
FROM vault_entries
WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	return s.query(ctx, q, userID, limit)
}

func (s *Store) query(ctx context.Context, sqlText string, args ...any) ([]vault.Entry, error) {
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vault entries: %w", err)
	}
	defer rows.Close()

	out := []vault.Entry{}
	for rows.Next() {
		var (
			entry        vault.Entry
			createdAtRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Text, &createdAtRaw); err != nil {
			return nil, fmt.Errorf("failed to scan vault row: %w", err)
		}
		createdAt, err := time.Parse(time.RFC3339Nano, createdAtRaw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse vault created_at: %w", err)
		}
		entry.CreatedAt = createdAt.UTC()
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vault rows: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
