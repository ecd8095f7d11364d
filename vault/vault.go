// Package vault is the long-term memory of the content pipeline: small
// free-text notes keyed by user, written by workflow nodes and searched
// back in as research context.
package vault

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("vault: entry not found")

// Entry is one remembered note.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence contract for vault entries. Search matches
// entries against a free-text query and returns the most recent first.
type Store interface {
	Save(ctx context.Context, userID, text string) (Entry, error)
	Search(ctx context.Context, userID, query string, limit int) ([]Entry, error)
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
	Close() error
}
