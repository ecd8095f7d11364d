// Package drafts persists produced content through its approval
// lifecycle.
package drafts

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("drafts: draft not found")

// Draft statuses, in rough lifecycle order.
const (
	StatusDraft           = "draft"
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
	StatusScheduled       = "scheduled"
	StatusPublished       = "published"
)

// Draft is one piece of produced content and where it stands.
type Draft struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"threadId,omitempty"`
	UserID         string    `json:"userId"`
	Content        string    `json:"content"`
	Status         string    `json:"status"`
	ViralityScore  float64   `json:"viralityScore"`
	ScheduledFor   string    `json:"scheduledFor,omitempty"`
	PredictedReach float64   `json:"predictedReach,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ListQuery filters List results. Zero values mean no filter.
type ListQuery struct {
	UserID string
	Status string
	Limit  int
}

// Store is the persistence contract for drafts. Save upserts by ID so a
// draft moves through statuses in place.
type Store interface {
	Save(ctx context.Context, draft Draft) error
	Get(ctx context.Context, id string) (Draft, error)
	List(ctx context.Context, query ListQuery) ([]Draft, error)
	Close() error
}
