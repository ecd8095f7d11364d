package state

import "time"

type ThreadRecord struct {
	ThreadID    string         `json:"threadId"`
	UserID      string         `json:"userId"`
	Status      string         `json:"status"`
	Input       string         `json:"input"`
	Output      string         `json:"output"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// CheckpointRecord is one version of a thread's durable snapshot. Seq is
// the checkpoint version: each successful node execution writes the next
// Seq, and resume always drives from the highest one.
type CheckpointRecord struct {
	ThreadID  string         `json:"threadId"`
	Seq       int            `json:"seq"`
	NodeID    string         `json:"nodeId"`
	State     map[string]any `json:"state,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
