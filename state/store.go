package state

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("state: not found")
	ErrConflict = errors.New("state: conflict")
)

// Thread lifecycle statuses as persisted in the store.
const (
	StatusRunning   = "running"
	StatusSuspended = "suspended"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type ListThreadsQuery struct {
	UserID string
	Status string
	Limit  int
	Offset int
}

type Store interface {
	SaveThread(ctx context.Context, thread ThreadRecord) error
	LoadThread(ctx context.Context, threadID string) (ThreadRecord, error)
	ListThreads(ctx context.Context, query ListThreadsQuery) ([]ThreadRecord, error)

	SaveCheckpoint(ctx context.Context, checkpoint CheckpointRecord) error
	LoadLatestCheckpoint(ctx context.Context, threadID string) (CheckpointRecord, error)
	ListCheckpoints(ctx context.Context, threadID string, limit int) ([]CheckpointRecord, error)

	Close() error
}

// Locker is implemented by stores that can serialize concurrent resume
// attempts on one thread. Stores without native locking simply do not
// implement it and callers fall back to external synchronization.
type Locker interface {
	AcquireThreadLock(ctx context.Context, threadID, owner string, ttl time.Duration) (bool, error)
	ReleaseThreadLock(ctx context.Context, threadID, owner string) error
}
