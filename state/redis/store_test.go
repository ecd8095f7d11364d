package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/state"
)

func newTestRedisStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	prefix := "postpilot-test-" + uuid.NewString()

	s, err := New(addr, WithPrefix(prefix), WithTTL(5*time.Minute))
	if err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		keys, _ := s.client.Keys(ctx, prefix+":*").Result()
		if len(keys) > 0 {
			_ = s.client.Del(ctx, keys...).Err()
		}
		_ = s.Close()
	})
	return s
}

func TestRedisStore_SaveLoadThreadAndTTL(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	thread := state.ThreadRecord{
		ThreadID:  "thread-1",
		UserID:    "user-1",
		Status:    state.StatusRunning,
		Input:     "hello",
		Metadata:  map[string]any{"m": "v"},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if err := s.SaveThread(ctx, thread); err != nil {
		t.Fatalf("SaveThread failed: %v", err)
	}

	got, err := s.LoadThread(ctx, "thread-1")
	if err != nil {
		t.Fatalf("LoadThread failed: %v", err)
	}
	if got.ThreadID != "thread-1" || got.UserID != "user-1" {
		t.Fatalf("unexpected thread: %#v", got)
	}

	threads, err := s.ListThreads(ctx, state.ListThreadsQuery{UserID: "user-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}

	ttl, err := s.client.TTL(ctx, s.threadKey("thread-1")).Result()
	if err != nil {
		t.Fatalf("failed to read thread ttl: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("expected ttl > 0, got %v", ttl)
	}
}

func TestRedisStore_SaveCheckpointAndLatest(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	cp1 := state.CheckpointRecord{
		ThreadID:  "thread-ckpt",
		Seq:       1,
		NodeID:    "scout",
		State:     map[string]any{"draft": ""},
		CreatedAt: time.Now().UTC(),
	}
	cp2 := state.CheckpointRecord{
		ThreadID:  "thread-ckpt",
		Seq:       2,
		NodeID:    "scripter",
		State:     map[string]any{"draft": "v1"},
		CreatedAt: time.Now().UTC().Add(time.Second),
	}
	if err := s.SaveCheckpoint(ctx, cp1); err != nil {
		t.Fatalf("SaveCheckpoint 1 failed: %v", err)
	}
	if err := s.SaveCheckpoint(ctx, cp2); err != nil {
		t.Fatalf("SaveCheckpoint 2 failed: %v", err)
	}
	if err := s.SaveCheckpoint(ctx, cp2); !errors.Is(err, state.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate seq, got %v", err)
	}

	latest, err := s.LoadLatestCheckpoint(ctx, "thread-ckpt")
	if err != nil {
		t.Fatalf("LoadLatestCheckpoint failed: %v", err)
	}
	if latest.Seq != 2 {
		t.Fatalf("expected latest seq=2, got %d", latest.Seq)
	}

	list, err := s.ListCheckpoints(ctx, "thread-ckpt", 10)
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(list))
	}
	if list[0].Seq != 2 {
		t.Fatalf("expected descending sequence order, got %#v", list)
	}
}

func TestRedisStore_PrunesStaleUserIndexEntries(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	thread := state.ThreadRecord{
		ThreadID:  "thread-stale",
		UserID:    "user-stale",
		Status:    state.StatusRunning,
		Input:     "hello",
		Metadata:  map[string]any{},
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	if err := s.SaveThread(ctx, thread); err != nil {
		t.Fatalf("SaveThread failed: %v", err)
	}

	if err := s.client.Del(ctx, s.threadKey("thread-stale")).Err(); err != nil {
		t.Fatalf("failed to delete thread key: %v", err)
	}

	threads, err := s.ListThreads(ctx, state.ListThreadsQuery{UserID: "user-stale", Limit: 10})
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	if len(threads) != 0 {
		t.Fatalf("expected 0 threads after stale key prune, got %d", len(threads))
	}

	score, err := s.client.ZScore(ctx, s.userIndexKey("user-stale"), "thread-stale").Result()
	if err == nil {
		t.Fatalf("expected stale thread index removed, found zscore=%f", score)
	}
}

func TestRedisStore_LockHelpers(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()
	threadID := "thread-lock-" + uuid.NewString()

	got, err := s.AcquireThreadLock(ctx, threadID, "owner-1", 5*time.Second)
	if err != nil {
		t.Fatalf("AcquireThreadLock 1 failed: %v", err)
	}
	if !got {
		t.Fatalf("expected first lock acquisition to succeed")
	}
	got, err = s.AcquireThreadLock(ctx, threadID, "owner-2", 5*time.Second)
	if err != nil {
		t.Fatalf("AcquireThreadLock 2 failed: %v", err)
	}
	if got {
		t.Fatalf("expected second lock acquisition to fail")
	}

	if err := s.ReleaseThreadLock(ctx, threadID, "owner-2"); err != nil {
		t.Fatalf("ReleaseThreadLock with wrong owner should not error: %v", err)
	}
	got, err = s.AcquireThreadLock(ctx, threadID, "owner-3", 5*time.Second)
	if err != nil {
		t.Fatalf("AcquireThreadLock 3 failed: %v", err)
	}
	if got {
		t.Fatalf("expected lock to remain held after wrong owner release")
	}

	if err := s.ReleaseThreadLock(ctx, threadID, "owner-1"); err != nil {
		t.Fatalf("ReleaseThreadLock with right owner failed: %v", err)
	}
	got, err = s.AcquireThreadLock(ctx, threadID, "owner-4", 5*time.Second)
	if err != nil {
		t.Fatalf("AcquireThreadLock 4 failed: %v", err)
	}
	if !got {
		t.Fatalf("expected lock acquisition after release")
	}
	if err := s.ReleaseThreadLock(ctx, threadID, "owner-4"); err != nil {
		t.Fatalf("final release failed: %v", err)
	}
}

func TestRedisStore_NotFound(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	_, err := s.LoadThread(ctx, "missing-"+uuid.NewString())
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing thread, got %v", err)
	}

	_, err = s.LoadLatestCheckpoint(ctx, "missing-"+uuid.NewString())
	if !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing checkpoint, got %v", err)
	}
}
