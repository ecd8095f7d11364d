package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/drafts"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "drafts.db"))
	if err != nil {
		t.Fatalf("failed to create drafts store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestDraftsStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	draft := drafts.Draft{
		ID:            "draft-1",
		ThreadID:      "thread-1",
		UserID:        "user-1",
		Content:       "launch announcement",
		Status:        drafts.StatusPendingApproval,
		ViralityScore: 0.74,
	}
	if err := s.Save(ctx, draft); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Get(ctx, "draft-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Content != draft.Content || got.Status != drafts.StatusPendingApproval {
		t.Fatalf("unexpected draft: %#v", got)
	}
	if got.ViralityScore != 0.74 {
		t.Fatalf("virality score not stored: %f", got.ViralityScore)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not defaulted: %#v", got)
	}
}

func TestDraftsStore_SaveUpsertsStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := drafts.Draft{
		ID:      "draft-lifecycle",
		UserID:  "user-1",
		Content: "the post",
		Status:  drafts.StatusPendingApproval,
	}
	if err := s.Save(ctx, base); err != nil {
		t.Fatalf("initial Save failed: %v", err)
	}

	scheduled := base
	scheduled.Status = drafts.StatusScheduled
	scheduled.ScheduledFor = "Wednesday at 18:00"
	scheduled.PredictedReach = 3300
	scheduled.UpdatedAt = time.Now().UTC().Add(time.Second)
	if err := s.Save(ctx, scheduled); err != nil {
		t.Fatalf("upsert Save failed: %v", err)
	}

	got, err := s.Get(ctx, "draft-lifecycle")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != drafts.StatusScheduled || got.ScheduledFor != "Wednesday at 18:00" {
		t.Fatalf("upsert not applied: %#v", got)
	}

	all, err := s.List(ctx, drafts.ListQuery{UserID: "user-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single draft after upsert, got %d", len(all))
	}
}

func TestDraftsStore_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	seed := []drafts.Draft{
		{ID: "d1", UserID: "user-1", Content: "a", Status: drafts.StatusPublished, UpdatedAt: now},
		{ID: "d2", UserID: "user-1", Content: "b", Status: drafts.StatusRejected, UpdatedAt: now.Add(time.Second)},
		{ID: "d3", UserID: "user-2", Content: "c", Status: drafts.StatusPublished, UpdatedAt: now.Add(2 * time.Second)},
	}
	for _, draft := range seed {
		if err := s.Save(ctx, draft); err != nil {
			t.Fatalf("Save %s failed: %v", draft.ID, err)
		}
	}

	published, err := s.List(ctx, drafts.ListQuery{UserID: "user-1", Status: drafts.StatusPublished})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(published) != 1 || published[0].ID != "d1" {
		t.Fatalf("unexpected filtered result: %#v", published)
	}

	all, err := s.List(ctx, drafts.ListQuery{UserID: "user-1"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 drafts for user-1, got %d", len(all))
	}
	if all[0].ID != "d2" {
		t.Fatalf("expected newest first, got %#v", all)
	}
}

func TestDraftsStore_GetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, drafts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
