package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/drafts"
	"github.com/postpilothq/postpilot/predictor"
	"github.com/postpilothq/postpilot/publisher"
	"github.com/postpilothq/postpilot/vault"
)

type fakeVault struct {
	entries []vault.Entry
	saved   []string
}

func (f *fakeVault) Save(_ context.Context, userID, text string) (vault.Entry, error) {
	f.saved = append(f.saved, text)
	return vault.Entry{ID: int64(len(f.saved)), UserID: userID, Text: text, CreatedAt: time.Now()}, nil
}

func (f *fakeVault) Search(_ context.Context, _, _ string, limit int) ([]vault.Entry, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeVault) Recent(_ context.Context, _ string, _ int) ([]vault.Entry, error) {
	return f.entries, nil
}

func (f *fakeVault) Close() error { return nil }

type fakeDrafts struct {
	byID map[string]drafts.Draft
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{byID: map[string]drafts.Draft{}}
}

func (f *fakeDrafts) Save(_ context.Context, draft drafts.Draft) error {
	f.byID[draft.ID] = draft
	return nil
}

func (f *fakeDrafts) Get(_ context.Context, id string) (drafts.Draft, error) {
	draft, ok := f.byID[id]
	if !ok {
		return drafts.Draft{}, drafts.ErrNotFound
	}
	return draft, nil
}

func (f *fakeDrafts) List(_ context.Context, query drafts.ListQuery) ([]drafts.Draft, error) {
	out := []drafts.Draft{}
	for _, draft := range f.byID {
		if query.UserID != "" && draft.UserID != query.UserID {
			continue
		}
		if query.Status != "" && draft.Status != query.Status {
			continue
		}
		out = append(out, draft)
	}
	return out, nil
}

func (f *fakeDrafts) Close() error { return nil }

type fakePredictor struct {
	score float64
	slots []predictor.Slot
	got   predictor.Features
}

func (f *fakePredictor) ScoreVirality(_ context.Context, _ string, features predictor.Features) (float64, error) {
	f.got = features
	return f.score, nil
}

func (f *fakePredictor) RecommendSchedule(_ context.Context, features predictor.Features) ([]predictor.Slot, error) {
	f.got = features
	return f.slots, nil
}

type fakePublisher struct {
	got publisher.Post
}

func (f *fakePublisher) Publish(_ context.Context, post publisher.Post) (publisher.Result, error) {
	f.got = post
	return publisher.Result{Confirmation: "tok-1", Scheduled: post.ScheduleTime != "" && post.ScheduleTime != "now"}, nil
}

func TestSearchVaultTool(t *testing.T) {
	store := &fakeVault{entries: []vault.Entry{
		{Text: "note one"},
		{Text: "note two"},
	}}
	tool := NewSearchVault(store, "user-1")

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query": "notes"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	text, ok := out.(string)
	if !ok {
		t.Fatalf("expected string result, got %T", out)
	}
	if !strings.Contains(text, "note one") || !strings.Contains(text, "note two") {
		t.Fatalf("unexpected result: %q", text)
	}
}

func TestSearchVaultToolEmpty(t *testing.T) {
	tool := NewSearchVault(&fakeVault{}, "user-1")
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query": "anything"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "No relevant info found in vault." {
		t.Fatalf("unexpected empty-vault message: %v", out)
	}
}

func TestStoreInVaultTool(t *testing.T) {
	store := &fakeVault{}
	tool := NewStoreInVault(store, "user-1")

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"content": "remember this"}`)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0] != "remember this" {
		t.Fatalf("content not saved: %#v", store.saved)
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"content": "  "}`)); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestPredictViralityTool(t *testing.T) {
	model := &fakePredictor{score: 0.82}
	tool := NewPredictVirality(model)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"post_content": "the draft"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != 0.82 {
		t.Fatalf("unexpected score: %v", out)
	}
	if model.got.Platform != "Twitter" {
		t.Fatalf("expected default platform, got %q", model.got.Platform)
	}

	out, err = tool.Execute(context.Background(), json.RawMessage(`{"post_content": ""}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != 0.0 {
		t.Fatalf("expected 0.0 for empty content, got %v", out)
	}
}

func TestRecommendScheduleTool(t *testing.T) {
	model := &fakePredictor{slots: []predictor.Slot{{Day: "Wednesday", Hour: 18, PredictedReach: 3300}}}
	tool := NewRecommendSchedule(model)

	out, err := tool.Execute(context.Background(), json.RawMessage(
		`{"platform": "Twitter", "follower_count": 50000, "topic_category": "Technology"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	slots, ok := out.([]predictor.Slot)
	if !ok || len(slots) != 1 {
		t.Fatalf("unexpected result: %#v", out)
	}
	if model.got.FollowerCount != 50000 || model.got.TopicCategory != "Technology" {
		t.Fatalf("features not forwarded: %#v", model.got)
	}
}

func TestPostToPlatformTool(t *testing.T) {
	pub := &fakePublisher{}
	tool := NewPostToPlatform(pub)

	out, err := tool.Execute(context.Background(), json.RawMessage(
		`{"content": "the post", "platform": "Twitter", "schedule_time": "Wednesday at 18:00"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	result, ok := out.(publisher.Result)
	if !ok || result.Confirmation != "tok-1" || !result.Scheduled {
		t.Fatalf("unexpected result: %#v", out)
	}
	if pub.got.ScheduleTime != "Wednesday at 18:00" {
		t.Fatalf("schedule time not forwarded: %#v", pub.got)
	}

	if _, err := tool.Execute(context.Background(), json.RawMessage(`{"content": ""}`)); err == nil {
		t.Fatal("expected error for empty content")
	}
}

func TestSaveDraftToolCreatesAndUpdates(t *testing.T) {
	store := newFakeDrafts()
	tool := NewSaveDraft(store, "user-1", "thread-1")

	out, err := tool.Execute(context.Background(), json.RawMessage(
		`{"content": "first cut", "status": "pending_approval", "virality_score": 0.74}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	id, ok := out.(string)
	if !ok || id == "" {
		t.Fatalf("expected draft id, got %#v", out)
	}
	created := store.byID[id]
	if created.Status != drafts.StatusPendingApproval || created.ThreadID != "thread-1" {
		t.Fatalf("unexpected created draft: %#v", created)
	}

	_, err = tool.Execute(context.Background(), json.RawMessage(
		`{"content": "first cut", "status": "published", "draft_id": "`+id+`"}`))
	if err != nil {
		t.Fatalf("update Execute failed: %v", err)
	}
	updated := store.byID[id]
	if updated.Status != drafts.StatusPublished {
		t.Fatalf("status not updated: %#v", updated)
	}
	if updated.ViralityScore != 0.74 {
		t.Fatalf("expected virality score carried over, got %f", updated.ViralityScore)
	}
	if len(store.byID) != 1 {
		t.Fatalf("expected upsert, got %d drafts", len(store.byID))
	}
}

func TestMonitorSocialTool(t *testing.T) {
	store := newFakeDrafts()
	tool := NewMonitorSocial(store, "user-1")

	out, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if out != "No published posts found yet." {
		t.Fatalf("unexpected empty message: %v", out)
	}

	store.byID["d1"] = drafts.Draft{
		ID: "d1", UserID: "user-1", Content: "launch post",
		Status: drafts.StatusPublished, ViralityScore: 0.8, PredictedReach: 3300,
		UpdatedAt: time.Now().UTC(),
	}
	out, err = tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	text, ok := out.(string)
	if !ok || !strings.Contains(text, "launch post") {
		t.Fatalf("unexpected report: %#v", out)
	}
}

func TestWebSearchToolParsesResults(t *testing.T) {
	page := `
<html><body>
	<div class="result">
		<a class="result__a" href="/l/?uddg=https%3A%2F%2Fexample.com%2Fpost">Example headline</a>
		<div class="result__snippet">A snippet about the topic.</div>
	</div>
</body></html>`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "ai tooling" {
			t.Fatalf("unexpected query: %q", r.URL.Query().Get("q"))
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer ts.Close()

	tool := NewWebSearch(WithSearchEndpoint(ts.URL), WithSearchHTTPClient(ts.Client()))
	out, err := tool.Execute(context.Background(), json.RawMessage(`{"query": "ai tooling"}`))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	resp, ok := out.(*SearchResponse)
	if !ok {
		t.Fatalf("expected *SearchResponse, got %T", out)
	}
	if resp.Count != 1 || resp.Results[0].Title != "Example headline" {
		t.Fatalf("unexpected results: %#v", resp)
	}
	if resp.Results[0].URL != "https://example.com/post" {
		t.Fatalf("redirect url not resolved: %q", resp.Results[0].URL)
	}
	if resp.Results[0].Snippet == "" {
		t.Fatal("expected snippet to be extracted")
	}
}

func TestToolSetHelpers(t *testing.T) {
	set := []Tool{
		NewPostToPlatform(&fakePublisher{}),
		NewMonitorSocial(newFakeDrafts(), "user-1"),
	}
	defs := Definitions(set)
	if len(defs) != 2 || defs[0].Name != "post_to_platform" {
		t.Fatalf("unexpected definitions: %#v", defs)
	}
	if _, ok := ByName(set, "monitor_social"); !ok {
		t.Fatal("expected to find monitor_social")
	}
	if _, ok := ByName(set, "missing"); ok {
		t.Fatal("did not expect to find missing tool")
	}
}
