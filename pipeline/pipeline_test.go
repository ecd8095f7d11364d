package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/drafts"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/state"
)

// memoryStore is an in-memory state.Store for driving the assembled
// graph end to end.
type memoryStore struct {
	mu          sync.Mutex
	threads     map[string]state.ThreadRecord
	checkpoints map[string][]state.CheckpointRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		threads:     map[string]state.ThreadRecord{},
		checkpoints: map[string][]state.CheckpointRecord{},
	}
}

func (m *memoryStore) SaveThread(_ context.Context, thread state.ThreadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[thread.ThreadID] = thread
	return nil
}

func (m *memoryStore) LoadThread(_ context.Context, threadID string) (state.ThreadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.threads[threadID]; ok {
		return rec, nil
	}
	return state.ThreadRecord{}, state.ErrNotFound
}

func (m *memoryStore) ListThreads(_ context.Context, _ state.ListThreadsQuery) ([]state.ThreadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []state.ThreadRecord{}
	for _, rec := range m.threads {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memoryStore) SaveCheckpoint(_ context.Context, checkpoint state.CheckpointRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.checkpoints[checkpoint.ThreadID] {
		if existing.Seq == checkpoint.Seq {
			return state.ErrConflict
		}
	}
	m.checkpoints[checkpoint.ThreadID] = append(m.checkpoints[checkpoint.ThreadID], checkpoint)
	return nil
}

func (m *memoryStore) LoadLatestCheckpoint(_ context.Context, threadID string) (state.CheckpointRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cps := m.checkpoints[threadID]
	if len(cps) == 0 {
		return state.CheckpointRecord{}, state.ErrNotFound
	}
	latest := cps[0]
	for _, cp := range cps[1:] {
		if cp.Seq > latest.Seq {
			latest = cp
		}
	}
	return latest, nil
}

func (m *memoryStore) ListCheckpoints(_ context.Context, threadID string, _ int) ([]state.CheckpointRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]state.CheckpointRecord(nil), m.checkpoints[threadID]...), nil
}

func (m *memoryStore) Close() error { return nil }

// scriptedPipelineBrain answers per node, recognized by the system
// prompt; critic replies come off a queue so scores can change between
// passes.
type scriptedPipelineBrain struct {
	mu           sync.Mutex
	criticQueue  []string
	sentryReply  string
	calls        []brain.Request
	failEngineer bool
}

func (b *scriptedPipelineBrain) Run(_ context.Context, req brain.Request) (brain.Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, req)

	sys := req.SystemPrompt
	switch {
	case strings.Contains(sys, "trend scout"):
		return brain.Reply{Text: "AI agents are the top trend for this brand."}, nil
	case strings.Contains(sys, "content creator"):
		return brain.Reply{Text: "Agents ship while you sleep. #AI"}, nil
	case strings.Contains(sys, "critic"):
		if len(b.criticQueue) == 0 {
			return brain.Reply{Text: "Score: 0.80"}, nil
		}
		reply := b.criticQueue[0]
		b.criticQueue = b.criticQueue[1:]
		return brain.Reply{Text: reply}, nil
	case strings.Contains(sys, "data analyst"):
		return brain.Reply{Text: "Post on Wednesday at 18:00; predicted reach 4200."}, nil
	case strings.Contains(sys, "gatekeeper"):
		return brain.Reply{Text: b.sentryReply}, nil
	case strings.Contains(sys, "growth engineer"):
		if b.failEngineer {
			return brain.Reply{}, errors.New("engineer backend down")
		}
		return brain.Reply{Text: "Published post looks strong; add more video."}, nil
	case strings.Contains(sys, "Guru"):
		return brain.Reply{Text: "Your brand voice is playful and direct."}, nil
	}
	return brain.Reply{}, fmt.Errorf("unexpected request: %q", sys)
}

func newPipelineExecutor(t *testing.T, b Brain) (*graph.Executor, *memoryStore, *fakeDrafts, *fakePublisher) {
	t.Helper()
	cfg, _, d, p := testConfig(&fakeBrain{})
	cfg.Brain = b
	store := newMemoryStore()
	exec, err := New(cfg, graph.WithStore(store))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return exec, store, d, p
}

func TestPipelineSuspendsAtSentry(t *testing.T) {
	b := &scriptedPipelineBrain{
		criticQueue: []string{"Score: 0.40. Needs a sharper hook.", "Score: 0.80"},
		sentryReply: "pending, a human should look at this",
	}
	exec, store, d, _ := newPipelineExecutor(t, b)

	result, err := exec.Start(context.Background(), graph.StartOptions{
		UserID: "user-1",
		Input:  "Create a post about AI agents",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !result.Suspended || result.NextNode != NodeSentry {
		t.Fatalf("result = %+v, want suspension at sentry", result)
	}
	if result.State.RevisionCount != 2 {
		t.Fatalf("RevisionCount = %d, want 2 (one revise loop)", result.State.RevisionCount)
	}
	if result.State.ViralityScore != 0.80 {
		t.Fatalf("ViralityScore = %v", result.State.ViralityScore)
	}
	wantTrace := []string{NodeScout, NodeScripter, NodeCritic, NodeScripter, NodeCritic, NodeAnalyst, NodeSentry}
	if strings.Join(result.NodeTrace, ",") != strings.Join(wantTrace, ",") {
		t.Fatalf("NodeTrace = %v, want %v", result.NodeTrace, wantTrace)
	}

	thread, err := store.LoadThread(context.Background(), result.ThreadID)
	if err != nil {
		t.Fatalf("LoadThread: %v", err)
	}
	if thread.Status != state.StatusSuspended {
		t.Fatalf("thread status = %q", thread.Status)
	}

	saved, err := d.Get(context.Background(), result.ThreadID)
	if err != nil {
		t.Fatalf("pending draft not persisted: %v", err)
	}
	if saved.Status != drafts.StatusPendingApproval {
		t.Fatalf("draft status = %q", saved.Status)
	}
}

func TestPipelineResumeWithApprovalRunsEngineer(t *testing.T) {
	b := &scriptedPipelineBrain{
		criticQueue: []string{"Score: 0.80"},
		sentryReply: "pending",
	}
	exec, _, d, p := newPipelineExecutor(t, b)

	started, err := exec.Start(context.Background(), graph.StartOptions{
		UserID: "user-1",
		Input:  "Create a post about AI agents",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started.Suspended {
		t.Fatalf("expected suspension, got %+v", started)
	}

	resumed, err := exec.Resume(context.Background(), started.ThreadID, graph.Update{
		SentryApproval: graph.Approval(graph.ApprovalApproved),
	})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.Suspended {
		t.Fatalf("resumed thread still suspended: %+v", resumed)
	}
	if resumed.Status != state.StatusCompleted {
		t.Fatalf("status = %q", resumed.Status)
	}
	if resumed.State.SentryApprovalStatus != graph.ApprovalPublished {
		t.Fatalf("SentryApprovalStatus = %q, want published", resumed.State.SentryApprovalStatus)
	}
	if resumed.State.EngineerReport == "" {
		t.Fatalf("EngineerReport empty after approval")
	}
	engineerRuns := 0
	for _, node := range resumed.NodeTrace {
		if node == NodeEngineer {
			engineerRuns++
		}
	}
	if engineerRuns != 1 {
		t.Fatalf("engineer ran %d times, want 1", engineerRuns)
	}
	if len(p.posts) != 1 {
		t.Fatalf("publishes = %d, want 1", len(p.posts))
	}
	saved, _ := d.Get(context.Background(), started.ThreadID)
	if saved.Status != drafts.StatusPublished {
		t.Fatalf("draft status = %q", saved.Status)
	}
}

func TestPipelineResumeWithRejectionRevises(t *testing.T) {
	b := &scriptedPipelineBrain{
		criticQueue: []string{"Score: 0.80", "Score: 0.90"},
		sentryReply: "pending",
	}
	exec, _, _, _ := newPipelineExecutor(t, b)

	started, err := exec.Start(context.Background(), graph.StartOptions{
		UserID: "user-1",
		Input:  "Create a post about AI agents",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	revisionsBefore := started.State.RevisionCount

	resumed, err := exec.Resume(context.Background(), started.ThreadID, graph.Update{
		SentryApproval: graph.Approval(graph.ApprovalRejected),
	})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.State.RevisionCount <= revisionsBefore {
		t.Fatalf("RevisionCount = %d, want > %d after rejection loop",
			resumed.State.RevisionCount, revisionsBefore)
	}
	if len(resumed.NodeTrace) == 0 || resumed.NodeTrace[1] != NodeScripter {
		t.Fatalf("NodeTrace = %v, want sentry then scripter", resumed.NodeTrace)
	}
}

func TestPipelineExhaustedLoopEndsWithLastDraft(t *testing.T) {
	b := &scriptedPipelineBrain{
		criticQueue: []string{
			"Score: 0.10", "Score: 0.20", "Score: 0.30", "Score: 0.40", "Score: 0.50",
		},
	}
	exec, _, _, _ := newPipelineExecutor(t, b)

	result, err := exec.Start(context.Background(), graph.StartOptions{
		UserID: "user-1",
		Input:  "Create a post about AI agents",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.Suspended {
		t.Fatalf("exhausted thread should not suspend: %+v", result)
	}
	if result.Status != state.StatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}
	if result.State.RevisionCount != 4 {
		t.Fatalf("RevisionCount = %d, want 4", result.State.RevisionCount)
	}
	if result.Output == "" {
		t.Fatalf("exhausted thread must surface its last draft")
	}
}

func TestPipelineRoutesQuestionsToGuru(t *testing.T) {
	b := &scriptedPipelineBrain{}
	exec, _, _, _ := newPipelineExecutor(t, b)

	result, err := exec.Start(context.Background(), graph.StartOptions{
		UserID: "user-1",
		Input:  "What is my brand voice?",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if result.Status != state.StatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}
	if len(result.NodeTrace) != 1 || result.NodeTrace[0] != NodeGuru {
		t.Fatalf("NodeTrace = %v, want [guru]", result.NodeTrace)
	}
	if len(result.State.ChatHistory) != 2 {
		t.Fatalf("ChatHistory = %+v, want 2 turns", result.State.ChatHistory)
	}
	last := result.State.ChatHistory[1]
	if last.Speaker != "guru" || last.Text == "" {
		t.Fatalf("final turn = %+v", last)
	}
	if result.Output != last.Text {
		t.Fatalf("Output = %q, want guru answer", result.Output)
	}
}

func TestPipelineInspectIsIdempotent(t *testing.T) {
	b := &scriptedPipelineBrain{
		criticQueue: []string{"Score: 0.80"},
		sentryReply: "pending",
	}
	exec, store, _, _ := newPipelineExecutor(t, b)

	started, err := exec.Start(context.Background(), graph.StartOptions{
		UserID: "user-1",
		Input:  "Create a post about AI agents",
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	before, _ := store.ListCheckpoints(context.Background(), started.ThreadID, 0)
	for i := 0; i < 3; i++ {
		snap, err := exec.Inspect(context.Background(), started.ThreadID)
		if err != nil {
			t.Fatalf("Inspect: %v", err)
		}
		if snap.NextNode != NodeSentry {
			t.Fatalf("NextNode = %q, want sentry", snap.NextNode)
		}
	}
	after, _ := store.ListCheckpoints(context.Background(), started.ThreadID, 0)
	if len(after) != len(before) {
		t.Fatalf("checkpoints grew from %d to %d on inspect", len(before), len(after))
	}
}

func TestBuildRejectsMissingCollaborators(t *testing.T) {
	if _, err := Build(Config{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}
