package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/observe"
	"github.com/postpilothq/postpilot/state"
	"github.com/postpilothq/postpilot/types"
)

const resumeLockTTL = 30 * time.Second

// Executor drives a compiled graph: it executes the current node, merges
// the node's update, evaluates the transition, persists a checkpoint,
// and repeats until the thread terminates or parks on a suspend point.
// The checkpoint store is the only source of truth across a suspend; a
// crash between node execution and checkpoint write is recovered as
// "node did not run".
type Executor struct {
	graph    *Graph
	store    state.Store
	observer observe.Sink
}

type ExecutorOption func(*Executor)

func WithStore(store state.Store) ExecutorOption {
	return func(e *Executor) { e.store = store }
}

func WithObserver(observer observe.Sink) ExecutorOption {
	return func(e *Executor) { e.observer = observer }
}

func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if err := graph.Compile(); err != nil {
		return nil, err
	}
	executor := &Executor{graph: graph}
	for _, opt := range opts {
		opt(executor)
	}
	return executor, nil
}

// StartOptions seeds a new thread. ThreadID is optional; a fresh id is
// assigned when empty.
type StartOptions struct {
	ThreadID      string
	UserID        string
	Input         string
	ModelTier     string
	FollowerCount int
}

// Result reports where a drive call left the thread.
type Result struct {
	ThreadID    string     `json:"threadId"`
	Status      string     `json:"status"`
	Suspended   bool       `json:"suspended"`
	NextNode    string     `json:"nextNode,omitempty"`
	Output      string     `json:"output,omitempty"`
	State       State      `json:"state"`
	NodeTrace   []string   `json:"nodeTrace,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Snapshot is the read-only view of a parked or finished thread.
type Snapshot struct {
	ThreadID string `json:"threadId"`
	Status   string `json:"status"`
	NextNode string `json:"nextNode,omitempty"`
	State    State  `json:"state"`
}

// Start creates a thread, dispatches it through the entry router, and
// drives it until it terminates or suspends.
func (e *Executor) Start(ctx context.Context, opts StartOptions) (Result, error) {
	if e == nil || e.graph == nil {
		return Result{}, fmt.Errorf("executor is not initialized")
	}
	now := time.Now().UTC()
	threadID := opts.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	st := newState(threadID, opts.UserID, opts.Input, opts.ModelTier, now)
	st.FollowerCount = opts.FollowerCount

	first := e.graph.entry.route(st)
	if _, ok := e.graph.nodes[first]; !ok {
		return Result{}, fmt.Errorf("entry router selected unknown node %q", first)
	}

	e.emitRuntimeEvent(ctx, types.Event{
		Type:      types.EventThreadStarted,
		Timestamp: now,
		ThreadID:  threadID,
		UserID:    opts.UserID,
		Message:   "thread started",
	})
	return e.drive(ctx, st, first, 1)
}

// Resume loads the thread's latest checkpoint, merges the caller's delta
// into it, persists the merged snapshot as a new checkpoint version, and
// re-enters the drive loop at the pending node. The delta is written
// before any node runs so routing never sees stale state.
func (e *Executor) Resume(ctx context.Context, threadID string, delta Update) (Result, error) {
	if e == nil || e.graph == nil {
		return Result{}, fmt.Errorf("executor is not initialized")
	}
	if threadID == "" {
		return Result{}, fmt.Errorf("threadID is required")
	}
	if e.store == nil {
		return Result{}, fmt.Errorf("state store is required for resume")
	}

	if locker, ok := e.store.(state.Locker); ok {
		owner := uuid.NewString()
		acquired, err := locker.AcquireThreadLock(ctx, threadID, owner, resumeLockTTL)
		if err != nil {
			return Result{}, fmt.Errorf("failed to acquire resume lock: %w", err)
		}
		if !acquired {
			return Result{}, fmt.Errorf("thread %q is already being resumed: %w", threadID, state.ErrConflict)
		}
		defer func() { _ = locker.ReleaseThreadLock(context.WithoutCancel(ctx), threadID, owner) }()
	}

	thread, err := e.store.LoadThread(ctx, threadID)
	if err != nil {
		return Result{}, err
	}

	checkpoint, err := e.store.LoadLatestCheckpoint(ctx, threadID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) && thread.Status == state.StatusCompleted {
			return Result{
				ThreadID:    threadID,
				Status:      thread.Status,
				Output:      thread.Output,
				StartedAt:   thread.CreatedAt,
				CompletedAt: thread.CompletedAt,
			}, nil
		}
		return Result{}, err
	}

	st, nextNodeID, err := restoreStateFromCheckpoint(checkpoint.State)
	if err != nil {
		return Result{}, err
	}
	if st.ThreadID == "" {
		st.ThreadID = threadID
	}
	st.UpdatedAt = time.Now().UTC()

	seq := checkpoint.Seq + 1
	if !delta.IsZero() {
		delta.apply(&st)
		if err := e.persistCheckpoint(ctx, st, seq, checkpoint.NodeID, nextNodeID); err != nil {
			return Result{}, err
		}
		seq++
	}

	if nextNodeID == "" || nextNodeID == End {
		completedAt := time.Now().UTC()
		output := st.FinalOutput()
		if err := e.persistThread(ctx, st, state.StatusCompleted, output, nil, &completedAt); err != nil {
			return Result{}, err
		}
		return Result{
			ThreadID:    threadID,
			Status:      state.StatusCompleted,
			Output:      output,
			State:       st,
			StartedAt:   &st.StartedAt,
			CompletedAt: &completedAt,
		}, nil
	}

	e.emitRuntimeEvent(ctx, types.Event{
		Type:      types.EventThreadResumed,
		Timestamp: time.Now().UTC(),
		ThreadID:  threadID,
		UserID:    st.UserID,
		NodeID:    nextNodeID,
		Message:   "thread resumed",
	})
	return e.drive(ctx, st, nextNodeID, seq)
}

// Inspect returns the thread's current snapshot without mutating it.
func (e *Executor) Inspect(ctx context.Context, threadID string) (Snapshot, error) {
	if e == nil {
		return Snapshot{}, fmt.Errorf("executor is not initialized")
	}
	if threadID == "" {
		return Snapshot{}, fmt.Errorf("threadID is required")
	}
	if e.store == nil {
		return Snapshot{}, fmt.Errorf("state store is required for inspect")
	}

	thread, err := e.store.LoadThread(ctx, threadID)
	if err != nil {
		return Snapshot{}, err
	}
	checkpoint, err := e.store.LoadLatestCheckpoint(ctx, threadID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return Snapshot{ThreadID: threadID, Status: thread.Status}, nil
		}
		return Snapshot{}, err
	}
	st, nextNodeID, err := restoreStateFromCheckpoint(checkpoint.State)
	if err != nil {
		return Snapshot{}, err
	}
	if nextNodeID == End {
		nextNodeID = ""
	}
	return Snapshot{
		ThreadID: threadID,
		Status:   thread.Status,
		NextNode: nextNodeID,
		State:    st,
	}, nil
}

func (e *Executor) drive(ctx context.Context, st State, startNodeID string, seq int) (Result, error) {
	if startNodeID == "" {
		return Result{}, fmt.Errorf("start node is empty")
	}
	if err := e.persistThread(ctx, st, state.StatusRunning, "", nil, nil); err != nil {
		return Result{}, err
	}

	nodeTrace := []string{}
	currentNodeID := startNodeID
	for currentNodeID != End {
		node, ok := e.graph.nodes[currentNodeID]
		if !ok {
			err := fmt.Errorf("node %q does not exist", currentNodeID)
			_ = e.persistFailure(ctx, st, err)
			return Result{}, err
		}

		e.emitRuntimeEvent(ctx, types.Event{
			Type:      types.EventNodeStarted,
			Timestamp: time.Now().UTC(),
			ThreadID:  st.ThreadID,
			UserID:    st.UserID,
			NodeID:    currentNodeID,
		})

		update, err := node.Execute(ctx, st)
		if err != nil {
			_ = e.persistFailure(ctx, st, err)
			return Result{}, fmt.Errorf("node %q failed: %w", currentNodeID, err)
		}

		update.apply(&st)
		st.LastNodeID = currentNodeID
		st.UpdatedAt = time.Now().UTC()
		nodeTrace = append(nodeTrace, currentNodeID)

		if gate := e.graph.suspends[currentNodeID]; gate != nil && gate(st) {
			// Park on the gate itself: resuming re-enters the same node
			// with the externally supplied decision merged in.
			if err := e.persistCheckpoint(ctx, st, seq, currentNodeID, currentNodeID); err != nil {
				_ = e.persistFailure(ctx, st, err)
				return Result{}, err
			}
			if err := e.persistThread(ctx, st, state.StatusSuspended, "", nil, nil); err != nil {
				return Result{}, err
			}
			e.emitRuntimeEvent(ctx, types.Event{
				Type:      types.EventThreadSuspended,
				Timestamp: time.Now().UTC(),
				ThreadID:  st.ThreadID,
				UserID:    st.UserID,
				NodeID:    currentNodeID,
				Message:   "awaiting external decision",
			})
			return Result{
				ThreadID:  st.ThreadID,
				Status:    state.StatusSuspended,
				Suspended: true,
				NextNode:  currentNodeID,
				State:     st,
				NodeTrace: nodeTrace,
				StartedAt: &st.StartedAt,
			}, nil
		}

		nextNodeID := e.graph.nextNode(currentNodeID, st)
		if err := e.persistCheckpoint(ctx, st, seq, currentNodeID, nextNodeID); err != nil {
			_ = e.persistFailure(ctx, st, err)
			return Result{}, err
		}
		seq++

		e.emitRuntimeEvent(ctx, types.Event{
			Type:      types.EventNodeCompleted,
			Timestamp: time.Now().UTC(),
			ThreadID:  st.ThreadID,
			UserID:    st.UserID,
			NodeID:    currentNodeID,
		})

		if err := e.persistThread(ctx, st, state.StatusRunning, "", nil, nil); err != nil {
			return Result{}, err
		}
		currentNodeID = nextNodeID
	}

	completedAt := time.Now().UTC()
	output := st.FinalOutput()
	if err := e.persistThread(ctx, st, state.StatusCompleted, output, nil, &completedAt); err != nil {
		return Result{}, err
	}
	e.emitRuntimeEvent(ctx, types.Event{
		Type:      types.EventThreadCompleted,
		Timestamp: completedAt,
		ThreadID:  st.ThreadID,
		UserID:    st.UserID,
		Message:   "thread completed",
	})

	return Result{
		ThreadID:    st.ThreadID,
		Status:      state.StatusCompleted,
		Output:      output,
		State:       st,
		NodeTrace:   nodeTrace,
		StartedAt:   &st.StartedAt,
		CompletedAt: &completedAt,
	}, nil
}

func (e *Executor) persistCheckpoint(ctx context.Context, st State, seq int, nodeID, nextNodeID string) error {
	if e.store == nil {
		return nil
	}
	snapshot, err := st.snapshot(nextNodeID)
	if err != nil {
		return err
	}
	err = e.store.SaveCheckpoint(ctx, state.CheckpointRecord{
		ThreadID:  st.ThreadID,
		Seq:       seq,
		NodeID:    nodeID,
		State:     snapshot,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, state.ErrConflict) {
		return err
	}
	if err == nil {
		_ = e.emitObserverEvent(ctx, observe.Event{
			ThreadID: st.ThreadID,
			UserID:   st.UserID,
			Kind:     observe.KindCheckpoint,
			Status:   observe.StatusCompleted,
			Name:     nodeID,
			Attributes: map[string]any{
				"seq":        seq,
				"nextNodeId": nextNodeID,
			},
		})
	}
	return nil
}

func (e *Executor) persistFailure(ctx context.Context, st State, runErr error) error {
	completedAt := time.Now().UTC()
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	e.emitRuntimeEvent(ctx, types.Event{
		Type:      types.EventThreadFailed,
		Timestamp: completedAt,
		ThreadID:  st.ThreadID,
		UserID:    st.UserID,
		Error:     errText,
		Message:   "thread failed",
	})
	return e.persistThread(ctx, st, state.StatusFailed, "", &errText, &completedAt)
}

func (e *Executor) persistThread(
	ctx context.Context,
	st State,
	status string,
	output string,
	errText *string,
	completedAt *time.Time,
) error {
	if e.store == nil {
		return nil
	}

	now := time.Now().UTC()
	metadata := map[string]any{
		"graph":      e.graph.Name(),
		"lastNodeId": st.LastNodeID,
		"modelTier":  st.ModelTier,
	}
	errValue := ""
	if errText != nil {
		errValue = *errText
	}

	createdAt := st.StartedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := st.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	if completedAt != nil {
		updatedAt = *completedAt
	}

	return e.store.SaveThread(ctx, state.ThreadRecord{
		ThreadID:    st.ThreadID,
		UserID:      st.UserID,
		Status:      status,
		Input:       st.Input,
		Output:      output,
		Metadata:    metadata,
		Error:       errValue,
		CreatedAt:   &createdAt,
		UpdatedAt:   &updatedAt,
		CompletedAt: completedAt,
	})
}

func (e *Executor) emitRuntimeEvent(ctx context.Context, event types.Event) {
	if e == nil || e.observer == nil {
		return
	}
	_ = e.observer.Emit(ctx, observe.FromRuntimeEvent(event))
}

func (e *Executor) emitObserverEvent(ctx context.Context, event observe.Event) error {
	if e == nil || e.observer == nil {
		return nil
	}
	return e.observer.Emit(ctx, event)
}
