package graph

import (
	"encoding/json"
	"fmt"
	"time"
)

// ApprovalStatus tracks the human-in-the-loop gate for a draft.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApproved  ApprovalStatus = "approved"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalPublished ApprovalStatus = "published"
	ApprovalScheduled ApprovalStatus = "scheduled"
	ApprovalError     ApprovalStatus = "error"
)

// ChatTurn is one entry of the conversational history.
type ChatTurn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// State is the shared record threaded through every node of a workflow
// thread. Nodes read it and return a partial Update; only the executor
// mutates it, by merging updates in node-execution order. Input and
// UserID are fixed at thread creation and have no Update field.
type State struct {
	ThreadID  string `json:"threadId"`
	UserID    string `json:"userId"`
	Input     string `json:"input,omitempty"`
	ModelTier string `json:"modelTier,omitempty"`

	ChatHistory []ChatTurn `json:"chatHistory,omitempty"`

	TrendData       string   `json:"trendData,omitempty"`
	ResearchContext []string `json:"researchContext,omitempty"`
	Draft           string   `json:"draft,omitempty"`
	Critique        string   `json:"critique,omitempty"`
	ViralityScore   float64  `json:"viralityScore"`
	RevisionCount   int      `json:"revisionCount"`
	IsGoodEnough    bool     `json:"isGoodEnough"`

	FollowerCount  int     `json:"followerCount,omitempty"`
	BestTime       string  `json:"bestTime,omitempty"`
	PredictedReach float64 `json:"predictedReach,omitempty"`
	AnalystReport  string  `json:"analystReport,omitempty"`
	EngineerReport string  `json:"engineerReport,omitempty"`

	SentryApprovalStatus ApprovalStatus `json:"sentryApprovalStatus,omitempty"`

	LastNodeID string    `json:"lastNodeId,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Update is the partial state a node returns: only set (non-nil) fields
// are merged. ChatHistory is append-only, so updates carry new turns in
// AppendChat rather than replacing the history.
type Update struct {
	TrendData       *string
	ResearchContext []string
	Draft           *string
	Critique        *string
	ViralityScore   *float64
	RevisionCount   *int
	IsGoodEnough    *bool
	BestTime        *string
	PredictedReach  *float64
	AnalystReport   *string
	EngineerReport  *string
	SentryApproval  *ApprovalStatus
	AppendChat      []ChatTurn
}

func (u Update) apply(s *State) {
	if u.TrendData != nil {
		s.TrendData = *u.TrendData
	}
	if u.ResearchContext != nil {
		s.ResearchContext = append([]string(nil), u.ResearchContext...)
	}
	if u.Draft != nil {
		s.Draft = *u.Draft
	}
	if u.Critique != nil {
		s.Critique = *u.Critique
	}
	if u.ViralityScore != nil {
		s.ViralityScore = *u.ViralityScore
	}
	if u.RevisionCount != nil {
		s.RevisionCount = *u.RevisionCount
	}
	if u.IsGoodEnough != nil {
		s.IsGoodEnough = *u.IsGoodEnough
	}
	if u.BestTime != nil {
		s.BestTime = *u.BestTime
	}
	if u.PredictedReach != nil {
		s.PredictedReach = *u.PredictedReach
	}
	if u.AnalystReport != nil {
		s.AnalystReport = *u.AnalystReport
	}
	if u.EngineerReport != nil {
		s.EngineerReport = *u.EngineerReport
	}
	if u.SentryApproval != nil {
		s.SentryApprovalStatus = *u.SentryApproval
	}
	if len(u.AppendChat) > 0 {
		s.ChatHistory = append(s.ChatHistory, u.AppendChat...)
	}
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return u.TrendData == nil && u.ResearchContext == nil && u.Draft == nil &&
		u.Critique == nil && u.ViralityScore == nil && u.RevisionCount == nil &&
		u.IsGoodEnough == nil && u.BestTime == nil && u.PredictedReach == nil &&
		u.AnalystReport == nil && u.EngineerReport == nil && u.SentryApproval == nil &&
		len(u.AppendChat) == 0
}

// Pointer helpers for building updates.
func Str(v string) *string                      { return &v }
func Float(v float64) *float64                  { return &v }
func Int(v int) *int                            { return &v }
func Bool(v bool) *bool                         { return &v }
func Approval(v ApprovalStatus) *ApprovalStatus { return &v }

// FinalOutput is the user-facing artifact of a finished thread: the last
// chat answer on the conversational branch, otherwise the current draft.
func (s State) FinalOutput() string {
	if len(s.ChatHistory) > 0 && s.Draft == "" {
		return s.ChatHistory[len(s.ChatHistory)-1].Text
	}
	return s.Draft
}

func newState(threadID, userID, input, modelTier string, now time.Time) State {
	return State{
		ThreadID:             threadID,
		UserID:               userID,
		Input:                input,
		ModelTier:            modelTier,
		SentryApprovalStatus: ApprovalPending,
		StartedAt:            now,
		UpdatedAt:            now,
	}
}

type checkpointSnapshot struct {
	State      State  `json:"state"`
	NextNodeID string `json:"nextNodeId,omitempty"`
}

func (s State) snapshot(nextNodeID string) (map[string]any, error) {
	payload := checkpointSnapshot{
		State:      s,
		NextNodeID: nextNodeID,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint snapshot: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint snapshot map: %w", err)
	}
	return out, nil
}

func restoreStateFromCheckpoint(raw map[string]any) (State, string, error) {
	if len(raw) == 0 {
		return State{}, "", fmt.Errorf("checkpoint state is empty")
	}
	payloadRaw, err := json.Marshal(raw)
	if err != nil {
		return State{}, "", fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}
	var snapshot checkpointSnapshot
	if err := json.Unmarshal(payloadRaw, &snapshot); err != nil {
		return State{}, "", fmt.Errorf("failed to decode checkpoint state: %w", err)
	}
	return snapshot.State, snapshot.NextNodeID, nil
}
