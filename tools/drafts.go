package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/postpilothq/postpilot/drafts"
)

// NewSaveDraft builds the save_draft tool bound to one user and thread.
func NewSaveDraft(store drafts.Store, userID, threadID string) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The draft content.",
			},
			"status": map[string]any{
				"type":        "string",
				"description": "Lifecycle status: draft, pending_approval, approved, rejected, scheduled, or published.",
			},
			"draft_id": map[string]any{
				"type":        "string",
				"description": "Existing draft id to update; omit to create a new draft.",
			},
			"scheduled_for": map[string]any{
				"type":        "string",
				"description": "Posting slot like 'Wednesday at 18:00' when status is scheduled.",
			},
			"virality_score": map[string]any{
				"type":        "number",
				"description": "Predicted virality score for the draft.",
			},
		},
		"required": []string{"content"},
	}

	return NewFuncTool(
		"save_draft",
		"Save or update a content draft with its lifecycle status. Returns the draft id.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Content       string  `json:"content"`
				Status        string  `json:"status,omitempty"`
				DraftID       string  `json:"draft_id,omitempty"`
				ScheduledFor  string  `json:"scheduled_for,omitempty"`
				ViralityScore float64 `json:"virality_score,omitempty"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid save_draft args: %w", err)
			}
			if strings.TrimSpace(in.Content) == "" {
				return nil, fmt.Errorf("content is required")
			}

			id := in.DraftID
			if id == "" {
				id = uuid.NewString()
			}
			status := in.Status
			if status == "" {
				status = drafts.StatusDraft
			}

			draft := drafts.Draft{
				ID:            id,
				ThreadID:      threadID,
				UserID:        userID,
				Content:       in.Content,
				Status:        status,
				ScheduledFor:  in.ScheduledFor,
				ViralityScore: in.ViralityScore,
			}
			if existing, err := store.Get(ctx, id); err == nil {
				draft.CreatedAt = existing.CreatedAt
				if draft.ViralityScore == 0 {
					draft.ViralityScore = existing.ViralityScore
				}
			}
			if err := store.Save(ctx, draft); err != nil {
				return nil, fmt.Errorf("draft save failed: %w", err)
			}
			return id, nil
		},
	)
}

// NewMonitorSocial builds the monitor_social tool: a summary of the
// user's recently published drafts.
func NewMonitorSocial(store drafts.Store, userID string) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of recent posts to include (default 5).",
			},
		},
	}

	return NewFuncTool(
		"monitor_social",
		"Summarize the user's recently published posts and their predicted performance.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Limit int `json:"limit,omitempty"`
			}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("invalid monitor_social args: %w", err)
				}
			}
			limit := in.Limit
			if limit <= 0 {
				limit = 5
			}

			published, err := store.List(ctx, drafts.ListQuery{
				UserID: userID,
				Status: drafts.StatusPublished,
				Limit:  limit,
			})
			if err != nil {
				return nil, fmt.Errorf("monitoring lookup failed: %w", err)
			}
			if len(published) == 0 {
				return "No published posts found yet.", nil
			}

			lines := []string{fmt.Sprintf("Monitoring report: %d recent published posts.", len(published))}
			for _, draft := range published {
				content := draft.Content
				if len(content) > 80 {
					content = content[:77] + "..."
				}
				lines = append(lines, fmt.Sprintf(
					"- %s: %q | virality %.2f | predicted reach %.0f",
					draft.UpdatedAt.Format("2006-01-02 15:04"),
					content,
					draft.ViralityScore,
					draft.PredictedReach,
				))
			}
			return strings.Join(lines, "\n"), nil
		},
	)
}
