package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/postpilothq/postpilot/vault"
)

// NewSearchVault builds the search_vault tool bound to one user's
// entries.
func NewSearchVault(store vault.Store, userID string) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Free-text query to match against stored notes.",
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "Maximum number of entries to return (default 5).",
			},
		},
		"required": []string{"query"},
	}

	return NewFuncTool(
		"search_vault",
		"Search the knowledge vault for previously stored research, guidelines, or facts.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Query string `json:"query"`
				Limit int    `json:"limit,omitempty"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid search_vault args: %w", err)
			}
			limit := in.Limit
			if limit <= 0 {
				limit = 5
			}
			entries, err := store.Search(ctx, userID, in.Query, limit)
			if err != nil {
				return nil, fmt.Errorf("vault search failed: %w", err)
			}
			if len(entries) == 0 {
				return "No relevant info found in vault.", nil
			}
			texts := make([]string, 0, len(entries))
			for _, entry := range entries {
				texts = append(texts, entry.Text)
			}
			return strings.Join(texts, "\n\n"), nil
		},
	)
}

// NewStoreInVault builds the store_in_vault tool bound to one user.
func NewStoreInVault(store vault.Store, userID string) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The note to remember: findings, guidelines, or report text.",
			},
		},
		"required": []string{"content"},
	}

	return NewFuncTool(
		"store_in_vault",
		"Store a piece of information into the knowledge vault for future runs.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Content string `json:"content"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid store_in_vault args: %w", err)
			}
			if strings.TrimSpace(in.Content) == "" {
				return nil, fmt.Errorf("content is required")
			}
			if _, err := store.Save(ctx, userID, in.Content); err != nil {
				return nil, fmt.Errorf("vault save failed: %w", err)
			}
			return "Content successfully stored in the vault.", nil
		},
	)
}
