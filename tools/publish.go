package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/postpilothq/postpilot/publisher"
)

// NewPostToPlatform builds the post_to_platform tool.
func NewPostToPlatform(pub publisher.Publisher) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "The post content to publish.",
			},
			"platform": map[string]any{
				"type":        "string",
				"description": "Target platform (default Twitter).",
			},
			"schedule_time": map[string]any{
				"type":        "string",
				"description": "'now' for immediate publishing or a slot like 'Wednesday at 18:00'.",
			},
		},
		"required": []string{"content"},
	}

	return NewFuncTool(
		"post_to_platform",
		"Publish or schedule content on a social platform. Returns a confirmation token.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Content      string `json:"content"`
				Platform     string `json:"platform,omitempty"`
				ScheduleTime string `json:"schedule_time,omitempty"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid post_to_platform args: %w", err)
			}
			if strings.TrimSpace(in.Content) == "" {
				return nil, fmt.Errorf("content is required")
			}
			result, err := pub.Publish(ctx, publisher.Post{
				Content:      in.Content,
				Platform:     in.Platform,
				ScheduleTime: in.ScheduleTime,
			})
			if err != nil {
				return nil, fmt.Errorf("publish failed: %w", err)
			}
			return result, nil
		},
	)
}
