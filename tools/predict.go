package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/postpilothq/postpilot/predictor"
)

// NewPredictVirality builds the predict_virality_score tool.
func NewPredictVirality(model predictor.Predictor) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"post_content": map[string]any{
				"type":        "string",
				"description": "The draft text to score.",
			},
			"platform": map[string]any{
				"type":        "string",
				"description": "Target platform (default Twitter).",
			},
		},
		"required": []string{"post_content"},
	}

	return NewFuncTool(
		"predict_virality_score",
		"Predict the virality score (0.0 to 1.0) of a post draft using the prediction model.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				PostContent string `json:"post_content"`
				Platform    string `json:"platform,omitempty"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid predict_virality_score args: %w", err)
			}
			if strings.TrimSpace(in.PostContent) == "" {
				return 0.0, nil
			}
			platform := in.Platform
			if platform == "" {
				platform = "Twitter"
			}
			score, err := model.ScoreVirality(ctx, in.PostContent, predictor.Features{Platform: platform})
			if err != nil {
				return nil, fmt.Errorf("virality prediction failed: %w", err)
			}
			return score, nil
		},
	)
}

// NewRecommendSchedule builds the recommend_schedule tool.
func NewRecommendSchedule(model predictor.Predictor) Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"platform": map[string]any{
				"type":        "string",
				"description": "Target platform (default Twitter).",
			},
			"follower_count": map[string]any{
				"type":        "integer",
				"description": "The account's follower count.",
			},
			"topic_category": map[string]any{
				"type":        "string",
				"description": "Broad topic of the content, e.g. Technology.",
			},
		},
		"required": []string{"follower_count"},
	}

	return NewFuncTool(
		"recommend_schedule",
		"Recommend the best posting slots by simulating day and hour combinations, ranked by predicted reach.",
		schema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				Platform      string `json:"platform,omitempty"`
				FollowerCount int    `json:"follower_count"`
				TopicCategory string `json:"topic_category,omitempty"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("invalid recommend_schedule args: %w", err)
			}
			platform := in.Platform
			if platform == "" {
				platform = "Twitter"
			}
			slots, err := model.RecommendSchedule(ctx, predictor.Features{
				Platform:      platform,
				FollowerCount: in.FollowerCount,
				TopicCategory: in.TopicCategory,
			})
			if err != nil {
				return nil, fmt.Errorf("schedule recommendation failed: %w", err)
			}
			return slots, nil
		},
	)
}
