package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/llm"
	"github.com/postpilothq/postpilot/predictor"
)

const defaultFollowerCount = 50000

const analystSystemPrompt = `You are a senior data analyst for a social media team.
Write a short report recommending when to post, grounded in the
predicted-reach data you are given. Name the best slot exactly as
provided, for example "Wednesday at 18:00".`

// analyst picks the posting slot. The schedule recommendation comes
// straight from the predictor; the brain only narrates it, so a failed
// narration never loses the slot.
type analyst struct {
	brain     Brain
	predictor predictor.Predictor
	times     TimeExtractor
}

func newAnalyst(cfg Config) graph.Node {
	return &analyst{brain: cfg.Brain, predictor: cfg.Predictor, times: cfg.Times}
}

func (n *analyst) Execute(ctx context.Context, st graph.State) (graph.Update, error) {
	followers := st.FollowerCount
	if followers <= 0 {
		followers = defaultFollowerCount
	}

	slots, err := n.predictor.RecommendSchedule(ctx, predictor.Features{
		Platform:      "Twitter",
		TopicCategory: "Technology",
		FollowerCount: followers,
	})
	if err != nil || len(slots) == 0 {
		if err == nil {
			err = fmt.Errorf("no slots returned")
		}
		return graph.Update{
			AnalystReport:  graph.Str(fmt.Sprintf("Analysis failed: %v", err)),
			BestTime:       graph.Str(FallbackTime),
			PredictedReach: graph.Float(0),
		}, nil
	}

	top := slots[0]
	slotPhrase := formatSlot(top)

	report := fmt.Sprintf(
		"Best posting slot is %s with a predicted reach of %.0f.\nCandidates considered:\n%s",
		slotPhrase, top.PredictedReach, describeSlots(slots))

	reply, err := n.brain.Run(ctx, brain.Request{
		ThreadID:     st.ThreadID,
		UserID:       st.UserID,
		Tier:         llm.TierCreative,
		SystemPrompt: analystSystemPrompt,
		Prompt: fmt.Sprintf(
			"Follower count: %d. Platform: Twitter. Trend:\n%s\n\nPredicted reach per slot:\n%s\n\nWrite the scheduling report.",
			followers, st.TrendData, describeSlots(slots)),
	})
	if err == nil {
		report = reply.Text
	}

	bestTime := slotPhrase
	if parsed, ok := n.times.Extract(report); ok {
		bestTime = parsed
	}

	return graph.Update{
		AnalystReport:  graph.Str(report),
		BestTime:       graph.Str(bestTime),
		PredictedReach: graph.Float(top.PredictedReach),
	}, nil
}

func formatSlot(s predictor.Slot) string {
	return fmt.Sprintf("%s at %02d:00", s.Day, s.Hour)
}

func describeSlots(slots []predictor.Slot) string {
	lines := make([]string, 0, len(slots))
	for _, s := range slots {
		lines = append(lines, fmt.Sprintf("- %s: %.0f", formatSlot(s), s.PredictedReach))
	}
	return strings.Join(lines, "\n")
}
