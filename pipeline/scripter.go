package pipeline

import (
	"context"
	"fmt"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/graph"
)

const scripterSystemPrompt = `You are an expert content creator writing social media posts.
Return only the post text, no commentary.`

// scripter authors or refines the draft. Every invocation advances the
// revision counter by exactly one; the loop router depends on it.
type scripter struct {
	brain Brain
}

func newScripter(cfg Config) graph.Node {
	return &scripter{brain: cfg.Brain}
}

func (n *scripter) Execute(ctx context.Context, st graph.State) (graph.Update, error) {
	var prompt string
	if st.Critique != "" && st.RevisionCount > 0 {
		prompt = fmt.Sprintf(
			"Refine the following draft based on the critique.\n\nDraft:\n%s\n\nCritique:\n%s\n\nReturn the improved draft only.",
			st.Draft, st.Critique)
	} else {
		prompt = fmt.Sprintf(
			"Create a viral social media post about this trend:\n\n%s\n\nKeep it engaging, concise, and use hashtags.",
			st.TrendData)
	}

	update := graph.Update{RevisionCount: graph.Int(st.RevisionCount + 1)}

	reply, err := n.brain.Run(ctx, brain.Request{
		ThreadID:     st.ThreadID,
		UserID:       st.UserID,
		Tier:         tierOf(st),
		SystemPrompt: scripterSystemPrompt,
		Prompt:       prompt,
	})
	if err != nil {
		if st.Draft == "" {
			update.Draft = graph.Str(fmt.Sprintf("Draft generation failed: %v", err))
		}
		// An existing draft survives a failed refinement pass.
		return update, nil
	}

	update.Draft = graph.Str(reply.Text)
	return update, nil
}
