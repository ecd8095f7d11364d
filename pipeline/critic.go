package pipeline

import (
	"context"
	"fmt"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/predictor"
	"github.com/postpilothq/postpilot/tools"
)

// goodEnoughScore is the virality bar a draft must clear to leave the
// revise loop.
const goodEnoughScore = 0.7

const criticSystemPrompt = `You are a viral content critic.
Score the draft with the predict_virality_score tool and report the result as
"Score: X.XX". If the score is below 0.70, add a concrete critique of
what to improve; otherwise say the draft is ready.`

// critic scores the draft and decides whether it is good enough. The
// numeric score comes out of the reply text; anything unparseable
// counts as 0.0 so the loop keeps revising rather than shipping junk.
type critic struct {
	brain     Brain
	predictor predictor.Predictor
	scores    ScoreExtractor
}

func newCritic(cfg Config) graph.Node {
	return &critic{brain: cfg.Brain, predictor: cfg.Predictor, scores: cfg.Scores}
}

func (n *critic) Execute(ctx context.Context, st graph.State) (graph.Update, error) {
	reply, err := n.brain.Run(ctx, brain.Request{
		ThreadID:     st.ThreadID,
		UserID:       st.UserID,
		Tier:         tierOf(st),
		SystemPrompt: criticSystemPrompt,
		Prompt:       fmt.Sprintf("Evaluate this draft:\n\n%s", st.Draft),
		Tools: []tools.Tool{
			tools.NewPredictVirality(n.predictor),
		},
	})
	if err != nil {
		return graph.Update{
			ViralityScore: graph.Float(0.0),
			Critique:      graph.Str(fmt.Sprintf("Critique failed: %v", err)),
			IsGoodEnough:  graph.Bool(false),
		}, nil
	}

	score := n.scores.Extract(reply.Text)
	return graph.Update{
		ViralityScore: graph.Float(score),
		Critique:      graph.Str(reply.Text),
		IsGoodEnough:  graph.Bool(score >= goodEnoughScore),
	}, nil
}
