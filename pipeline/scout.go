package pipeline

import (
	"context"
	"fmt"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/tools"
	"github.com/postpilothq/postpilot/types"
	"github.com/postpilothq/postpilot/vault"
)

const scoutSystemPrompt = `You are a strategic trend scout for a social media team.
Find trending topics that align with the user's brand voice.
First look up the brand voice with search_vault, then look up current
trends with web_search, and summarize the top trend and why it fits.`

// scout researches the topic: brand voice from the vault first, then
// web trends, condensed into trend data for the scripter.
type scout struct {
	brain     Brain
	vault     vault.Store
	webSearch tools.Tool
}

func newScout(cfg Config) graph.Node {
	return &scout{brain: cfg.Brain, vault: cfg.Vault, webSearch: cfg.WebSearch}
}

func (n *scout) Execute(ctx context.Context, st graph.State) (graph.Update, error) {
	topic := st.Input
	if topic == "" {
		topic = "latest tech trends"
	}

	reply, err := n.brain.Run(ctx, brain.Request{
		ThreadID:     st.ThreadID,
		UserID:       st.UserID,
		Tier:         tierOf(st),
		SystemPrompt: scoutSystemPrompt,
		Prompt: fmt.Sprintf(
			"Research trends for this topic: %q.\n"+
				"Check the brand voice first, then the web, and report the best-fitting trend.",
			topic),
		Tools: []tools.Tool{
			tools.NewSearchVault(n.vault, st.UserID),
			n.webSearch,
		},
	})
	if err != nil {
		// Degraded trend data keeps the thread advanceable.
		return graph.Update{
			TrendData:       graph.Str(fmt.Sprintf("Trend research failed: %v", err)),
			ResearchContext: []string{},
		}, nil
	}

	return graph.Update{
		TrendData:       graph.Str(reply.Text),
		ResearchContext: toolOutputs(reply.Messages),
	}, nil
}

// toolOutputs collects the raw tool results of a brain exchange, kept
// on the state as research context.
func toolOutputs(messages []types.Message) []string {
	out := []string{}
	for _, m := range messages {
		if m.Role == types.RoleTool && m.Content != "" {
			out = append(out, m.Content)
		}
	}
	return out
}
