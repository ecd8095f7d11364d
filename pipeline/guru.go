package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/drafts"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/llm"
	"github.com/postpilothq/postpilot/tools"
	"github.com/postpilothq/postpilot/vault"
)

const guruSystemPrompt = `You are the Guru, a senior social media strategy consultant.
Do not just answer questions; give strategic advice. When the user asks
about performance or history, check monitor_social or search_vault
before answering. If the numbers are weak, suggest improvements grounded
in the brand voice.`

// guru is the conversational branch. Each invocation extends the chat
// history by exactly two turns: the user's question and the answer. A
// failed brain call still produces the answer turn, with the failure in
// it, so the history contract holds.
type guru struct {
	brain  Brain
	vault  vault.Store
	drafts drafts.Store
}

func newGuru(cfg Config) graph.Node {
	return &guru{brain: cfg.Brain, vault: cfg.Vault, drafts: cfg.Drafts}
}

func (n *guru) Execute(ctx context.Context, st graph.State) (graph.Update, error) {
	prompt := st.Input
	if history := renderHistory(st.ChatHistory); history != "" {
		prompt = fmt.Sprintf("Conversation so far:\n%s\n\nCurrent question: %s", history, st.Input)
	}

	answer := ""
	reply, err := n.brain.Run(ctx, brain.Request{
		ThreadID:     st.ThreadID,
		UserID:       st.UserID,
		Tier:         llm.TierCreative,
		SystemPrompt: guruSystemPrompt,
		Prompt:       prompt,
		Tools: []tools.Tool{
			tools.NewSearchVault(n.vault, st.UserID),
			tools.NewMonitorSocial(n.drafts, st.UserID),
		},
	})
	if err != nil {
		answer = fmt.Sprintf("I could not answer that right now: %v", err)
	} else {
		answer = reply.Text
	}

	return graph.Update{
		AppendChat: []graph.ChatTurn{
			{Speaker: "user", Text: st.Input},
			{Speaker: "guru", Text: answer},
		},
	}, nil
}

func renderHistory(turns []graph.ChatTurn) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Speaker, t.Text))
	}
	return strings.Join(lines, "\n")
}
