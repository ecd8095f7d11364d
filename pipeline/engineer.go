package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/drafts"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/observe"
	"github.com/postpilothq/postpilot/tools"
	"github.com/postpilothq/postpilot/vault"
)

const engineerSystemPrompt = `You are a social media growth engineer.
Monitor the user's published posts with monitor_social and produce a
concise report: what went out, how it is predicted to perform, and one
or two concrete improvements for growth.`

// engineer runs after publication: it reviews the user's published
// output and writes its report back into the vault so later threads can
// retrieve it. The vault write is at-least-once; a failure is reported
// but never blocks the report.
type engineer struct {
	brain    Brain
	drafts   drafts.Store
	vault    vault.Store
	observer observe.Sink
}

func newEngineer(cfg Config) graph.Node {
	return &engineer{brain: cfg.Brain, drafts: cfg.Drafts, vault: cfg.Vault, observer: cfg.Observer}
}

func (n *engineer) Execute(ctx context.Context, st graph.State) (graph.Update, error) {
	reply, err := n.brain.Run(ctx, brain.Request{
		ThreadID:     st.ThreadID,
		UserID:       st.UserID,
		Tier:         tierOf(st),
		SystemPrompt: engineerSystemPrompt,
		Prompt:       "Review the recent published posts and report on performance and next steps.",
		Tools: []tools.Tool{
			tools.NewMonitorSocial(n.drafts, st.UserID),
		},
	})

	report := ""
	if err != nil {
		report = fmt.Sprintf("Engineer report unavailable: %v", err)
	} else {
		report = reply.Text
		if _, storeErr := n.vault.Save(ctx, st.UserID, "ENGINEER REPORT:\n"+report); storeErr != nil {
			n.reportStoreFailure(ctx, st, storeErr)
		}
	}

	return graph.Update{EngineerReport: graph.Str(report)}, nil
}

func (n *engineer) reportStoreFailure(ctx context.Context, st graph.State, err error) {
	if n.observer == nil {
		return
	}
	_ = n.observer.Emit(ctx, observe.Event{
		Kind:      observe.KindTool,
		Status:    observe.StatusFailed,
		Timestamp: time.Now().UTC(),
		ThreadID:  st.ThreadID,
		UserID:    st.UserID,
		Name:      NodeEngineer,
		ToolName:  "store_in_vault",
		Error:     err.Error(),
	})
}
