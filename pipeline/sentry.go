package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/drafts"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/llm"
	"github.com/postpilothq/postpilot/observe"
	"github.com/postpilothq/postpilot/publisher"
)

const sentrySystemPrompt = `You are the final gatekeeper and safety officer for outgoing posts.
Review the draft and decide its fate. Answer with exactly one of the
words: published, scheduled, pending, rejected.
- published: the draft is excellent and should go out now.
- scheduled: the draft is excellent and should go out at the planned slot.
- rejected: the draft is unsafe or off-brand.
- pending: you are unsure and a human should decide.`

// sentry is the human-in-the-loop gate. On a resume re-entry (the gate
// was the last node to run) an externally supplied approved or rejected
// status skips the brain and executes the corresponding side effects
// directly. On an organic arrival from the analyst the gate always asks
// the brain for a fresh verdict, whatever a previous pass left behind.
// Every pass persists the draft with its status; side-effect failures
// are reported, never fatal.
type sentry struct {
	brain     Brain
	drafts    drafts.Store
	publisher publisher.Publisher
	statuses  StatusExtractor
	observer  observe.Sink
}

func newSentry(cfg Config) graph.Node {
	return &sentry{
		brain:     cfg.Brain,
		drafts:    cfg.Drafts,
		publisher: cfg.Publisher,
		statuses:  cfg.Statuses,
		observer:  cfg.Observer,
	}
}

func (n *sentry) Execute(ctx context.Context, st graph.State) (graph.Update, error) {
	if st.LastNodeID == NodeSentry {
		switch st.SentryApprovalStatus {
		case graph.ApprovalApproved:
			return n.applyApproval(ctx, st), nil
		case graph.ApprovalRejected:
			return n.applyRejection(ctx, st), nil
		}
	}

	reply, err := n.brain.Run(ctx, brain.Request{
		ThreadID:     st.ThreadID,
		UserID:       st.UserID,
		Tier:         llm.TierCreative,
		SystemPrompt: sentrySystemPrompt,
		Prompt: fmt.Sprintf(
			"Draft:\n%s\n\nVirality score: %.2f. Planned slot: %s.\nDecide its fate.",
			st.Draft, st.ViralityScore, st.BestTime),
	})
	if err != nil {
		return graph.Update{
			SentryApproval: graph.Approval(graph.ApprovalError),
			AppendChat: []graph.ChatTurn{{
				Speaker: "sentry",
				Text:    fmt.Sprintf("Sentry error: %v", err),
			}},
		}, nil
	}

	status := n.statuses.Extract(reply.Text)
	update := n.executeVerdict(ctx, st, status)
	update.AppendChat = []graph.ChatTurn{{
		Speaker: "sentry",
		Text:    fmt.Sprintf("Sentry decision: %s: %s", status, reply.Text),
	}}
	return update, nil
}

// applyApproval handles an externally approved thread: the reviewer has
// cleared the draft, so it publishes immediately.
func (n *sentry) applyApproval(ctx context.Context, st graph.State) graph.Update {
	update := n.executeVerdict(ctx, st, graph.ApprovalPublished)
	update.AppendChat = []graph.ChatTurn{{
		Speaker: "sentry",
		Text:    "Sentry decision: published: approved by reviewer",
	}}
	return update
}

// applyRejection handles an external rejection: the draft goes back to
// the scripter with the rejection folded into the critique context.
func (n *sentry) applyRejection(ctx context.Context, st graph.State) graph.Update {
	n.persistDraft(ctx, st, drafts.StatusRejected, "")

	critique := "Rejected during human review. Rework the draft for tone and safety."
	if st.Critique != "" {
		critique = st.Critique + "\n\n" + critique
	}
	return graph.Update{
		SentryApproval: graph.Approval(graph.ApprovalRejected),
		Critique:       graph.Str(critique),
		AppendChat: []graph.ChatTurn{{
			Speaker: "sentry",
			Text:    "Sentry decision: rejected: rejected by reviewer",
		}},
	}
}

// executeVerdict runs the side effects a verdict implies: at most one
// publish, exactly one draft persist.
func (n *sentry) executeVerdict(ctx context.Context, st graph.State, status graph.ApprovalStatus) graph.Update {
	switch status {
	case graph.ApprovalPublished:
		if _, err := n.publisher.Publish(ctx, publisher.Post{
			Content:      st.Draft,
			Platform:     "twitter",
			ScheduleTime: "now",
		}); err != nil {
			n.reportSideEffect(ctx, st, "publish", err)
		}
		n.persistDraft(ctx, st, drafts.StatusPublished, "")

	case graph.ApprovalScheduled:
		n.persistDraft(ctx, st, drafts.StatusScheduled, st.BestTime)

	case graph.ApprovalRejected:
		n.persistDraft(ctx, st, drafts.StatusRejected, "")

	default:
		status = graph.ApprovalPending
		n.persistDraft(ctx, st, drafts.StatusPendingApproval, st.BestTime)
	}

	return graph.Update{SentryApproval: graph.Approval(status)}
}

func (n *sentry) persistDraft(ctx context.Context, st graph.State, status, scheduledFor string) {
	now := time.Now().UTC()
	record := drafts.Draft{
		ID:             st.ThreadID,
		ThreadID:       st.ThreadID,
		UserID:         st.UserID,
		Content:        st.Draft,
		Status:         status,
		ViralityScore:  st.ViralityScore,
		ScheduledFor:   scheduledFor,
		PredictedReach: st.PredictedReach,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing, err := n.drafts.Get(ctx, record.ID); err == nil {
		record.CreatedAt = existing.CreatedAt
	}
	if err := n.drafts.Save(ctx, record); err != nil {
		n.reportSideEffect(ctx, st, "save_draft", err)
	}
}

func (n *sentry) reportSideEffect(ctx context.Context, st graph.State, name string, err error) {
	if n.observer == nil {
		return
	}
	_ = n.observer.Emit(ctx, observe.Event{
		Kind:      observe.KindTool,
		Status:    observe.StatusFailed,
		Timestamp: time.Now().UTC(),
		ThreadID:  st.ThreadID,
		UserID:    st.UserID,
		Name:      NodeSentry,
		ToolName:  name,
		Error:     strings.TrimSpace(err.Error()),
	})
}
