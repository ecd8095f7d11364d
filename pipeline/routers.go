package pipeline

import (
	"strings"

	"github.com/postpilothq/postpilot/graph"
)

// The three routers are pure functions of state. They see no I/O and
// hold no references, so identical state always routes identically.

var questionKeywords = []string{
	"how", "what", "show", "help", "who",
	"query", "question", "monitor", "brand", "stats",
}

var creationKeywords = []string{"create", "write"}

// RouteIntent dispatches a fresh thread: question-like input goes to the
// conversational branch, everything else enters the creation pipeline.
// Creation keywords win ties, so "create, what's trending" still builds
// a post.
func RouteIntent(st graph.State) string {
	input := strings.ToLower(st.Input)
	for _, k := range creationKeywords {
		if strings.Contains(input, k) {
			return NodeScout
		}
	}
	for _, k := range questionKeywords {
		if strings.Contains(input, k) {
			return NodeGuru
		}
	}
	return NodeScout
}

// RouteAfterCritic bounds the revise loop. A good-enough draft advances
// regardless of how many passes it took; an exhausted loop ends the
// thread with the last draft as the final artifact.
func RouteAfterCritic(st graph.State) string {
	if st.IsGoodEnough {
		return NodeAnalyst
	}
	if st.RevisionCount > 3 {
		return graph.End
	}
	return NodeScripter
}

// RouteAfterSentry reads the gate's verdict. Approved or published work
// moves on to the Engineer; a rejection restarts the revise cycle. Any
// other status (scheduled, error) ends the thread. The pending case
// never reaches this router: the executor suspends on it first.
func RouteAfterSentry(st graph.State) string {
	switch st.SentryApprovalStatus {
	case graph.ApprovalApproved, graph.ApprovalPublished:
		return NodeEngineer
	case graph.ApprovalRejected:
		return NodeScripter
	default:
		return graph.End
	}
}
