package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/postpilothq/postpilot/graph"
)

// Extractors pull structured fields out of free-text model replies.
// Each one is a small interface so the regex heuristics can be swapped
// for structured output without touching node logic. Extract returns
// the documented default when the text carries no recognizable token.

type ScoreExtractor interface {
	Extract(text string) float64
}

type StatusExtractor interface {
	Extract(text string) graph.ApprovalStatus
}

type TimeExtractor interface {
	Extract(text string) (value string, found bool)
}

var scorePattern = regexp.MustCompile(`[Ss]core:?\s*(\d+\.\d+)`)

// RegexScore matches tokens like "Score: 0.82". Missing or malformed
// scores yield 0.0.
type RegexScore struct{}

func (RegexScore) Extract(text string) float64 {
	m := scorePattern.FindStringSubmatch(text)
	if m == nil {
		return 0.0
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil || score < 0 || score > 1 {
		return 0.0
	}
	return score
}

// KeywordStatus scans for the gate's terminal words. Absence of any
// recognized word falls back to pending, which keeps an unreadable
// verdict on the human-review side of the gate.
type KeywordStatus struct{}

func (KeywordStatus) Extract(text string) graph.ApprovalStatus {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "published"):
		return graph.ApprovalPublished
	case strings.Contains(lower, "scheduled"):
		return graph.ApprovalScheduled
	case strings.Contains(lower, "rejected"):
		return graph.ApprovalRejected
	case strings.Contains(lower, "approved"):
		return graph.ApprovalApproved
	default:
		return graph.ApprovalPending
	}
}

var timePattern = regexp.MustCompile(`(\w+ at \d{1,2}:\d{2})`)

// FallbackTime is the schedule used when no posting time can be parsed.
const FallbackTime = "12:00"

// RegexTime matches slot phrases like "Wednesday at 18:00".
type RegexTime struct{}

func (RegexTime) Extract(text string) (string, bool) {
	m := timePattern.FindStringSubmatch(text)
	if m == nil {
		return FallbackTime, false
	}
	return m[1], true
}
