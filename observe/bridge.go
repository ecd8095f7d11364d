package observe

import (
	"strings"

	"github.com/postpilothq/postpilot/types"
)

func FromRuntimeEvent(in types.Event) Event {
	e := Event{
		Timestamp: in.Timestamp,
		ThreadID:  in.ThreadID,
		UserID:    in.UserID,
		Provider:  in.Provider,
		Name:      in.NodeID,
		ToolName:  in.ToolName,
		Message:   in.Message,
		Error:     in.Error,
		Attributes: map[string]any{
			"eventType": string(in.Type),
		},
	}
	if in.Iteration > 0 {
		e.Attributes["iteration"] = in.Iteration
	}
	if in.ToolCallID != "" {
		e.Attributes["toolCallId"] = in.ToolCallID
	}

	eventType := string(in.Type)
	switch {
	case strings.Contains(eventType, "generate"):
		e.Kind = KindProvider
	case strings.Contains(eventType, "tool"):
		e.Kind = KindTool
	case strings.Contains(eventType, "graph.node"):
		e.Kind = KindGraph
	default:
		e.Kind = KindThread
	}

	switch {
	case strings.Contains(eventType, "before"), strings.Contains(eventType, "started"):
		e.Status = StatusStarted
	case strings.Contains(eventType, "suspended"):
		e.Status = StatusSuspended
	case strings.Contains(eventType, "failed"):
		e.Status = StatusFailed
	default:
		e.Status = StatusCompleted
	}

	e.Normalize()
	return e
}
