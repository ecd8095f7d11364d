package types

import "time"

type EventType string

const (
	EventThreadStarted   EventType = "thread.started"
	EventBeforeGenerate  EventType = "thread.before_generate"
	EventAfterGenerate   EventType = "thread.after_generate"
	EventBeforeTool      EventType = "thread.before_tool"
	EventAfterTool       EventType = "thread.after_tool"
	EventNodeStarted     EventType = "graph.node.started"
	EventNodeCompleted   EventType = "graph.node.completed"
	EventThreadSuspended EventType = "thread.suspended"
	EventThreadResumed   EventType = "thread.resumed"
	EventThreadCompleted EventType = "thread.completed"
	EventThreadFailed    EventType = "thread.failed"
)

type Event struct {
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	ThreadID   string    `json:"threadId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Iteration  int       `json:"iteration,omitempty"`
	NodeID     string    `json:"nodeId,omitempty"`
	ToolName   string    `json:"toolName,omitempty"`
	ToolCallID string    `json:"toolCallId,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
}
