// Package brain runs one reasoning step against a model provider: a
// prompt, an optional set of tools, and at most one round of tool
// execution before the model's final answer. Workflow nodes own the
// prompts; the brain owns the wire mechanics.
package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/postpilothq/postpilot/llm"
	"github.com/postpilothq/postpilot/observe"
	"github.com/postpilothq/postpilot/tools"
	"github.com/postpilothq/postpilot/types"
)

// Request is one brain invocation.
type Request struct {
	ThreadID        string
	UserID          string
	Tier            llm.Tier
	SystemPrompt    string
	Prompt          string
	Tools           []tools.Tool
	MaxOutputTokens int
}

// Reply is the normalized outcome: the model's final text plus the
// tools it actually invoked along the way.
type Reply struct {
	Text      string
	UsedTools []string
	Messages  []types.Message
}

type Runner struct {
	selector    llm.Selector
	retryPolicy RetryPolicy
	toolTimeout time.Duration
	observer    observe.Sink
}

type Option func(*Runner)

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(r *Runner) {
		r.retryPolicy = normalizeRetryPolicy(policy)
	}
}

func WithToolTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		if timeout >= 0 {
			r.toolTimeout = timeout
		}
	}
}

func WithObserver(observer observe.Sink) Option {
	return func(r *Runner) {
		r.observer = observer
	}
}

func New(selector llm.Selector, opts ...Option) (*Runner, error) {
	if selector == nil {
		return nil, errors.New("provider selector is required")
	}
	r := &Runner{
		selector:    selector,
		retryPolicy: defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.retryPolicy = normalizeRetryPolicy(r.retryPolicy)
	return r, nil
}

// Run sends the prompt and resolves at most one round of tool calls.
// When the model calls tools, their outputs are fed back and the model
// is asked once more for a final answer; a second round of tool calls
// is not honored.
func (r *Runner) Run(ctx context.Context, req Request) (Reply, error) {
	if req.Prompt == "" {
		return Reply{}, errors.New("prompt is required")
	}

	provider, err := r.selector.Provider(req.Tier)
	if err != nil {
		return Reply{}, fmt.Errorf("no provider for tier %q: %w", req.Tier, err)
	}

	messages := []types.Message{
		{Role: types.RoleUser, Content: req.Prompt},
	}
	wireRequest := types.Request{
		SystemPrompt:    req.SystemPrompt,
		Messages:        messages,
		Tools:           tools.Definitions(req.Tools),
		MaxOutputTokens: req.MaxOutputTokens,
	}

	r.emit(ctx, req, types.Event{Type: types.EventBeforeGenerate, Iteration: 1})
	resp, err := r.generateWithRetry(ctx, provider, wireRequest)
	if err != nil {
		return Reply{}, err
	}
	r.emit(ctx, req, types.Event{Type: types.EventAfterGenerate, Iteration: 1})

	modelMsg := resp.Message
	modelMsg.Role = types.RoleAssistant
	messages = append(messages, modelMsg)

	usedTools := []string{}
	if len(modelMsg.ToolCalls) > 0 {
		toolMessages := r.executeToolCalls(ctx, req, modelMsg.ToolCalls)
		for _, call := range modelMsg.ToolCalls {
			usedTools = append(usedTools, call.Name)
		}
		messages = append(messages, toolMessages...)

		wireRequest.Messages = messages
		r.emit(ctx, req, types.Event{Type: types.EventBeforeGenerate, Iteration: 2})
		resp, err = r.generateWithRetry(ctx, provider, wireRequest)
		if err != nil {
			return Reply{}, err
		}
		r.emit(ctx, req, types.Event{Type: types.EventAfterGenerate, Iteration: 2})

		modelMsg = resp.Message
		modelMsg.Role = types.RoleAssistant
		messages = append(messages, modelMsg)
	}

	if modelMsg.Content == "" {
		return Reply{}, errors.New("provider returned empty assistant content")
	}
	return Reply{
		Text:      modelMsg.Content,
		UsedTools: usedTools,
		Messages:  messages,
	}, nil
}

func (r *Runner) generateWithRetry(ctx context.Context, provider llm.Provider, req types.Request) (types.Response, error) {
	policy := r.retryPolicy

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		resp, err := provider.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == policy.MaxAttempts {
			break
		}

		backoff := policy.backoffForAttempt(attempt)
		select {
		case <-ctx.Done():
			return types.Response{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return types.Response{}, fmt.Errorf("provider %q failed after %d attempt(s): %w", provider.Name(), policy.MaxAttempts, lastErr)
}

// executeToolCalls never fails the run: unknown tools and tool errors
// are reported back to the model as error payloads.
func (r *Runner) executeToolCalls(ctx context.Context, req Request, calls []types.ToolCall) []types.Message {
	out := make([]types.Message, 0, len(calls))
	for _, call := range calls {
		r.emit(ctx, req, types.Event{Type: types.EventBeforeTool, ToolName: call.Name, ToolCallID: call.ID})

		var (
			payload any
			toolErr error
		)
		tool, ok := tools.ByName(req.Tools, call.Name)
		if !ok {
			toolErr = fmt.Errorf("tool %q not found", call.Name)
			payload = map[string]any{"error": toolErr.Error()}
		} else {
			args := call.Arguments
			if len(args) == 0 {
				args = json.RawMessage(`{}`)
			}
			toolCtx := ctx
			cancel := func() {}
			if r.toolTimeout > 0 {
				toolCtx, cancel = context.WithTimeout(ctx, r.toolTimeout)
			}
			result, err := tool.Execute(toolCtx, args)
			cancel()
			if err != nil {
				toolErr = err
				payload = map[string]any{"error": err.Error()}
			} else {
				payload = result
			}
		}

		encoded, err := json.Marshal(payload)
		if err != nil {
			encoded = []byte(fmt.Sprintf(`{"error":"failed to encode tool output","detail":%q}`, err.Error()))
		}
		out = append(out, types.Message{
			Role:       types.RoleTool,
			Name:       call.Name,
			ToolCallID: call.ID,
			Content:    string(encoded),
		})

		afterEvent := types.Event{Type: types.EventAfterTool, ToolName: call.Name, ToolCallID: call.ID}
		if toolErr != nil {
			afterEvent.Error = toolErr.Error()
		}
		r.emit(ctx, req, afterEvent)
	}
	return out
}

func (r *Runner) emit(ctx context.Context, req Request, event types.Event) {
	if r == nil || r.observer == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	event.ThreadID = req.ThreadID
	event.UserID = req.UserID
	_ = r.observer.Emit(ctx, observe.FromRuntimeEvent(event))
}
