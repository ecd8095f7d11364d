package groq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/postpilothq/postpilot/types"
)

func TestGenerateTextReply(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"hello from groq"}}],
			"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}
		}`))
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL), WithModel("test-model"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := client.Generate(context.Background(), types.Request{
		SystemPrompt: "be brief",
		Messages:     []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Message.Content != "hello from groq" {
		t.Fatalf("Content = %q", resp.Message.Content)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 16 {
		t.Fatalf("Usage = %+v", resp.Usage)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth = %q", gotAuth)
	}

	var wire map[string]any
	if err := json.Unmarshal(gotBody, &wire); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if wire["model"] != "test-model" {
		t.Fatalf("model = %v", wire["model"])
	}
	msgs, _ := wire["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brief" {
		t.Fatalf("system message = %v", first)
	}
}

func TestGenerateNormalizesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{
				"role":"assistant",
				"content":null,
				"tool_calls":[
					{"id":"c1","type":"function","function":{"name":"search_vault","arguments":"{\"query\":\"ai\"}"}},
					{"id":"c2","type":"function","function":{"name":"save_draft","arguments":"not json"}}
				]
			}}]
		}`))
	}))
	defer server.Close()

	client, err := New("k", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := client.Generate(context.Background(), types.Request{
		Messages: []types.Message{{Role: types.RoleUser, Content: "go"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(resp.Message.ToolCalls) != 2 {
		t.Fatalf("ToolCalls = %+v", resp.Message.ToolCalls)
	}
	if resp.Message.ToolCalls[0].Name != "search_vault" {
		t.Fatalf("first call = %+v", resp.Message.ToolCalls[0])
	}
	if !json.Valid(resp.Message.ToolCalls[1].Arguments) {
		t.Fatalf("non-JSON arguments not normalized: %s", resp.Message.ToolCalls[1].Arguments)
	}
	if !strings.Contains(string(resp.Message.ToolCalls[1].Arguments), "not json") {
		t.Fatalf("raw arguments lost: %s", resp.Message.ToolCalls[1].Arguments)
	}
}

func TestGenerateForwardsToolResults(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"}}]}`))
	}))
	defer server.Close()

	client, err := New("k", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Generate(context.Background(), types.Request{
		Messages: []types.Message{
			{Role: types.RoleUser, Content: "search please"},
			{Role: types.RoleAssistant, ToolCalls: []types.ToolCall{{ID: "c1", Name: "search_vault", Arguments: json.RawMessage(`{"query":"x"}`)}}},
			{Role: types.RoleTool, Name: "search_vault", ToolCallID: "c1", Content: `{"hits":0}`},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	var wire chatRequest
	if err := json.Unmarshal(gotBody, &wire); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(wire.Messages) != 3 {
		t.Fatalf("messages = %+v", wire.Messages)
	}
	if wire.Messages[1].ToolCalls[0].Function.Name != "search_vault" {
		t.Fatalf("assistant tool call not forwarded: %+v", wire.Messages[1])
	}
	if wire.Messages[2].Role != "tool" || wire.Messages[2].ToolCallID != "c1" {
		t.Fatalf("tool result not forwarded: %+v", wire.Messages[2])
	}
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client, err := New("k", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Generate(context.Background(), types.Request{
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err = %v, want status code in message", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}
