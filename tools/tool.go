// Package tools defines the tool contract handed to the Brain and the
// domain tools the workflow nodes construct around their collaborators.
// Tools are built per run with their dependencies injected; there is no
// package-level registry.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/postpilothq/postpilot/types"
)

type Tool interface {
	Definition() types.ToolDefinition
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

type FuncTool struct {
	def types.ToolDefinition
	fn  func(ctx context.Context, args json.RawMessage) (any, error)
}

func NewFuncTool(name, description string, schema map[string]any, fn func(ctx context.Context, args json.RawMessage) (any, error)) *FuncTool {
	return &FuncTool{
		def: types.ToolDefinition{
			Name:        name,
			Description: description,
			JSONSchema:  schema,
		},
		fn: fn,
	}
}

func (t *FuncTool) Definition() types.ToolDefinition {
	return t.def
}

func (t *FuncTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("tool %q has no execute function", t.def.Name)
	}
	return t.fn(ctx, args)
}

// Definitions collects the wire definitions for a tool set.
func Definitions(ts []Tool) []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(ts))
	for _, t := range ts {
		defs = append(defs, t.Definition())
	}
	return defs
}

// ByName finds a tool in a set; ok is false when absent.
func ByName(ts []Tool, name string) (Tool, bool) {
	for _, t := range ts {
		if t.Definition().Name == name {
			return t, true
		}
	}
	return nil, false
}
