// Package pipeline assembles the content-production workflow: seven
// nodes wired into a graph with an intent entry router, a bounded
// revise loop, and a human-approval gate that suspends the thread.
package pipeline

import (
	"context"
	"fmt"

	"github.com/postpilothq/postpilot/brain"
	"github.com/postpilothq/postpilot/drafts"
	"github.com/postpilothq/postpilot/graph"
	"github.com/postpilothq/postpilot/llm"
	"github.com/postpilothq/postpilot/observe"
	"github.com/postpilothq/postpilot/predictor"
	"github.com/postpilothq/postpilot/publisher"
	"github.com/postpilothq/postpilot/tools"
	"github.com/postpilothq/postpilot/vault"
)

// Node ids, stable across checkpoints.
const (
	NodeScout    = "scout"
	NodeScripter = "scripter"
	NodeCritic   = "critic"
	NodeAnalyst  = "analyst"
	NodeSentry   = "sentry"
	NodeEngineer = "engineer"
	NodeGuru     = "guru"
)

// GraphName identifies the production workflow in thread metadata.
const GraphName = "postpilot"

// Brain is the reasoning boundary the nodes call. *brain.Runner
// satisfies it; tests script it.
type Brain interface {
	Run(ctx context.Context, req brain.Request) (brain.Reply, error)
}

// Config carries the collaborators the nodes need. All of them are
// injected; the pipeline holds no package-level clients.
type Config struct {
	Brain     Brain
	Vault     vault.Store
	Drafts    drafts.Store
	Predictor predictor.Predictor
	Publisher publisher.Publisher

	// WebSearch overrides the trend-lookup tool; defaults to the
	// DuckDuckGo scraper.
	WebSearch tools.Tool

	// Extractors default to the regex heuristics.
	Scores   ScoreExtractor
	Statuses StatusExtractor
	Times    TimeExtractor

	Observer observe.Sink
}

func (c *Config) validate() error {
	if c.Brain == nil {
		return fmt.Errorf("pipeline: Brain is required")
	}
	if c.Vault == nil {
		return fmt.Errorf("pipeline: Vault store is required")
	}
	if c.Drafts == nil {
		return fmt.Errorf("pipeline: Drafts store is required")
	}
	if c.Predictor == nil {
		return fmt.Errorf("pipeline: Predictor is required")
	}
	if c.Publisher == nil {
		return fmt.Errorf("pipeline: Publisher is required")
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.WebSearch == nil {
		c.WebSearch = tools.NewWebSearch()
	}
	if c.Scores == nil {
		c.Scores = RegexScore{}
	}
	if c.Statuses == nil {
		c.Statuses = KeywordStatus{}
	}
	if c.Times == nil {
		c.Times = RegexTime{}
	}
	if c.Observer == nil {
		c.Observer = observe.NoopSink{}
	}
}

// Build assembles and returns the workflow graph. The graph carries a
// cycle (critic back to scripter, sentry back to scripter), so cycle
// detection is opted out and termination relies on the revise bound.
func Build(cfg Config) (*graph.Graph, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	g := graph.New(GraphName).
		AddNode(NodeScout, newScout(cfg)).
		AddNode(NodeScripter, newScripter(cfg)).
		AddNode(NodeCritic, newCritic(cfg)).
		AddNode(NodeAnalyst, newAnalyst(cfg)).
		AddNode(NodeSentry, newSentry(cfg)).
		AddNode(NodeEngineer, newEngineer(cfg)).
		AddNode(NodeGuru, newGuru(cfg)).
		SetEntry(RouteIntent, NodeScout, NodeGuru).
		AddEdge(NodeScout, NodeScripter).
		AddEdge(NodeScripter, NodeCritic).
		AddRouter(NodeCritic, RouteAfterCritic, NodeScripter, NodeAnalyst).
		AddEdge(NodeAnalyst, NodeSentry).
		AddRouter(NodeSentry, RouteAfterSentry, NodeEngineer, NodeScripter).
		MarkSuspendPoint(NodeSentry, func(st graph.State) bool {
			return st.SentryApprovalStatus == graph.ApprovalPending
		}).
		AllowCycles(true)

	if err := g.Compile(); err != nil {
		return nil, fmt.Errorf("pipeline graph failed to compile: %w", err)
	}
	return g, nil
}

// New builds the graph and wraps it in an executor.
func New(cfg Config, opts ...graph.ExecutorOption) (*graph.Executor, error) {
	g, err := Build(cfg)
	if err != nil {
		return nil, err
	}
	return graph.NewExecutor(g, opts...)
}

// tierOf resolves the Brain backend a node should use from the state's
// model tier, defaulting to the fast backend.
func tierOf(st graph.State) llm.Tier {
	switch llm.Tier(st.ModelTier) {
	case llm.TierCreative:
		return llm.TierCreative
	default:
		return llm.TierFast
	}
}
