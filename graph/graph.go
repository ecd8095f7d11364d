package graph

import (
	"fmt"
	"sort"
)

// End is the terminal marker a router returns to finish a thread.
const End = "__end__"

// Router selects the next node from the current state. Routers must be
// pure: no side effects, no I/O, same state in, same node id out.
type Router func(st State) string

// SuspendFunc decides, after its node has executed, whether the thread
// must park and wait for an external decision instead of routing on.
type SuspendFunc func(st State) bool

type Graph struct {
	name        string
	nodes       map[string]Node
	edges       map[string]string
	routers     map[string]routerEntry
	entry       routerEntry
	suspends    map[string]SuspendFunc
	allowCycles bool
	buildErr    error
}

type routerEntry struct {
	route   Router
	targets []string
}

func New(name string) *Graph {
	return &Graph{
		name:     name,
		nodes:    map[string]Node{},
		edges:    map[string]string{},
		routers:  map[string]routerEntry{},
		suspends: map[string]SuspendFunc{},
	}
}

func (g *Graph) Name() string {
	if g == nil {
		return ""
	}
	return g.name
}

func (g *Graph) AddNode(id string, node Node) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if id == "" || id == End {
		g.buildErr = fmt.Errorf("node id %q is not allowed", id)
		return g
	}
	if node == nil {
		g.buildErr = fmt.Errorf("node %q is nil", id)
		return g
	}
	if _, exists := g.nodes[id]; exists {
		g.buildErr = fmt.Errorf("node %q already exists", id)
		return g
	}
	g.nodes[id] = node
	return g
}

// AddEdge declares an unconditional transition from one node to the next.
func (g *Graph) AddEdge(from, to string) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if from == "" || to == "" {
		g.buildErr = fmt.Errorf("edge endpoints are required")
		return g
	}
	if _, exists := g.edges[from]; exists {
		g.buildErr = fmt.Errorf("node %q already has an outgoing edge", from)
		return g
	}
	if _, exists := g.routers[from]; exists {
		g.buildErr = fmt.Errorf("node %q already has a router", from)
		return g
	}
	g.edges[from] = to
	return g
}

// AddRouter attaches a conditional transition after the given node. The
// declared targets are every node id the router may return (End need not
// be listed); Compile validates them.
func (g *Graph) AddRouter(from string, route Router, targets ...string) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if from == "" || route == nil {
		g.buildErr = fmt.Errorf("router source and function are required")
		return g
	}
	if _, exists := g.edges[from]; exists {
		g.buildErr = fmt.Errorf("node %q already has an outgoing edge", from)
		return g
	}
	if _, exists := g.routers[from]; exists {
		g.buildErr = fmt.Errorf("node %q already has a router", from)
		return g
	}
	if len(targets) == 0 {
		g.buildErr = fmt.Errorf("router for %q declares no targets", from)
		return g
	}
	g.routers[from] = routerEntry{route: route, targets: targets}
	return g
}

// SetEntry installs the entry router that dispatches a fresh thread to
// its first node.
func (g *Graph) SetEntry(route Router, targets ...string) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if route == nil || len(targets) == 0 {
		g.buildErr = fmt.Errorf("entry router and targets are required")
		return g
	}
	g.entry = routerEntry{route: route, targets: targets}
	return g
}

// SetStart is the single-entry shorthand for graphs without an intent split.
func (g *Graph) SetStart(id string) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if id == "" {
		g.buildErr = fmt.Errorf("start node id is required")
		return g
	}
	g.entry = routerEntry{
		route:   func(State) string { return id },
		targets: []string{id},
	}
	return g
}

// MarkSuspendPoint flags a node as a human-in-the-loop gate. After the
// node executes, the executor consults the predicate; when it reports
// true the thread parks on this node until resumed with a state delta.
func (g *Graph) MarkSuspendPoint(id string, when SuspendFunc) *Graph {
	if g == nil || g.buildErr != nil {
		return g
	}
	if id == "" || when == nil {
		g.buildErr = fmt.Errorf("suspend point id and predicate are required")
		return g
	}
	g.suspends[id] = when
	return g
}

func (g *Graph) AllowCycles(allow bool) *Graph {
	if g == nil {
		return g
	}
	g.allowCycles = allow
	return g
}

func (g *Graph) Compile() error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if g.buildErr != nil {
		return g.buildErr
	}
	if g.name == "" {
		return fmt.Errorf("graph name is required")
	}
	if len(g.nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}
	if g.entry.route == nil {
		return fmt.Errorf("entry router is not set")
	}

	for _, target := range g.entry.targets {
		if _, ok := g.nodes[target]; !ok {
			return fmt.Errorf("entry target %q does not exist", target)
		}
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("edge source node %q does not exist", from)
		}
		if _, ok := g.nodes[to]; !ok {
			return fmt.Errorf("edge target node %q does not exist", to)
		}
	}
	for from, entry := range g.routers {
		if _, ok := g.nodes[from]; !ok {
			return fmt.Errorf("router source node %q does not exist", from)
		}
		for _, target := range entry.targets {
			if target == End {
				continue
			}
			if _, ok := g.nodes[target]; !ok {
				return fmt.Errorf("router target %q from %q does not exist", target, from)
			}
		}
	}
	for id := range g.suspends {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("suspend point %q does not exist", id)
		}
	}

	unreachable := g.unreachableNodes()
	if len(unreachable) > 0 {
		sort.Strings(unreachable)
		return fmt.Errorf("graph contains unreachable node(s): %v", unreachable)
	}

	if !g.allowCycles && g.hasCycle() {
		return fmt.Errorf("graph contains cycle(s); call AllowCycles(true) to enable")
	}

	return nil
}

// successors returns every declared transition target of a node.
func (g *Graph) successors(id string) []string {
	if to, ok := g.edges[id]; ok {
		return []string{to}
	}
	if entry, ok := g.routers[id]; ok {
		out := make([]string, 0, len(entry.targets))
		for _, t := range entry.targets {
			if t != End {
				out = append(out, t)
			}
		}
		return out
	}
	return nil
}

func (g *Graph) unreachableNodes() []string {
	visited := map[string]bool{}
	var dfs func(nodeID string)
	dfs = func(nodeID string) {
		if visited[nodeID] {
			return
		}
		visited[nodeID] = true
		for _, next := range g.successors(nodeID) {
			dfs(next)
		}
	}
	for _, target := range g.entry.targets {
		dfs(target)
	}

	out := make([]string, 0)
	for nodeID := range g.nodes {
		if !visited[nodeID] {
			out = append(out, nodeID)
		}
	}
	return out
}

func (g *Graph) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(nodeID string) bool
	visit = func(nodeID string) bool {
		color[nodeID] = gray
		for _, next := range g.successors(nodeID) {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[nodeID] = black
		return false
	}

	for nodeID := range g.nodes {
		if color[nodeID] == white && visit(nodeID) {
			return true
		}
	}
	return false
}

// nextNode evaluates the transition after the given node. A node with
// neither an edge nor a router is terminal.
func (g *Graph) nextNode(from string, st State) string {
	if to, ok := g.edges[from]; ok {
		return to
	}
	if entry, ok := g.routers[from]; ok {
		next := entry.route(st)
		if next == "" {
			return End
		}
		return next
	}
	return End
}

// NodeInfo describes a node in the graph for introspection.
type NodeInfo struct {
	ID           string `json:"id"`
	SuspendPoint bool   `json:"suspendPoint"`
}

// NodeInfos returns metadata about all nodes in the graph.
func (g *Graph) NodeInfos() []NodeInfo {
	if g == nil {
		return nil
	}
	out := make([]NodeInfo, 0, len(g.nodes))
	for id := range g.nodes {
		_, suspend := g.suspends[id]
		out = append(out, NodeInfo{ID: id, SuspendPoint: suspend})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
