package graph

import "context"

// Node is one step of the workflow. It receives the full current state
// and returns the partial update it produced. A node must not mutate the
// state it receives; the executor owns the merge.
//
// Returning an error is reserved for contract violations the executor
// cannot recover from. Nodes that call out to a Brain or tool backend
// are expected to absorb those failures locally and surface them as
// degraded fields in the update instead.
type Node interface {
	Execute(ctx context.Context, st State) (Update, error)
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc func(ctx context.Context, st State) (Update, error)

func (f NodeFunc) Execute(ctx context.Context, st State) (Update, error) {
	if f == nil {
		return Update{}, nil
	}
	return f(ctx, st)
}
