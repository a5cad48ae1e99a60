package graph

import (
	"context"
	"fmt"
)

// Node is one unit of work. It receives a snapshot of the current run state
// and returns a partial update that the executor merges back by shallow key
// overwrite.
type Node interface {
	Execute(ctx context.Context, state map[string]any) (map[string]any, error)
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc func(ctx context.Context, state map[string]any) (map[string]any, error)

func (f NodeFunc) Execute(ctx context.Context, state map[string]any) (map[string]any, error) {
	if f == nil {
		return nil, fmt.Errorf("node func is nil")
	}
	return f(ctx, state)
}

// RouterNode writes a routing decision into the state under RouteKey so
// conditional edges can dispatch on it.
type RouterNode struct {
	Route    func(ctx context.Context, state map[string]any) (string, error)
	RouteKey string
}

func NewRouterNode(route func(ctx context.Context, state map[string]any) (string, error)) *RouterNode {
	return &RouterNode{Route: route}
}

func (n *RouterNode) Execute(ctx context.Context, state map[string]any) (map[string]any, error) {
	if n == nil || n.Route == nil {
		return nil, fmt.Errorf("router node route func is required")
	}
	route, err := n.Route(ctx, state)
	if err != nil {
		return nil, err
	}
	key := n.RouteKey
	if key == "" {
		key = "route"
	}
	return map[string]any{key: route}, nil
}
