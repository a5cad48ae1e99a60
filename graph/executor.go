package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graphtap/graphtap/event"
	"github.com/graphtap/graphtap/traced"
)

const defaultMaxSteps = 100

// Executor runs a compiled graph and emits lifecycle events to the
// listeners of each call. It implements traced.Engine.
//
// Event protocol: one graph start event (run correlation id, input payload,
// no parent), then per node execution a start event (fresh correlation id,
// run id as parent, node id, 1-based step) followed by a finish or failure
// event carrying the same correlation id but no node id, and finally one
// graph finish or failure event.
type Executor struct {
	graph    *Graph
	maxSteps int
}

type ExecutorOption func(*Executor)

// WithMaxSteps bounds how many node executions one run may perform. Cyclic
// graphs need the bound to terminate runaway routes.
func WithMaxSteps(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

func NewExecutor(graph *Graph, opts ...ExecutorOption) (*Executor, error) {
	if graph == nil {
		return nil, fmt.Errorf("graph is required")
	}
	if err := graph.Compile(); err != nil {
		return nil, err
	}
	executor := &Executor{graph: graph, maxSteps: defaultMaxSteps}
	for _, opt := range opts {
		opt(executor)
	}
	return executor, nil
}

// Invoke executes the graph to completion and returns the final run state.
func (e *Executor) Invoke(ctx context.Context, input map[string]any, cfg *traced.RunConfig) (map[string]any, error) {
	if e == nil || e.graph == nil {
		return nil, fmt.Errorf("executor is not initialized")
	}
	return e.run(ctx, input, cfg, nil)
}

// Stream executes the graph in a goroutine, yielding one chunk per
// completed node. A run failure arrives as the final chunk's Err before the
// channel closes. Lifecycle events fire synchronously with execution.
func (e *Executor) Stream(ctx context.Context, input map[string]any, cfg *traced.RunConfig) (<-chan traced.Chunk, error) {
	if e == nil || e.graph == nil {
		return nil, fmt.Errorf("executor is not initialized")
	}
	out := make(chan traced.Chunk)
	go func() {
		defer close(out)
		_, err := e.run(ctx, input, cfg, func(node string, output map[string]any) {
			select {
			case out <- traced.Chunk{Node: node, Output: output}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			select {
			case out <- traced.Chunk{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (e *Executor) run(
	ctx context.Context,
	input map[string]any,
	cfg *traced.RunConfig,
	yield func(node string, output map[string]any),
) (map[string]any, error) {
	listeners := e.listeners(cfg)
	runID := uuid.NewString()
	state := cloneState(input)

	listeners.GraphStarted(event.Event{
		CorrelationID: runID,
		Payload:       cloneState(input),
		Timestamp:     time.Now().UTC(),
		Metadata:      map[string]any{"graphName": e.graph.Name()},
	})

	fail := func(err error) (map[string]any, error) {
		listeners.GraphFailed(event.Event{
			CorrelationID: runID,
			Error:         err.Error(),
			Timestamp:     time.Now().UTC(),
		})
		return nil, err
	}

	currentNodeID := e.graph.startNodeID
	step := 0
	for currentNodeID != "" {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		step++
		if step > e.maxSteps {
			return fail(fmt.Errorf("run exceeded max steps (%d)", e.maxSteps))
		}
		node, ok := e.graph.nodes[currentNodeID]
		if !ok {
			return fail(fmt.Errorf("node %q does not exist", currentNodeID))
		}

		nodeCorrelation := uuid.NewString()
		listeners.NodeStarted(event.Event{
			CorrelationID: nodeCorrelation,
			ParentID:      runID,
			NodeID:        currentNodeID,
			Step:          step,
			Timestamp:     time.Now().UTC(),
		})

		output, err := node.Execute(ctx, cloneState(state))
		if err != nil {
			listeners.NodeFailed(event.Event{
				CorrelationID: nodeCorrelation,
				ParentID:      runID,
				Error:         err.Error(),
				Timestamp:     time.Now().UTC(),
			})
			listeners.GraphFailed(event.Event{
				CorrelationID: runID,
				Error:         err.Error(),
				Timestamp:     time.Now().UTC(),
			})
			return nil, fmt.Errorf("node %q failed: %w", currentNodeID, err)
		}

		for k, v := range output {
			state[k] = v
		}
		listeners.NodeFinished(event.Event{
			CorrelationID: nodeCorrelation,
			ParentID:      runID,
			Payload:       cloneState(output),
			Timestamp:     time.Now().UTC(),
		})
		if yield != nil {
			yield(currentNodeID, cloneState(output))
		}

		nextNodeID, err := e.selectNextNode(ctx, currentNodeID, state)
		if err != nil {
			return fail(err)
		}
		currentNodeID = nextNodeID
	}

	listeners.GraphFinished(event.Event{
		CorrelationID: runID,
		Payload:       cloneState(state),
		Timestamp:     time.Now().UTC(),
	})
	return state, nil
}

func (e *Executor) selectNextNode(ctx context.Context, from string, state map[string]any) (string, error) {
	for _, edge := range e.graph.edges[from] {
		if edge.Condition == nil {
			return edge.To, nil
		}
		ok, err := edge.Condition(ctx, state)
		if err != nil {
			return "", fmt.Errorf("edge %q -> %q condition failed: %w", edge.From, edge.To, err)
		}
		if ok {
			return edge.To, nil
		}
	}
	return "", nil
}

func (e *Executor) listeners(cfg *traced.RunConfig) event.Listeners {
	if cfg == nil {
		return nil
	}
	return event.Listeners(cfg.Listeners)
}

func cloneState(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ traced.Engine = (*Executor)(nil)
