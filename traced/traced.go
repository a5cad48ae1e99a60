// Package traced wraps an executable graph engine so every invocation
// captures a trace.Trace as a side effect, without altering what the engine
// returns or yields.
package traced

import (
	"context"
	"fmt"
	"sync"

	"github.com/graphtap/graphtap/capture"
	"github.com/graphtap/graphtap/event"
	"github.com/graphtap/graphtap/trace"
)

// Chunk is one streamed increment from an engine: the node that just
// completed and its output. A terminal chunk may carry the run error.
type Chunk struct {
	Node   string
	Output map[string]any
	Err    error
}

// RunConfig is the per-call configuration mapping handed to the engine.
// Listeners receive the run's lifecycle events synchronously.
type RunConfig struct {
	Listeners []event.Listener
	Metadata  map[string]any
}

func (c *RunConfig) withListener(l event.Listener) *RunConfig {
	out := &RunConfig{}
	if c != nil {
		out.Listeners = append(out.Listeners, c.Listeners...)
		out.Metadata = c.Metadata
	}
	out.Listeners = append(out.Listeners, l)
	return out
}

// Engine is the executable graph collaborator. Implementations must emit
// the lifecycle events described in package event to every configured
// listener, synchronously with execution.
type Engine interface {
	Invoke(ctx context.Context, input map[string]any, cfg *RunConfig) (map[string]any, error)
	Stream(ctx context.Context, input map[string]any, cfg *RunConfig) (<-chan Chunk, error)
}

// Graph wraps an Engine and records a trace per call.
//
// LastTrace is a single slot overwritten by each call. Overlapping calls on
// one Graph race on that slot; callers that need concurrent isolated traces
// must use independent Graph instances.
type Graph struct {
	engine Engine

	mu   sync.Mutex
	last *trace.Trace
}

// Wrap returns a traced view of the engine.
func Wrap(engine Engine) *Graph {
	return &Graph{engine: engine}
}

// LastTrace returns the trace of the most recent completed call, or nil. A
// stream abandoned before exhaustion never updates the slot.
func (g *Graph) LastTrace() *trace.Trace {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func (g *Graph) setLast(t *trace.Trace) {
	g.mu.Lock()
	g.last = t
	g.mu.Unlock()
}

// Invoke runs the graph synchronously, returning the engine's result
// unmodified. On failure the partial trace is stored before the error is
// returned.
func (g *Graph) Invoke(ctx context.Context, input map[string]any, cfg *RunConfig) (map[string]any, error) {
	if g == nil || g.engine == nil {
		return nil, fmt.Errorf("traced graph is not initialized")
	}
	interceptor := capture.NewInterceptor()
	out, err := g.engine.Invoke(ctx, input, cfg.withListener(interceptor))
	g.setLast(interceptor.Trace())
	return out, err
}

// Stream runs the graph incrementally, re-yielding every chunk the engine
// produces. The trace lands in LastTrace once the returned channel is
// drained; abandoning the channel leaves the previous trace in place.
//
// The forwarding goroutine exits through ctx cancellation. A caller that
// may stop receiving before the channel closes must pass a cancellable
// context and cancel it, or the goroutine stays parked on its next send.
func (g *Graph) Stream(ctx context.Context, input map[string]any, cfg *RunConfig) (<-chan Chunk, error) {
	if g == nil || g.engine == nil {
		return nil, fmt.Errorf("traced graph is not initialized")
	}
	interceptor := capture.NewInterceptor()
	src, err := g.engine.Stream(ctx, input, cfg.withListener(interceptor))
	if err != nil {
		g.setLast(interceptor.Trace())
		return nil, err
	}

	out := make(chan Chunk)
	go func() {
		defer close(out)
		for chunk := range src {
			select {
			case out <- chunk:
			case <-ctx.Done():
				// Caller abandoned the stream: drain nothing further and
				// leave LastTrace untouched.
				return
			}
		}
		g.setLast(interceptor.Trace())
	}()
	return out, nil
}
