package event

import (
	"testing"
	"time"
)

type recordingListener struct {
	NopListener
	calls []string
}

func (r *recordingListener) GraphStarted(e Event) { r.calls = append(r.calls, "graph-start") }
func (r *recordingListener) NodeStarted(e Event)  { r.calls = append(r.calls, "node-start:"+e.NodeID) }
func (r *recordingListener) NodeFailed(e Event)   { r.calls = append(r.calls, "node-fail") }

func TestNormalize_FillsDefaults(t *testing.T) {
	e := Event{CorrelationID: "c1"}
	e.Normalize()
	if e.Timestamp.IsZero() {
		t.Fatalf("expected timestamp to be filled")
	}
	if e.Metadata == nil {
		t.Fatalf("expected metadata map to be allocated")
	}

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e2 := Event{Timestamp: fixed}
	e2.Normalize()
	if !e2.Timestamp.Equal(fixed) {
		t.Fatalf("normalize must not overwrite an explicit timestamp")
	}
}

func TestListeners_FanOutPreservesOrder(t *testing.T) {
	first := &recordingListener{}
	second := &recordingListener{}
	fan := Listeners{first, nil, second}

	fan.GraphStarted(Event{CorrelationID: "run"})
	fan.NodeStarted(Event{CorrelationID: "n1", NodeID: "retrieve"})
	fan.NodeFailed(Event{CorrelationID: "n1", Error: "boom"})

	want := []string{"graph-start", "node-start:retrieve", "node-fail"}
	for _, rec := range []*recordingListener{first, second} {
		if len(rec.calls) != len(want) {
			t.Fatalf("expected %d calls, got %v", len(want), rec.calls)
		}
		for i := range want {
			if rec.calls[i] != want[i] {
				t.Fatalf("call %d: want %q got %q", i, want[i], rec.calls[i])
			}
		}
	}
}
