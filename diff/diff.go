// Package diff computes normalized structural deltas between two state
// snapshots of a graph run.
//
// The result groups changes into three buckets keyed by a dotted path
// ("user.profile.name", "items[2]"): Added, Removed and Changed. Type
// changes at the same path fold into Changed. Two structurally equal
// snapshots produce a nil result.
package diff

import (
	"fmt"
	"reflect"
)

// Change records the old and new value at one path.
type Change struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Result is the normalized diff between two state snapshots. Empty buckets
// are omitted from serialized output.
type Result struct {
	Added   map[string]any    `json:"added,omitempty"`
	Removed map[string]any    `json:"removed,omitempty"`
	Changed map[string]Change `json:"changed,omitempty"`
}

// Empty reports whether the result carries no entries.
func (r *Result) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// Compute diffs two state snapshots. It returns nil when the snapshots are
// structurally equal. It never panics: values that cannot be compared are
// treated as fully replaced and land in Changed.
func Compute(before, after map[string]any) *Result {
	r := &Result{}
	for key, oldValue := range before {
		newValue, ok := after[key]
		if !ok {
			r.remove(key, oldValue)
			continue
		}
		r.walk(key, oldValue, newValue)
	}
	for key, newValue := range after {
		if _, ok := before[key]; !ok {
			r.add(key, newValue)
		}
	}
	if r.Empty() {
		return nil
	}
	return r
}

func (r *Result) walk(path string, oldValue, newValue any) {
	oldMap, oldIsMap := asMap(oldValue)
	newMap, newIsMap := asMap(newValue)
	if oldIsMap && newIsMap {
		for key, ov := range oldMap {
			nv, ok := newMap[key]
			if !ok {
				r.remove(path+"."+key, ov)
				continue
			}
			r.walk(path+"."+key, ov, nv)
		}
		for key, nv := range newMap {
			if _, ok := oldMap[key]; !ok {
				r.add(path+"."+key, nv)
			}
		}
		return
	}

	oldSeq, oldIsSeq := asSlice(oldValue)
	newSeq, newIsSeq := asSlice(newValue)
	if oldIsSeq && newIsSeq {
		shared := len(oldSeq)
		if len(newSeq) < shared {
			shared = len(newSeq)
		}
		for i := 0; i < shared; i++ {
			r.walk(fmt.Sprintf("%s[%d]", path, i), oldSeq[i], newSeq[i])
		}
		for i := shared; i < len(newSeq); i++ {
			r.add(fmt.Sprintf("%s[%d]", path, i), newSeq[i])
		}
		for i := shared; i < len(oldSeq); i++ {
			r.remove(fmt.Sprintf("%s[%d]", path, i), oldSeq[i])
		}
		return
	}

	if !scalarEqual(oldValue, newValue) {
		r.change(path, oldValue, newValue)
	}
}

func (r *Result) add(path string, value any) {
	if r.Added == nil {
		r.Added = map[string]any{}
	}
	r.Added[path] = value
}

func (r *Result) remove(path string, value any) {
	if r.Removed == nil {
		r.Removed = map[string]any{}
	}
	r.Removed[path] = value
}

func (r *Result) change(path string, oldValue, newValue any) {
	if r.Changed == nil {
		r.Changed = map[string]Change{}
	}
	r.Changed[path] = Change{Old: oldValue, New: newValue}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// scalarEqual compares two leaf values without panicking. A comparable
// type may still hold uncomparable contents (an array or struct wrapping a
// function value), so equality goes through reflect.DeepEqual, which never
// panics. Function values always compare unequal under DeepEqual and are
// recorded as full replacements.
func scalarEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		// Numeric literals decoded from JSON may disagree on width only.
		if na, ok := asFloat(a); ok {
			if nb, ok := asFloat(b); ok {
				return na == nb
			}
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
