package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/ir"
	"github.com/roach88/reflow/internal/layout"
)

// AssertionError is returned when an assertion fails. It includes the
// trace for debugging context.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []field.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		if ev.Owner == "" {
			fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Kind, ev.Pass)
			continue
		}
		fmt.Fprintf(&buf, "  [%d] %s %s.%s changed=%v\n", ev.Seq, ev.Kind, ev.Owner, ev.Field, ev.Changed)
	}

	return buf.String()
}

// evaluate dispatches one assertion against the result.
func evaluate(result *Result, tree *layout.Tree, a Assertion) error {
	switch a.Type {
	case AssertFieldValue:
		return assertFieldValue(result, tree, a)
	case AssertDirty:
		return assertDirtiness(result, tree, a, true)
	case AssertClean:
		return assertDirtiness(result, tree, a, false)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertRecomputeCount:
		return assertRecomputeCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertFieldValue checks a final field value. The field must be
// clean: asserting on a dirty field's cached value would be exactly
// the stale read the engine forbids.
func assertFieldValue(result *Result, tree *layout.Tree, a Assertion) error {
	state, err := tree.Lookup(ir.FieldKey(a.Field))
	if err != nil {
		return err
	}
	if state.Dirty {
		return &AssertionError{
			Type:     AssertFieldValue,
			Expected: fmt.Sprintf("%s == %v", a.Field, a.Value),
			Actual:   fmt.Sprintf("%s is dirty", a.Field),
			Trace:    result.Trace,
		}
	}
	if !valuesEqual(state.Value, a.Value) {
		return &AssertionError{
			Type:     AssertFieldValue,
			Expected: fmt.Sprintf("%s == %v", a.Field, a.Value),
			Actual:   fmt.Sprintf("%s == %v", a.Field, state.Value),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertDirtiness checks a final dirty flag.
func assertDirtiness(result *Result, tree *layout.Tree, a Assertion, wantDirty bool) error {
	state, err := tree.Lookup(ir.FieldKey(a.Field))
	if err != nil {
		return err
	}
	if state.Dirty != wantDirty {
		want, got := "dirty", "clean"
		if !wantDirty {
			want, got = "clean", "dirty"
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s is %s", a.Field, want),
			Actual:   fmt.Sprintf("%s is %s", a.Field, got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertTraceContains checks that at least one event matches the
// kind, optional "node.field" key, and optional changed flag.
func assertTraceContains(trace []field.Event, a Assertion) error {
	for _, ev := range trace {
		if string(ev.Kind) != a.Kind {
			continue
		}
		if a.Field != "" && eventKey(ev) != a.Field {
			continue
		}
		if a.Changed != nil && ev.Changed != *a.Changed {
			continue
		}
		return nil
	}

	want := a.Kind
	if a.Field != "" {
		want += " " + a.Field
	}
	if a.Changed != nil {
		want += fmt.Sprintf(" changed=%v", *a.Changed)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: want,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first set event of each listed
// field appears in the given order. Events don't need to be
// consecutive.
func assertTraceOrder(trace []field.Event, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if ev.Kind != field.EventSet {
			continue
		}
		key := eventKey(ev)
		if _, seen := positions[key]; !seen {
			positions[key] = i + 1 // 1-indexed for readability
		}
	}

	for _, key := range a.Fields {
		if positions[key] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("set events for all of %v", a.Fields),
				Actual:   fmt.Sprintf("no set event for %s", key),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Fields); i++ {
		prev, curr := a.Fields[i-1], a.Fields[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("set events in order: %v", a.Fields),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertRecomputeCount checks the recompute count of one pass.
// Pass 0 is the initial settling pass; nil selects the last pass.
func assertRecomputeCount(result *Result, a Assertion) error {
	idx := len(result.RecomputeCounts) - 1
	if a.Pass != nil {
		idx = *a.Pass
	}
	if idx < 0 || idx >= len(result.RecomputeCounts) {
		return &AssertionError{
			Type:     AssertRecomputeCount,
			Expected: fmt.Sprintf("pass index %d", idx),
			Actual:   fmt.Sprintf("only %d passes ran", len(result.RecomputeCounts)),
			Trace:    result.Trace,
		}
	}
	if result.RecomputeCounts[idx] != a.Count {
		return &AssertionError{
			Type:     AssertRecomputeCount,
			Expected: fmt.Sprintf("pass %d recomputes %d fields", idx, a.Count),
			Actual:   fmt.Sprintf("pass %d recomputed %d fields", idx, result.RecomputeCounts[idx]),
			Trace:    result.Trace,
		}
	}
	return nil
}

func eventKey(ev field.Event) string {
	return ev.Owner + "." + ev.Field
}

// valuesEqual compares a field state against a YAML-decoded expected
// value. Integers are normalized first: YAML hands us int, the layout
// host hands us int, but nested values may arrive as int64.
func valuesEqual(got, want any) bool {
	return reflect.DeepEqual(normalize(got), normalize(want))
}

func normalize(v any) any {
	switch val := v.(type) {
	case int64:
		return int(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	default:
		return v
	}
}
