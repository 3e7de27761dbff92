package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflow/internal/field"
)

func sampleTrace() []field.Event {
	return []field.Event{
		{Seq: 1, Pass: "pass-000001", Kind: field.EventPassBegin},
		{Seq: 2, Pass: "pass-000001", Kind: field.EventSet, Owner: "p", Field: "width", Changed: true},
		{Seq: 3, Pass: "pass-000001", Kind: field.EventSet, Owner: "c1", Field: "width", Changed: true},
		{Seq: 4, Pass: "pass-000001", Kind: field.EventMark, Owner: "c1", Field: "y"},
		{Seq: 5, Pass: "pass-000001", Kind: field.EventSet, Owner: "c1", Field: "y", Changed: false},
	}
}

func TestAssertTraceContains(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: "mark", Field: "c1.y"}))
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: "set"}))

	changed := false
	assert.NoError(t, assertTraceContains(trace, Assertion{Kind: "set", Field: "c1.y", Changed: &changed}))

	changed = true
	err := assertTraceContains(trace, Assertion{Kind: "set", Field: "c1.y", Changed: &changed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found in trace")

	err = assertTraceContains(trace, Assertion{Kind: "release"})
	require.Error(t, err)
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Fields: []string{"p.width", "c1.width", "c1.y"}}))

	err := assertTraceOrder(trace, Assertion{Fields: []string{"c1.width", "p.width"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Fields: []string{"p.width", "p.height"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no set event for p.height")
}

func TestAssertRecomputeCount(t *testing.T) {
	result := &Result{RecomputeCounts: []int{12, 6}}

	zero := 0
	one := 1
	assert.NoError(t, assertRecomputeCount(result, Assertion{Pass: &zero, Count: 12}))
	assert.NoError(t, assertRecomputeCount(result, Assertion{Pass: &one, Count: 6}))

	// Nil pass selects the last one.
	assert.NoError(t, assertRecomputeCount(result, Assertion{Count: 6}))

	err := assertRecomputeCount(result, Assertion{Pass: &one, Count: 7})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recomputed 6 fields")

	two := 2
	err = assertRecomputeCount(result, Assertion{Pass: &two, Count: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only 2 passes ran")
}

func TestValuesEqualNormalization(t *testing.T) {
	assert.True(t, valuesEqual(10, 10))
	assert.True(t, valuesEqual(int64(10), 10))
	assert.True(t, valuesEqual([]any{"c2", "c3"}, []any{"c2", "c3"}))
	assert.True(t, valuesEqual(
		map[string]any{"width": 100, "height": int64(40)},
		map[string]any{"width": int64(100), "height": 40},
	))
	assert.False(t, valuesEqual(10, 11))
	assert.False(t, valuesEqual("10", 10))
}

func TestAssertionErrorIncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertFieldValue,
		Expected: "p.x == 10",
		Actual:   "p.x == 0",
		Trace:    sampleTrace(),
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: field_value")
	assert.Contains(t, msg, "Expected: p.x == 10")
	assert.Contains(t, msg, "[1] pass_begin pass-000001")
	assert.Contains(t, msg, "[5] set c1.y changed=false")
}
