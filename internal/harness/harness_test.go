package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarioFiles runs every scenario under testdata/scenarios
// against the real engine and requires all of their assertions to
// hold.
func TestScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no scenario files found")

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed:\n%s", strings.Join(result.Errors, "\n"))
			assert.Empty(t, result.Diagnostics, "unexpected advisory diagnostics")
		})
	}
}

func TestRunGoldenTrace(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/single-node-move.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
}

func TestRunRejectsCyclicSpec(t *testing.T) {
	scenario := &Scenario{
		Name:        "cyclic",
		Description: "invalidation cycle is a configuration error",
		Tree:        filepath.Join("testdata", "specs", "cyclic.cue"),
		Assertions: []Assertion{
			{Type: AssertClean, Field: "p.height"},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_CYCLE")
}

func TestRunUnknownMutationTarget(t *testing.T) {
	scenario := &Scenario{
		Name:        "unknown-node",
		Description: "mutating a node the tree does not have",
		Nodes:       []NodeDecl{{Name: "p"}},
		Passes: []PassStep{
			{Mutations: []Mutation{
				{SetOffset: &OffsetMutation{Node: "ghost", X: 1}},
			}},
		},
		Assertions: []Assertion{
			{Type: AssertClean, Field: "p.x"},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown node "ghost"`)
}

// TestRunAssertionFailure checks that a failing assertion flips the
// result and carries the trace in its message.
func TestRunAssertionFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong-expectation",
		Description: "deliberately wrong expected value",
		Nodes:       []NodeDecl{{Name: "p"}},
		Styles:      map[string]StyleDecl{"p": {Width: 100, Height: 40}},
		Assertions: []Assertion{
			{Type: AssertFieldValue, Field: "p.width", Value: 999},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: field_value")
	assert.Contains(t, result.Errors[0], "Full trace:")
}

func TestRunDuplicateInsertFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "duplicate-insert",
		Description: "inserting a node name that already exists",
		Nodes:       []NodeDecl{{Name: "p"}, {Name: "c", Parent: "p"}},
		Passes: []PassStep{
			{Mutations: []Mutation{
				{Insert: &InsertMutation{Parent: "p", Node: "c"}},
			}},
		},
		Assertions: []Assertion{
			{Type: AssertClean, Field: "p.height"},
		},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node name")
}

func TestRunWorkedExample(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/move-parent.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, strings.Join(result.Errors, "\n"))

	// The move must not touch any height: no set or mark events for a
	// height field after the initial settling pass.
	settled := false
	for _, ev := range result.Trace {
		if ev.Kind == "pass_begin" && ev.Pass == "pass-000002" {
			settled = true
			continue
		}
		if settled && ev.Field == "height" {
			t.Fatalf("height event after settling: %+v", ev)
		}
	}
	require.True(t, settled, "second pass missing from trace")
}
