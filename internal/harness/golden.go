package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reflow/internal/ir"
)

// RunWithGolden executes a scenario and compares its trace against the
// golden file testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if scenario execution fails; trace mismatches fail
// the test through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot, err := snapshotJSON(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result, nil
}

// snapshotJSON builds the canonical golden payload for a result.
func snapshotJSON(name string, result *Result) ([]byte, error) {
	counts := make(ir.Array, len(result.RecomputeCounts))
	for i, c := range result.RecomputeCounts {
		counts[i] = ir.Int(c)
	}

	events := make(ir.Array, len(result.Trace))
	for i, ev := range result.Trace {
		obj := ir.Object{
			"seq":  ir.Int(ev.Seq),
			"pass": ir.String(ev.Pass),
			"kind": ir.String(string(ev.Kind)),
		}
		if ev.Owner != "" {
			obj["node"] = ir.String(ev.Owner)
			obj["field"] = ir.String(ev.Field)
		}
		if string(ev.Kind) == "set" {
			obj["changed"] = ir.Bool(ev.Changed)
		}
		events[i] = obj
	}

	return ir.MarshalCanonical(ir.Object{
		"scenario_name":    ir.String(name),
		"recompute_counts": counts,
		"trace":            events,
	})
}
