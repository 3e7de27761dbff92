package journal

import (
	"context"
	"fmt"

	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/ir"
)

// ReplayPass returns the seq-ordered event stream of a pass together
// with its canonical serialization. Two runs of the same mutations
// against the same tree must produce byte-identical canonical traces;
// any divergence means nondeterminism leaked into the engine.
func (j *Journal) ReplayPass(ctx context.Context, token string) ([]field.Event, []byte, error) {
	events, err := j.ReadPass(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if len(events) == 0 {
		return nil, nil, fmt.Errorf("replay pass %q: no journaled events", token)
	}

	trace, err := CanonicalTrace(events)
	if err != nil {
		return nil, nil, fmt.Errorf("replay pass %q: %w", token, err)
	}
	return events, trace, nil
}

// CanonicalTrace serializes an event stream to RFC 8785 canonical JSON
// for golden comparison and determinism diffing.
func CanonicalTrace(events []field.Event) ([]byte, error) {
	arr := make(ir.Array, len(events))
	for i, ev := range events {
		obj := ir.Object{
			"seq":  ir.Int(ev.Seq),
			"pass": ir.String(ev.Pass),
			"kind": ir.String(string(ev.Kind)),
		}
		if ev.Owner != "" {
			obj["node"] = ir.String(ev.Owner)
			obj["field"] = ir.String(ev.Field)
		}
		if ev.Kind == field.EventSet {
			obj["changed"] = ir.Bool(ev.Changed)
		}
		arr[i] = obj
	}
	return ir.MarshalCanonical(arr)
}
