package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/reflow/internal/compiler"
	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/ir"
	"github.com/roach88/reflow/internal/journal"
	"github.com/roach88/reflow/internal/layout"
	"github.com/roach88/reflow/internal/testutil"
)

// Run executes a scenario against the real engine and returns the
// result.
//
// Each scenario runs in a fresh in-memory journal with a sequenced
// pass-token generator for reproducible traces.
//
// Execution flow:
//  1. Compile and validate the tree spec (file or inline)
//  2. Build the layout tree with a journal recorder attached
//  3. Run the initial settling pass
//  4. Apply each mutation batch followed by a recompute pass
//  5. Flush the trace, read it back, evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	spec, err := treeSpec(scenario)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(spec); len(errs) > 0 {
		return nil, fmt.Errorf("invalid tree spec: %s", errs[0].Error())
	}
	if cycles := compiler.AnalyzeCycles(spec); len(cycles) > 0 {
		return nil, fmt.Errorf("invalid tree spec: %s", cycles[0].Error())
	}

	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	rec := journal.NewRecorder(j)
	result := NewResult()

	styles := make(map[string]layout.Style, len(scenario.Styles))
	for name, decl := range scenario.Styles {
		styles[name] = layout.Style{Width: decl.Width, Height: decl.Height}
	}

	tree, err := layout.FromSpec(spec, styles,
		field.WithTracer(rec),
		field.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		field.WithDiagnostics(func(d *field.Diagnostic) {
			result.Diagnostics = append(result.Diagnostics, d)
		}),
	)
	if err != nil {
		return nil, err
	}
	result.Tree = tree

	tokens := testutil.NewSequencedPassGenerator("")

	// Fatal engine errors (stale dependency, dirty-dep set) surface as
	// panics by design; the harness reports them as scenario errors.
	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("engine fault: %v", r)
			}
		}()

		result.RecomputeCounts = append(result.RecomputeCounts, tree.RecomputeAll(tokens.Generate()))
		for i, pass := range scenario.Passes {
			for k, m := range pass.Mutations {
				if err := applyMutation(tree, &m); err != nil {
					return fmt.Errorf("passes[%d].mutations[%d]: %w", i, k, err)
				}
			}
			result.RecomputeCounts = append(result.RecomputeCounts, tree.RecomputeAll(tokens.Generate()))
		}
		return nil
	}()
	if runErr != nil {
		return nil, runErr
	}

	ctx := context.Background()
	if err := rec.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush trace: %w", err)
	}
	trace, err := j.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	result.Trace = trace

	for _, assertion := range scenario.Assertions {
		if err := evaluate(result, tree, assertion); err != nil {
			result.AddError(err.Error())
		}
	}

	return result, nil
}

// treeSpec resolves the scenario's tree definition, either compiling
// the referenced CUE file or lifting the inline node list.
func treeSpec(scenario *Scenario) (*ir.TreeSpec, error) {
	if scenario.Tree != "" {
		return loadTreeFile(scenario.Tree)
	}

	spec := &ir.TreeSpec{Name: scenario.Name}
	for _, decl := range scenario.Nodes {
		spec.Nodes = append(spec.Nodes, ir.NodeSpec{Name: decl.Name, Parent: decl.Parent})
	}
	return spec, nil
}

// loadTreeFile compiles a single CUE file and extracts the first tree
// definition under the "tree" label.
func loadTreeFile(path string) (*ir.TreeSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree spec: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile tree spec: %w", err)
	}

	trees := v.LookupPath(cue.ParsePath("tree"))
	if !trees.Exists() {
		return nil, fmt.Errorf("%s: no tree definition found", path)
	}
	iter, err := trees.Fields()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if !iter.Next() {
		return nil, fmt.Errorf("%s: empty tree definition", path)
	}
	return compiler.CompileTree(iter.Value())
}

// applyMutation dispatches one mutation to the tree's entry points.
func applyMutation(tree *layout.Tree, m *Mutation) error {
	switch {
	case m.SetStyle != nil:
		n := tree.Node(m.SetStyle.Node)
		if n == nil {
			return fmt.Errorf("set_style: unknown node %q", m.SetStyle.Node)
		}
		n.SetStyle(layout.Style{Width: m.SetStyle.Width, Height: m.SetStyle.Height})
	case m.SetOffset != nil:
		n := tree.Node(m.SetOffset.Node)
		if n == nil {
			return fmt.Errorf("set_offset: unknown node %q", m.SetOffset.Node)
		}
		n.SetOffset(layout.Point{X: m.SetOffset.X, Y: m.SetOffset.Y})
	case m.SetZoom != nil:
		tree.SetZoom(m.SetZoom.Percent)
	case m.Insert != nil:
		parent := tree.Node(m.Insert.Parent)
		if parent == nil {
			return fmt.Errorf("insert: unknown parent %q", m.Insert.Parent)
		}
		if _, err := tree.AddChild(parent, m.Insert.Node, layout.Style{Width: m.Insert.Width, Height: m.Insert.Height}); err != nil {
			return err
		}
	case m.Remove != nil:
		n := tree.Node(m.Remove.Node)
		if n == nil {
			return fmt.Errorf("remove: unknown node %q", m.Remove.Node)
		}
		if err := tree.RemoveChild(n); err != nil {
			return err
		}
	}
	return nil
}
