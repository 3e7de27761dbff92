package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reflow/internal/compiler"
	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/journal"
	"github.com/roach88/reflow/internal/layout"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Tree     string
	Zoom     int

	// PassGenerator allows overriding the pass token generator (for
	// testing). If nil, defaults to UUIDv7Generator.
	PassGenerator field.PassTokenGenerator
}

// NodeGeometry is the settled geometry of one node.
type NodeGeometry struct {
	Name   string `json:"name"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// RunResult holds the run command output.
type RunResult struct {
	Tree       string         `json:"tree"`
	PassToken  string         `json:"pass_token"`
	Recomputes int            `json:"recomputes"`
	Geometry   []NodeGeometry `json:"geometry"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <specs-dir>",
		Short: "Build a tree and settle it, journaling the trace",
		Long: `Build a layout tree from compiled specs, run one settling pass,
and journal every engine event to the SQLite trace database.

The database is created if it doesn't exist. Subsequent runs append
new passes; use trace and replay to inspect them.

Example:
  reflow run --db ./reflow.db ./specs
  reflow run --db ./reflow.db ./specs --tree viewport --zoom 150`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettle(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Tree, "tree", "", "tree to build (defaults to the only tree in the specs)")
	cmd.Flags().IntVar(&opts.Zoom, "zoom", layout.DefaultZoom, "viewport zoom in percent")

	return cmd
}

func runSettle(opts *RunOptions, specsDir string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	logger.Info("compiling specs", "dir", specsDir)
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to compile specs", loadErrors[0])
	}

	spec, err := findTree(loadResult, opts.Tree)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to pick tree", err)
	}

	if errs := compiler.Validate(spec); len(errs) > 0 {
		return WrapExitError(ExitFailure, "invalid tree spec", &errs[0])
	}
	if cycles := compiler.AnalyzeCycles(spec); len(cycles) > 0 {
		return WrapExitError(ExitFailure, "invalid tree spec", &cycles[0])
	}
	logger.Info("spec compiled", "tree", spec.Name, "nodes", len(spec.Nodes))

	logger.Info("opening journal", "path", opts.Database)
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			logger.Error("error closing journal", "error", closeErr)
		}
	}()

	// Resume the logical clock past the journaled history so appended
	// passes keep globally unique sequence numbers.
	lastSeq, err := j.LastSeq(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal position", err)
	}

	rec := journal.NewRecorder(j)
	tree, err := layout.FromSpec(spec, nil,
		field.WithTracer(rec),
		field.WithLogger(logger),
		field.WithClock(field.NewClockAt(lastSeq)),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build tree", err)
	}
	if opts.Zoom != layout.DefaultZoom {
		tree.SetZoom(opts.Zoom)
	}

	passGen := opts.PassGenerator
	if passGen == nil {
		passGen = field.UUIDv7Generator{}
	}
	token := passGen.Generate()

	recomputes := tree.RecomputeAll(token)
	logger.Info("pass settled", "pass", token, "recomputes", recomputes)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := rec.Flush(ctx); err != nil {
		return WrapExitError(ExitCommandError, "failed to flush trace", err)
	}

	result := RunResult{
		Tree:       spec.Name,
		PassToken:  token,
		Recomputes: recomputes,
		Geometry:   collectGeometry(tree),
	}

	formatter := NewFormatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Tree %s settled in pass %s (%d recomputes)\n", result.Tree, result.PassToken, result.Recomputes)
	for _, g := range result.Geometry {
		fmt.Fprintf(w, "  %-12s x=%-5d y=%-5d w=%-5d h=%d\n", g.Name, g.X, g.Y, g.Width, g.Height)
	}
	return nil
}

// collectGeometry walks the settled tree pre-order.
func collectGeometry(tree *layout.Tree) []NodeGeometry {
	var out []NodeGeometry
	var walk func(n *layout.Node)
	walk = func(n *layout.Node) {
		out = append(out, NodeGeometry{
			Name:   n.Name,
			X:      n.X.Get(),
			Y:      n.Y.Get(),
			Width:  n.Width.Get(),
			Height: n.Height.Get(),
		})
		for _, kid := range n.Kids() {
			walk(kid)
		}
	}
	walk(tree.Root())
	return out
}
