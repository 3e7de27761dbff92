package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	PassToken string // optional - specific pass only
	Kind      string // optional - filter to one event kind
}

// TraceEvent is one journaled engine event, flattened for output.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Pass    string `json:"pass"`
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"` // "node.field"
	Changed *bool  `json:"changed,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Passes []journal.PassInfo `json:"passes"`
	Events []TraceEvent       `json:"events"`
	Stats  TraceStats         `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Sets        int `json:"sets"`
	Marks       int `json:"marks"`
	Passes      int `json:"passes"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump the journaled event trace",
		Long: `Dump the journaled engine trace in sequence order.

Shows every create, mark, set, copy, and release event with its pass
token and logical sequence number. Filter to a single pass with --pass
or to one event kind with --kind.

Examples:
  reflow trace --db ./reflow.db
  reflow trace --db ./reflow.db --pass 0190a7e2-...
  reflow trace --db ./reflow.db --kind set --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.PassToken, "pass", "", "dump a single pass only")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind (create|mark|set|copy|release|pass_begin)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Database))
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	passes, err := j.Passes(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list passes", err)
	}

	var events []field.Event
	if opts.PassToken != "" {
		events, err = j.ReadPass(ctx, opts.PassToken)
	} else {
		events, err = j.ReadAll(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := buildTraceResult(passes, events, opts.Kind)

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTraceResult flattens journal events into the output shape.
func buildTraceResult(passes []journal.PassInfo, events []field.Event, kindFilter string) TraceResult {
	result := TraceResult{
		Passes: passes,
		Events: make([]TraceEvent, 0, len(events)),
		Stats:  TraceStats{Passes: len(passes)},
	}

	for _, ev := range events {
		switch ev.Kind {
		case field.EventSet:
			result.Stats.Sets++
		case field.EventMark:
			result.Stats.Marks++
		}

		if kindFilter != "" && string(ev.Kind) != kindFilter {
			continue
		}

		out := TraceEvent{
			Seq:  ev.Seq,
			Pass: ev.Pass,
			Kind: string(ev.Kind),
		}
		if ev.Owner != "" {
			out.Field = ev.Owner + "." + ev.Field
		}
		if ev.Kind == field.EventSet {
			changed := ev.Changed
			out.Changed = &changed
		}
		result.Events = append(result.Events, out)
	}
	result.Stats.TotalEvents = len(events)

	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events in journal.")
		return nil
	}

	fmt.Fprintln(w, "=== Trace ===")
	for _, ev := range result.Events {
		switch {
		case ev.Kind == "pass_begin":
			fmt.Fprintf(w, "[%d] PASS %s\n", ev.Seq, ev.Pass)
		case ev.Changed != nil:
			fmt.Fprintf(w, "  [%d] %s %s changed=%v\n", ev.Seq, ev.Kind, ev.Field, *ev.Changed)
		default:
			fmt.Fprintf(w, "  [%d] %s %s\n", ev.Seq, ev.Kind, ev.Field)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Sets:         %d\n", result.Stats.Sets)
	fmt.Fprintf(w, "  Marks:        %d\n", result.Stats.Marks)
	fmt.Fprintf(w, "  Passes:       %d\n", result.Stats.Passes)

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Passes ===")
		for _, p := range result.Passes {
			fmt.Fprintf(w, "  %s (from seq %d)\n", p.Token, p.StartedSeq)
		}
	}

	return nil
}
