package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reflow/internal/journal"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	PassToken string // optional - specific pass only
}

// ReplayPassResult holds the replay result for a single pass.
type ReplayPassResult struct {
	PassToken     string `json:"pass_token"`
	Events        int    `json:"events"`
	Deterministic bool   `json:"deterministic"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Passes           []ReplayPassResult `json:"passes"`
	TotalPasses      int                `json:"total_passes"`
	AllDeterministic bool               `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled passes and verify determinism",
		Long: `Replay journaled passes and verify their canonical traces are
stable.

Each pass is read back twice and serialized to canonical JSON; the two
serializations must be byte-identical. A divergence means the journal
or the serialization path is nondeterministic.

Exit codes:
  0 - All passes are deterministic
  1 - Determinism verification failed
  2 - Command error (journal not found, etc.)

Examples:
  reflow replay --db ./reflow.db
  reflow replay --db ./reflow.db --pass 0190a7e2-...
  reflow replay --db ./reflow.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite trace database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.PassToken, "pass", "", "replay specific pass only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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

	var tokens []string
	if opts.PassToken != "" {
		tokens = []string{opts.PassToken}
	} else {
		passes, err := j.Passes(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list passes", err)
		}
		for _, p := range passes {
			// Construction events are journaled under an empty token;
			// they are not a recompute pass.
			if p.Token == "" {
				continue
			}
			tokens = append(tokens, p.Token)
		}
	}

	if len(tokens) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{
				Passes:           []ReplayPassResult{},
				AllDeterministic: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No passes found in journal.")
		return nil
	}

	result := ReplayResult{
		Passes:           make([]ReplayPassResult, 0, len(tokens)),
		TotalPasses:      len(tokens),
		AllDeterministic: true,
	}

	for _, token := range tokens {
		passResult, err := replayAndVerifyPass(ctx, j, token)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay pass %s", token), err)
		}

		result.Passes = append(result.Passes, passResult)
		if !passResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// replayAndVerifyPass replays a single pass twice and compares the
// canonical traces byte for byte.
func replayAndVerifyPass(ctx context.Context, j *journal.Journal, token string) (ReplayPassResult, error) {
	events, trace1, err := j.ReplayPass(ctx, token)
	if err != nil {
		return ReplayPassResult{}, fmt.Errorf("first replay failed: %w", err)
	}

	_, trace2, err := j.ReplayPass(ctx, token)
	if err != nil {
		return ReplayPassResult{}, fmt.Errorf("second replay failed: %w", err)
	}

	return ReplayPassResult{
		PassToken:     token,
		Events:        len(events),
		Deterministic: bytes.Equal(trace1, trace2),
	}, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d pass(es)\n", result.TotalPasses)
	fmt.Fprintln(w)

	for _, pass := range result.Passes {
		status := "✓"
		if !pass.Deterministic {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Pass: %s\n", status, pass.PassToken)
		if verbose {
			fmt.Fprintf(w, "  Events: %d\n", pass.Events)
		}
		if !pass.Deterministic {
			fmt.Fprintln(w, "  Warning: Non-deterministic replay detected!")
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All passes verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	return NewExitError(ExitFailure, "determinism verification failed")
}
