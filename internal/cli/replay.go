package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/fnjit/internal/engine"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Function string // optional - one function only
	Limit    int    // most recent invocations; 0 means all
}

// ReplayCallResult holds the replay result for a single logged invocation.
type ReplayCallResult struct {
	InvocationID string            `json:"invocation_id"`
	Function     string            `json:"function"`
	Seq          int64             `json:"seq"`
	Logged       map[string]string `json:"logged"`
	Replayed     map[string]string `json:"replayed,omitempty"`
	Diffs        []string          `json:"diffs,omitempty"`
	Error        string            `json:"error,omitempty"`
	Match        bool              `json:"match"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Engine   string             `json:"engine"`
	Calls    []ReplayCallResult `json:"calls"`
	Total    int                `json:"total"`
	AllMatch bool               `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <path>",
		Short: "Re-run logged invocations and compare outputs",
		Long: `Re-run the successful invocations in a SQLite log against a fresh
compilation of the functions under path and compare the outputs with the
logged ones. Replays are not written to the log.

Use --engine to check that another engine reproduces the same results.

Exit codes:
  0 - Every replayed call matched
  1 - One or more calls differed or failed
  2 - Command error (database not found, etc.)

Examples:
  fnjit replay ./functions --db ./fnjit.db
  fnjit replay ./functions --db ./fnjit.db --function lerp --limit 100
  fnjit replay ./functions --db ./fnjit.db --engine interp --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Function, "function", "", "replay one function only")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "replay only the most recent n invocations")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openLog(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	reg, _, err := loadRegistry([]string{path})
	if err != nil {
		return err
	}

	eng, err := engine.New(reg,
		engine.WithEngine(opts.engineName()),
		engine.WithLogger(opts.Logger(cmd.ErrOrStderr())),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	defer eng.Close()

	replays, err := eng.Replay(ctx, st, opts.Function, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay log", err)
	}

	result := ReplayResult{
		Engine:   eng.EngineName(),
		Calls:    make([]ReplayCallResult, 0, len(replays)),
		Total:    len(replays),
		AllMatch: true,
	}
	for _, r := range replays {
		call := ReplayCallResult{
			InvocationID: r.InvocationID,
			Function:     r.Function,
			Seq:          r.Seq,
			Logged:       r.Want,
			Replayed:     r.Got,
			Diffs:        r.Diff(),
			Match:        r.Match(),
		}
		if r.Err != nil {
			call.Error = r.Err.Error()
			call.Diffs = nil
		}
		if !call.Match {
			result.AllMatch = false
		}
		result.Calls = append(result.Calls, call)
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if !result.AllMatch {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_REPLAY_MISMATCH",
			Message: "replayed outputs differ from the log",
		}
	}
	if err := formatter.Encode(response); err != nil {
		return err
	}

	if !result.AllMatch {
		// Mismatch = exit code 1
		return NewExitError(ExitFailure, "replay mismatch")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	if result.Total == 0 {
		fmt.Fprintln(w, "No invocations found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d call(s) on engine %s\n\n", result.Total, result.Engine)

	for _, c := range result.Calls {
		if c.Match {
			if formatter.Verbose {
				fmt.Fprintf(w, "%s [%d] %s %s\n", formatter.Pass(), c.Seq, c.Function, formatMap(c.Logged))
			}
			continue
		}
		fmt.Fprintf(w, "%s [%d] %s (%s)\n", formatter.Fail(), c.Seq, c.Function, c.InvocationID)
		if c.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", c.Error)
		}
		for _, d := range c.Diffs {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}

	if result.AllMatch {
		fmt.Fprintf(w, "%s All calls reproduced\n", formatter.Pass())
		return nil
	}

	fmt.Fprintf(w, "%s Replay mismatch\n", formatter.Fail())
	// Mismatch = exit code 1
	return NewExitError(ExitFailure, "replay mismatch")
}
