package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/roach88/fnjit/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Function     string // optional - filter to one function
	Limit        int    // most recent invocations; 0 means all
	Compilations bool   // include compilation records
	IR           string // print the IR of one compilation
	Stats        bool   // print log statistics only
}

// TraceEvent represents a single record in the log timeline.
type TraceEvent struct {
	Seq         int64             `json:"seq"`
	Type        string            `json:"type"` // "compilation" or "invocation"
	ID          string            `json:"id"`
	Function    string            `json:"function"`
	Kind        string            `json:"kind,omitempty"`
	Engine      string            `json:"engine,omitempty"`
	Compilation string            `json:"compilation,omitempty"`
	Inputs      map[string]string `json:"inputs,omitempty"`
	Outputs     map[string]string `json:"outputs,omitempty"`
	Error       string            `json:"error,omitempty"`
	IRSize      int               `json:"ir_size,omitempty"`
}

// TraceStats holds summary statistics for the log.
type TraceStats struct {
	Compilations  int   `json:"compilations"`
	Invocations   int   `json:"invocations"`
	Failures      int   `json:"failures"`
	IRBytes       int64 `json:"ir_bytes"`
	IRStoredBytes int64 `json:"ir_stored_bytes"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Function string       `json:"function,omitempty"`
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the compilation and invocation log",
		Long: `Show the records written to a SQLite log by run.

The timeline lists invocations, and with --compilations the bodies that
were compiled for them, in seq order. --ir prints the IR text stored for
one compilation. --stats prints record counts and IR storage sizes.

Examples:
  fnjit trace --db ./fnjit.db
  fnjit trace --db ./fnjit.db --function lerp --limit 10
  fnjit trace --db ./fnjit.db --compilations --format json
  fnjit trace --db ./fnjit.db --ir 0190a6c4-...
  fnjit trace --db ./fnjit.db --stats`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Function, "function", "", "filter to one function")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent n invocations")
	cmd.Flags().BoolVar(&opts.Compilations, "compilations", false, "include compilation records")
	cmd.Flags().StringVar(&opts.IR, "ir", "", "print the IR of the compilation with this id")
	cmd.Flags().BoolVar(&opts.Stats, "stats", false, "print log statistics")

	return cmd
}

// openLog opens an existing log database. run creates the log; commands
// that only read it refuse to create an empty one.
func openLog(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
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

	if opts.IR != "" {
		return outputIR(ctx, formatter, st, opts.IR)
	}

	raw, err := st.Stats(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read stats", err)
	}
	stats := TraceStats(raw)

	if opts.Stats {
		if opts.Format == "json" {
			return formatter.Success(stats)
		}
		outputStatsText(formatter, stats)
		return nil
	}

	timeline, err := buildTimeline(ctx, st, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read log", err)
	}
	result := TraceResult{Function: opts.Function, Timeline: timeline, Stats: stats}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// buildTimeline merges invocation and, optionally, compilation records in
// seq order. Compilations are restricted to those at or after the oldest
// listed invocation when a limit is set.
func buildTimeline(ctx context.Context, st *store.Store, opts *TraceOptions) ([]TraceEvent, error) {
	invs, err := st.ListInvocations(ctx, opts.Function, opts.Limit)
	if err != nil {
		return nil, err
	}

	timeline := make([]TraceEvent, 0, len(invs))
	for _, inv := range invs {
		timeline = append(timeline, TraceEvent{
			Seq:         inv.Seq,
			Type:        "invocation",
			ID:          inv.ID,
			Function:    inv.Function,
			Compilation: inv.CompilationID,
			Inputs:      inv.Inputs,
			Outputs:     inv.Outputs,
			Error:       inv.Error,
		})
	}

	if opts.Compilations {
		comps, err := st.ListCompilations(ctx, opts.Function)
		if err != nil {
			return nil, err
		}
		var minSeq int64
		if opts.Limit > 0 && len(invs) > 0 {
			minSeq = invs[0].Seq
		}
		for _, c := range comps {
			if c.Seq < minSeq {
				continue
			}
			timeline = append(timeline, TraceEvent{
				Seq:      c.Seq,
				Type:     "compilation",
				ID:       c.ID,
				Function: c.Function,
				Kind:     c.Kind,
				Engine:   c.Engine,
				IRSize:   c.IRSize,
			})
		}
	}

	sort.SliceStable(timeline, func(i, j int) bool { return timeline[i].Seq < timeline[j].Seq })
	return timeline, nil
}

func outputIR(ctx context.Context, formatter *OutputFormatter, st *store.Store, id string) error {
	c, err := st.ReadCompilation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("compilation not found: %s", id), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation not found: %s", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read compilation", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(TraceEvent{
			Seq:      c.Seq,
			Type:     "compilation",
			ID:       c.ID,
			Function: c.Function,
			Kind:     c.Kind,
			Engine:   c.Engine,
			IRSize:   c.IRSize,
		})
	}
	fmt.Fprintf(formatter.Writer, "; %s %s (%s, engine %s, seq %d)\n", c.ID, c.Function, c.Kind, c.Engine, c.Seq)
	fmt.Fprint(formatter.Writer, c.IR)
	if !strings.HasSuffix(c.IR, "\n") {
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func outputStatsText(formatter *OutputFormatter, s TraceStats) {
	w := formatter.Writer
	fmt.Fprintf(w, "Compilations: %d\n", s.Compilations)
	fmt.Fprintf(w, "Invocations:  %d (%d failed)\n", s.Invocations, s.Failures)
	fmt.Fprintf(w, "IR:           %s (%s stored)\n",
		units.BytesSize(float64(s.IRBytes)),
		units.BytesSize(float64(s.IRStoredBytes)))
}

// outputTraceText outputs the trace result as text.
func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer

	if len(result.Timeline) == 0 {
		if result.Function != "" {
			fmt.Fprintf(w, "No records found for function: %s\n", result.Function)
		} else {
			fmt.Fprintln(w, "No records found.")
		}
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		switch e.Type {
		case "compilation":
			fmt.Fprintf(w, "  [%d] compile %s -> %s (%s, %s IR)\n",
				e.Seq, e.Function, e.Kind, e.Engine, units.BytesSize(float64(e.IRSize)))
		default:
			fmt.Fprintf(w, "  [%d] call %s %s", e.Seq, e.Function, formatMap(e.Inputs))
			if e.Error != "" {
				fmt.Fprintf(w, " %s %s\n", formatter.Fail(), e.Error)
			} else {
				fmt.Fprintf(w, " -> %s\n", formatMap(e.Outputs))
			}
		}
		if formatter.Verbose {
			fmt.Fprintf(w, "      id: %s\n", e.ID)
		}
	}

	fmt.Fprintln(w)
	s := result.Stats
	fmt.Fprintf(w, "Log: %d compilation(s), %d invocation(s), %d failed\n", s.Compilations, s.Invocations, s.Failures)
	return nil
}

// formatMap renders values as "{a=1, b=2}" sorted by key.
func formatMap(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
