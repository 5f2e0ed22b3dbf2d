package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/fnjit/internal/engine"
	"github.com/roach88/fnjit/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Inputs []string // key=value pairs
	Batch  string   // JSON lines file; "-" reads stdin

	// IDGenerator allows overriding the ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// Call is one line of a batch file.
type Call struct {
	Function string         `json:"function"`
	Inputs   map[string]any `json:"inputs"`
}

// CallResult is the reported outcome of one call.
type CallResult struct {
	ID       string            `json:"id,omitempty"`
	Function string            `json:"function"`
	Seq      int64             `json:"seq,omitempty"`
	Outputs  map[string]string `json:"outputs,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <path> [function]",
		Short: "Call a function with the given inputs",
		Long: `Load function definitions from path and call one of them.

Inputs are given as name=value pairs and decoded by the parameter type:
floats and ints as numbers, bools as true/false and fvec3 as x,y,z.

With --batch, calls are read as JSON lines of the form
{"function": "lerp", "inputs": {"a": 0, "b": 10, "t": 0.5}} and run in
order through the request loop. Ctrl-C stops after the current call.

With --db every compilation and call is logged to SQLite.

Examples:
  fnjit run ./functions lerp -i a=0 -i b=10 -i t=0.25
  fnjit run ./functions scale -i v=1,2,3 -i k=2 --engine interp
  fnjit run ./functions --batch calls.jsonl --db ./fnjit.db`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunctions(opts, args, cmd)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Inputs, "input", "i", nil, "input as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "file of JSON-line calls (- for stdin)")

	return cmd
}

func runFunctions(opts *RunOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	var calls []Call
	switch {
	case opts.Batch != "" && len(args) > 1:
		return NewExitError(ExitCommandError, "a function argument cannot be combined with --batch")
	case opts.Batch != "":
		var err error
		if calls, err = readBatch(opts.Batch, cmd.InOrStdin()); err != nil {
			return WrapExitError(ExitCommandError, "failed to read batch", err)
		}
	case len(args) == 2:
		inputs, err := ParseInputs(opts.Inputs)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid input", err)
		}
		calls = []Call{{Function: args[1], Inputs: inputs}}
	default:
		return NewExitError(ExitCommandError, "function name or --batch is required")
	}

	reg, defs, err := loadRegistry(args[:1])
	if err != nil {
		return err
	}
	logger.Info("functions loaded", "path", args[0], "count", len(defs))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ids := opts.IDGenerator
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}
	engOpts := []engine.Option{
		engine.WithEngine(opts.engineName()),
		engine.WithLogger(logger),
		engine.WithIDGenerator(ids),
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		clock, err := engine.ResumeClock(ctx, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		engOpts = append(engOpts, engine.WithStore(st), engine.WithClock(clock))
		logger.Info("database ready", "path", opts.Database, "seq", clock.Current())
	}

	eng, err := engine.New(reg, engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}
	defer eng.Close()

	results, err := runCalls(ctx, eng, calls, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	return outputCallResults(formatter, results)
}

// runCalls feeds calls through the engine's request loop and collects one
// result per call. SIGINT or SIGTERM cancels the calls not yet run.
func runCalls(parent context.Context, eng *engine.Engine, calls []Call, logger *slog.Logger) ([]CallResult, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	pending := make([]<-chan engine.Outcome, 0, len(calls))
	for _, c := range calls {
		done, ok := eng.Submit(c.Function, c.Inputs)
		if !ok {
			return nil, errors.New("engine stopped")
		}
		pending = append(pending, done)
	}
	eng.Stop()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	results := make([]CallResult, len(calls))
	for i, done := range pending {
		out := <-done
		results[i] = CallResult{Function: calls[i].Function}
		if out.Err != nil {
			results[i].Error = out.Err.Error()
			continue
		}
		results[i].ID = out.Result.ID
		results[i].Seq = out.Result.Seq
		results[i].Outputs = out.Result.Formatted
	}
	return results, <-runErr
}

// ParseInputs turns name=value pairs into an input map. Values stay
// strings; the parameter codecs decode them.
func ParseInputs(pairs []string) (map[string]any, error) {
	inputs := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("input %q must be name=value", p)
		}
		if _, dup := inputs[name]; dup {
			return nil, fmt.Errorf("input %q given more than once", name)
		}
		inputs[name] = value
	}
	return inputs, nil
}

// readBatch reads JSON-line calls from path, or from stdin when path is "-".
// Blank lines are skipped.
func readBatch(path string, stdin io.Reader) ([]Call, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var calls []Call
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var c Call
		if err := json.Unmarshal([]byte(text), &c); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if c.Function == "" {
			return nil, fmt.Errorf("line %d: function is required", line)
		}
		if c.Inputs == nil {
			c.Inputs = map[string]any{}
		}
		calls = append(calls, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, errors.New("no calls found")
	}
	return calls, nil
}

// outputCallResults prints results. Any failed call makes the command exit
// with ExitFailure.
func outputCallResults(formatter *OutputFormatter, results []CallResult) error {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	if formatter.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: results}
		if failed > 0 {
			resp.Status = "error"
			resp.Error = &CLIError{
				Code:    ErrCodeEngine,
				Message: fmt.Sprintf("%d of %d call(s) failed", failed, len(results)),
			}
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(w, "%s %s: %s\n", formatter.Fail(), r.Function, r.Error)
				continue
			}
			fmt.Fprintf(w, "%s %s [seq %d]\n", formatter.Pass(), r.Function, r.Seq)
			names := make([]string, 0, len(r.Outputs))
			for k := range r.Outputs {
				names = append(names, k)
			}
			sort.Strings(names)
			for _, k := range names {
				fmt.Fprintf(w, "  %s = %s\n", k, r.Outputs[k])
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d call(s) failed", failed, len(results)))
	}
	return nil
}
