package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/compiler"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/engine"
	"github.com/roach88/fnjit/internal/tuplecall"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output    string   // directory for IR dumps
	Functions []string // functions to compile; empty means all loaded
	ShowIR    bool
}

// CompiledFunction describes one compiled function.
type CompiledFunction struct {
	Name        string   `json:"name"`
	Signature   string   `json:"signature"`
	Source      string   `json:"source,omitempty"`
	Bodies      []string `json:"bodies"`
	Unit        string   `json:"unit"`
	Engine      string   `json:"engine"`
	Fingerprint string   `json:"fingerprint"`
	IR          string   `json:"ir,omitempty"`
}

// CompilationResult holds the compiled functions.
type CompilationResult struct {
	Engine    string             `json:"engine"`
	Functions []CompiledFunction `json:"functions"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>...",
		Short: "Compile function definitions",
		Long: `Load CUE and HCL function definitions, validate them and derive a
tuple-call body for each one with the selected engine.

Callees are compiled first as standalone native-convention functions.

Examples:
  fnjit compile ./functions
  fnjit compile ./functions --function lerp --ir
  fnjit compile ./functions -o ./build/ir --engine interp`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "directory to write <function>.ir dumps to")
	cmd.Flags().StringSliceVarP(&opts.Functions, "function", "f", nil, "function to compile (repeatable)")
	cmd.Flags().BoolVar(&opts.ShowIR, "ir", false, "print the IR of each tuple-call unit")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, paths []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	defs, loadErrors := LoadFunctions(paths)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Loaded %d function(s) from %v", len(defs), paths)

	if verrs := CheckFunctions(defs); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return outputCompileErrors(formatter, errs)
	}

	reg, err := NewRegistry(defs)
	if err != nil {
		return outputCompileErrors(formatter, []error{err})
	}

	eng, err := engine.New(reg,
		engine.WithEngine(opts.engineName()),
		engine.WithLogger(opts.Logger(cmd.ErrOrStderr())),
	)
	if err != nil {
		return outputCompileError(formatter, ErrCodeEngine, err.Error(), nil)
	}
	defer eng.Close()

	names := opts.Functions
	if len(names) == 0 {
		for _, d := range defs {
			names = append(names, d.Name)
		}
	}
	sources := make(map[string]string, len(defs))
	for _, d := range defs {
		sources[d.Name] = d.Source
	}

	result := &CompilationResult{Engine: eng.EngineName()}
	for _, name := range names {
		formatter.VerboseLog("Compiling function: %s", name)
		fn, err := eng.Prepare(ctx, name)
		if err != nil {
			return outputCompileError(formatter, compileErrorCode(err), err.Error(), nil)
		}
		unit, _ := eng.Unit(name)

		cf := CompiledFunction{
			Name:      name,
			Signature: formatSignature(fn),
			Source:    sources[name],
			Bodies:    bodyKinds(fn),
		}
		if unit != nil {
			cf.Unit = unit.ID()
			cf.Engine = unit.Engine()
			cf.Fingerprint = unit.Fingerprint()
			if opts.ShowIR {
				cf.IR = unit.IR()
			}
			if opts.Output != "" {
				if err := writeIR(opts.Output, name, unit.IR()); err != nil {
					return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing IR: %v", err), nil)
				}
			}
		}
		result.Functions = append(result.Functions, cf)
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// compileErrorCode maps an evaluator error to a CLI error code.
func compileErrorCode(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return ErrCodeGeneric
}

// bodyKinds lists the kinds of the bodies attached to fn, least concrete
// first.
func bodyKinds(fn *core.Function) []string {
	var kinds []string
	if core.HasBody[codegen.BuildIRBody](fn) {
		kinds = append(kinds, codegen.KindBuildIR)
	}
	if core.HasBody[*codegen.CompiledBody](fn) {
		kinds = append(kinds, codegen.KindCompiled)
	}
	if core.HasBody[tuplecall.Body](fn) {
		kinds = append(kinds, tuplecall.Kind)
	}
	return kinds
}

// formatSignature renders fn's signature as "(a float, b float) -> (y float)".
func formatSignature(fn *core.Function) string {
	sig := fn.Signature()
	ins := make([]string, len(sig.Inputs()))
	for i, p := range sig.Inputs() {
		ins[i] = p.Name() + " " + p.Type().Name()
	}
	outs := make([]string, len(sig.Outputs()))
	for i, p := range sig.Outputs() {
		outs[i] = p.Name() + " " + p.Type().Name()
	}
	return "(" + strings.Join(ins, ", ") + ") -> (" + strings.Join(outs, ", ") + ")"
}

// writeIR writes text to dir/<name>.ir, creating dir if needed.
func writeIR(dir, name, text string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".ir"), []byte(text), 0644)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputDir string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s Compiled %d function(s) with engine %s\n\n",
		formatter.Pass(), len(result.Functions), result.Engine)

	for _, fn := range result.Functions {
		fmt.Fprintf(w, "  %s%s\n", fn.Name, fn.Signature)
		fmt.Fprintf(w, "    bodies: %s\n", strings.Join(fn.Bodies, ", "))
		if fn.Unit != "" {
			fmt.Fprintf(w, "    unit: %s  fingerprint: %s\n", fn.Unit, shortHash(fn.Fingerprint))
		}
		if fn.IR != "" {
			fmt.Fprintln(w)
			for _, line := range strings.Split(strings.TrimRight(fn.IR, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
		fmt.Fprintln(w)
	}

	if outputDir != "" {
		fmt.Fprintf(w, "Wrote IR to %s\n", outputDir)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintf(formatter.Writer, "%s Compilation failed\n\n", formatter.Fail())
	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, verr.Field + ": " + verr.Message
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
