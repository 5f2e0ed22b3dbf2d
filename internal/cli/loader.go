package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue/token"

	"github.com/roach88/fnjit/internal/compiler"
	"github.com/roach88/fnjit/internal/library"
	"github.com/roach88/fnjit/internal/stdtypes"
)

// LoadError represents an error that occurred while loading definitions.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for CLI output
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNoFiles     = "E003" // No definitions found
	ErrCodeLoadFailed  = "E004" // CUE or HCL load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeCallCycle   = "E006" // Functions call each other in a cycle
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeEngine      = "E008" // Evaluator could not be created or failed
)

// LoadFunctions loads every definition in paths, collecting one error per
// path that fails. Definitions are sorted by name.
func LoadFunctions(paths []string) ([]compiler.FunctionDef, []error) {
	var (
		defs []compiler.FunctionDef
		errs []error
	)
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			errs = append(errs, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)})
			continue
		}
		loaded, err := compiler.LoadPath(p)
		if err != nil {
			errs = append(errs, toLoadError(err))
			continue
		}
		defs = append(defs, loaded...)
	}
	if len(defs) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no function definitions found in %v", paths)})
	}
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, errs
}

func toLoadError(err error) *LoadError {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		return &LoadError{Code: ErrCodeLoadFailed, Message: ce.Message, Pos: ce.Pos}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// NewRegistry builds a registry holding the host routines and defs.
func NewRegistry(defs []compiler.FunctionDef) (*library.Registry, error) {
	reg := library.NewRegistry(stdtypes.Default())
	if err := library.RegisterHost(reg); err != nil {
		return nil, err
	}
	if err := reg.AddAll(defs); err != nil {
		return nil, err
	}
	return reg, nil
}

// CheckFunctions validates defs without building anything. It returns
// every schema error plus one error per call cycle.
func CheckFunctions(defs []compiler.FunctionDef) []compiler.ValidationError {
	var out []compiler.ValidationError
	var verrs compiler.ValidationErrors
	if err := compiler.ValidateAll(defs, stdtypes.Default()); errors.As(err, &verrs) {
		out = append(out, verrs...)
	}
	for _, c := range compiler.AnalyzeCalls(defs) {
		out = append(out, compiler.ValidationError{
			Field:   "call",
			Message: c.Message,
			Code:    ErrCodeCallCycle,
		})
	}
	return out
}

// loadRegistry loads paths and builds a registry, converting failures to
// command errors.
func loadRegistry(paths []string) (*library.Registry, []compiler.FunctionDef, error) {
	defs, errs := LoadFunctions(paths)
	if len(errs) > 0 {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load functions", errors.Join(errs...))
	}
	reg, err := NewRegistry(defs)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to register functions", err)
	}
	return reg, defs, nil
}
