package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/fnjit/internal/core"
)

// Validation error codes (E100-E199)
const (
	// Function errors (E101-E105)
	ErrFunctionNameInvalid = "E101" // name is empty or not an identifier
	ErrFunctionNoOutputs   = "E102" // at least one output required
	ErrOutputUnassigned    = "E103" // output never bound by a step
	ErrUnknownType         = "E104" // type name not registered
	ErrDuplicateName       = "E105" // duplicate parameter, variable, or function name

	// Step errors (E110-E119)
	ErrUnknownOp           = "E110" // op not in Ops
	ErrArgCount            = "E111" // wrong number of args for op
	ErrUndefinedVariable   = "E112" // arg refers to an unbound variable
	ErrInvalidVariable     = "E113" // out is empty or not an identifier
	ErrConstIncomplete     = "E114" // const without type or value
	ErrCastMissingType     = "E115" // cast without target type
	ErrCallMissingFunction = "E116" // call without function name
)

// TypeLookup resolves type names used by definitions.
type TypeLookup interface {
	Lookup(name string) (*core.Type, bool)
}

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors collects every error found in a set of definitions.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks a function definition against the schema rules.
// Returns all errors found (does not fail-fast). Callee signatures are not
// known here; call results are checked when the recipe is built.
func Validate(def *FunctionDef, types TypeLookup) []ValidationError {
	var errs []ValidationError
	prefix := "function." + def.Name

	// E101: name must be an identifier
	if !isValidFunctionName(def.Name) {
		errs = append(errs, ValidationError{
			Field:   "function.name",
			Message: fmt.Sprintf("invalid function name %q", def.Name),
			Code:    ErrFunctionNameInvalid,
		})
	}

	// E102: at least one output
	if len(def.Outputs) == 0 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".outputs",
			Message: "at least one output is required",
			Code:    ErrFunctionNoOutputs,
		})
	}

	params := make(map[string]bool)
	checkParams := func(kind string, list []ParamDef) {
		for i, p := range list {
			field := fmt.Sprintf("%s.%s[%d]", prefix, kind, i)
			if !isValidVariable(p.Name) {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("invalid parameter name %q", p.Name),
					Code:    ErrInvalidVariable,
				})
			}
			if params[p.Name] {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("duplicate parameter name: %q", p.Name),
					Code:    ErrDuplicateName,
				})
			}
			params[p.Name] = true
			errs = append(errs, validateTypeName(types, p.Type, field+".type")...)
		}
	}
	checkParams("inputs", def.Inputs)
	checkParams("outputs", def.Outputs)

	// Variables bound so far; inputs are bound up front.
	bound := make(map[string]bool)
	callResults := make(map[string]bool)
	for _, in := range def.Inputs {
		bound[in.Name] = true
	}

	for i, step := range def.Steps {
		field := fmt.Sprintf("%s.body[%d]", prefix, i)
		errs = append(errs, validateStep(step, field, types)...)

		for j, arg := range step.Args {
			if !isBound(arg, bound, callResults) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.args[%d]", field, j),
					Message: fmt.Sprintf("undefined variable %q", arg),
					Code:    ErrUndefinedVariable,
				})
			}
		}

		if !isValidVariable(step.Out) {
			errs = append(errs, ValidationError{
				Field:   field + ".out",
				Message: fmt.Sprintf("invalid variable name %q", step.Out),
				Code:    ErrInvalidVariable,
			})
			continue
		}
		if bound[step.Out] || callResults[step.Out] {
			errs = append(errs, ValidationError{
				Field:   field + ".out",
				Message: fmt.Sprintf("variable %q is already bound", step.Out),
				Code:    ErrDuplicateName,
			})
		}
		if step.Op == "call" {
			callResults[step.Out] = true
		}
		bound[step.Out] = true
	}

	// E103: every output is bound by a step
	inputs := make(map[string]bool)
	for _, in := range def.Inputs {
		inputs[in.Name] = true
	}
	for i, out := range def.Outputs {
		if inputs[out.Name] {
			continue // reported as duplicate above
		}
		if !bound[out.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.outputs[%d]", prefix, i),
				Message: fmt.Sprintf("output %q is never assigned", out.Name),
				Code:    ErrOutputUnassigned,
			})
		}
	}

	return errs
}

// ValidateAll validates every definition and rejects duplicate function
// names. The result is nil when all definitions are valid.
func ValidateAll(defs []FunctionDef, types TypeLookup) error {
	var errs ValidationErrors
	seen := make(map[string]bool)
	for i := range defs {
		if seen[defs[i].Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("function[%d].name", i),
				Message: fmt.Sprintf("duplicate function name: %q", defs[i].Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[defs[i].Name] = true
		errs = append(errs, Validate(&defs[i], types)...)
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateStep(step StepDef, field string, types TypeLookup) []ValidationError {
	var errs []ValidationError

	// E110: op must be known
	want, ok := Ops[step.Op]
	if !ok {
		return append(errs, ValidationError{
			Field:   field + ".op",
			Message: fmt.Sprintf("unknown op %q", step.Op),
			Code:    ErrUnknownOp,
		})
	}

	// E111: arg count
	if want >= 0 && len(step.Args) != want {
		errs = append(errs, ValidationError{
			Field:   field + ".args",
			Message: fmt.Sprintf("%s takes %d args, got %d", step.Op, want, len(step.Args)),
			Code:    ErrArgCount,
		})
	}

	switch step.Op {
	case "const":
		// E114: const needs both type and value
		if step.Type == "" || step.Value == nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "const requires type and value",
				Code:    ErrConstIncomplete,
			})
		}
	case "cast":
		// E115
		if step.Type == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".type",
				Message: "cast requires a target type",
				Code:    ErrCastMissingType,
			})
		}
	case "call":
		// E116
		if step.Function == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".function",
				Message: "call requires a function name",
				Code:    ErrCallMissingFunction,
			})
		}
	}

	if step.Type != "" {
		errs = append(errs, validateTypeName(types, step.Type, field+".type")...)
	}
	return errs
}

// validateTypeName reports E104 for unregistered type names.
func validateTypeName(types TypeLookup, name, field string) []ValidationError {
	if types == nil {
		return nil
	}
	if _, ok := types.Lookup(name); ok {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("unknown type %q", name),
		Code:    ErrUnknownType,
	}}
}

// isBound reports whether arg names a bound variable or a field of a call
// result ("result.name").
func isBound(arg string, bound, callResults map[string]bool) bool {
	if bound[arg] {
		return true
	}
	if base, _, ok := strings.Cut(arg, "."); ok {
		return callResults[base]
	}
	return false
}

// functionNamePattern allows dotted names such as "math.lerp".
var functionNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// variablePattern matches plain identifiers.
var variablePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func isValidFunctionName(name string) bool {
	return functionNamePattern.MatchString(name)
}

func isValidVariable(name string) bool {
	return variablePattern.MatchString(name)
}
