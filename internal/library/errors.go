package library

import "fmt"

// RecipeError reports a definition that cannot be turned into a recipe:
// ill-typed steps, unknown callees, or outputs of the wrong type.
type RecipeError struct {
	Function string
	Step     int // -1 for function-level errors
	Message  string
}

func (e *RecipeError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("function %s: step %d: %s", e.Function, e.Step, e.Message)
	}
	return fmt.Sprintf("function %s: %s", e.Function, e.Message)
}

func stepError(fn string, step int, format string, args ...any) *RecipeError {
	return &RecipeError{Function: fn, Step: step, Message: fmt.Sprintf(format, args...)}
}
