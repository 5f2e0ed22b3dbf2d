package compiler

// FunctionDef is a function definition loaded from CUE or HCL. Steps run
// in order; each binds its result to a variable name that later steps,
// and the outputs, refer to. Inputs are bound under their own names.
type FunctionDef struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Inputs      []ParamDef `json:"inputs"`
	Outputs     []ParamDef `json:"outputs"`
	Steps       []StepDef  `json:"steps"`

	// Source is the file the definition was loaded from.
	Source string `json:"-"`
}

// ParamDef is a named, typed input or output.
type ParamDef struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// StepDef is one operation of a recipe.
//
// Out names the variable the result is bound to; an output is produced by
// binding a step result to the output's name. For "call" steps with more
// than one callee output, each output is bound as Out.<output name>.
type StepDef struct {
	Op       string   `json:"op"`
	Args     []string `json:"args,omitempty"`
	Out      string   `json:"out"`
	Type     string   `json:"type,omitempty"`     // const, cast
	Value    any      `json:"value,omitempty"`    // const
	Index    int      `json:"index,omitempty"`    // extract
	Function string   `json:"function,omitempty"` // call
}

// Ops lists the supported step operations with their argument count;
// -1 means variadic.
var Ops = map[string]int{
	"add":     2,
	"sub":     2,
	"mul":     2,
	"div":     2,
	"min":     2,
	"max":     2,
	"lt":      2,
	"gt":      2,
	"eq":      2,
	"neg":     1,
	"copy":    1,
	"cast":    1,
	"extract": 1,
	"select":  3,
	"vec3":    3,
	"const":   0,
	"call":    -1,
}

// Callees returns the names of functions called by def, in order of first
// use.
func (def *FunctionDef) Callees() []string {
	var names []string
	seen := make(map[string]bool)
	for _, s := range def.Steps {
		if s.Op == "call" && s.Function != "" && !seen[s.Function] {
			seen[s.Function] = true
			names = append(names, s.Function)
		}
	}
	return names
}
