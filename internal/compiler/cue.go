package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// CompileFunction parses a CUE value into a FunctionDef.
//
// The value should be the function struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`function: add: { ... }`)
//	def, err := CompileFunction(v.LookupPath(cue.ParsePath("function.add")))
func CompileFunction(v cue.Value) (*FunctionDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &FunctionDef{}

	// Function name comes from the struct label
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	if descVal := v.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Description = desc
	}

	var err error
	def.Inputs, err = parseParams(v, "inputs", false)
	if err != nil {
		return nil, err
	}
	def.Outputs, err = parseParams(v, "outputs", true)
	if err != nil {
		return nil, err
	}

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("function.%s.body", def.Name),
			Message: "body is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := bodyVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		step, err := parseStep(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Steps = append(def.Steps, step)
	}

	return def, nil
}

// parseParams reads a list of {name, type} structs.
func parseParams(v cue.Value, field string, required bool) ([]ParamDef, error) {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		if required {
			return nil, &CompileError{Field: field, Message: field + " are required", Pos: v.Pos()}
		}
		return nil, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var params []ParamDef
	for iter.Next() {
		pv := iter.Value()
		name, err := requiredString(pv, "name")
		if err != nil {
			return nil, err
		}
		typ, err := requiredString(pv, "type")
		if err != nil {
			return nil, err
		}
		params = append(params, ParamDef{Name: name, Type: typ})
	}
	return params, nil
}

func parseStep(v cue.Value) (StepDef, error) {
	var step StepDef
	var err error

	if step.Op, err = requiredString(v, "op"); err != nil {
		return step, err
	}
	if step.Out, err = requiredString(v, "out"); err != nil {
		return step, err
	}
	if step.Type, err = optionalString(v, "type"); err != nil {
		return step, err
	}
	if step.Function, err = optionalString(v, "function"); err != nil {
		return step, err
	}

	if argsVal := v.LookupPath(cue.ParsePath("args")); argsVal.Exists() {
		iter, err := argsVal.List()
		if err != nil {
			return step, formatCUEError(err)
		}
		for iter.Next() {
			arg, err := iter.Value().String()
			if err != nil {
				return step, formatCUEError(err)
			}
			step.Args = append(step.Args, arg)
		}
	}

	if idxVal := v.LookupPath(cue.ParsePath("index")); idxVal.Exists() {
		idx, err := idxVal.Int64()
		if err != nil {
			return step, formatCUEError(err)
		}
		step.Index = int(idx)
	}

	if valVal := v.LookupPath(cue.ParsePath("value")); valVal.Exists() {
		step.Value, err = cueScalar(valVal)
		if err != nil {
			return step, err
		}
	}

	return step, nil
}

// cueScalar converts a concrete CUE value into the loosely typed form the
// type codecs accept.
func cueScalar(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.IntKind:
		i, err := v.Int64()
		return i, formatCUEError(err)
	case cue.FloatKind:
		f, err := v.Float64()
		return f, formatCUEError(err)
	case cue.BoolKind:
		b, err := v.Bool()
		return b, formatCUEError(err)
	case cue.StringKind:
		s, err := v.String()
		return s, formatCUEError(err)
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var items []any
		for iter.Next() {
			item, err := cueScalar(iter.Value())
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}
	return nil, &CompileError{
		Field:   "value",
		Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileCUE compiles every function under the top-level "function" field
// of a CUE value, sorted by name.
func CompileCUE(value cue.Value) ([]FunctionDef, error) {
	fnsVal := value.LookupPath(cue.ParsePath("function"))
	if !fnsVal.Exists() {
		return nil, nil
	}

	iter, err := fnsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []FunctionDef
	for iter.Next() {
		def, err := CompileFunction(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// LoadCUESource compiles the functions of a single CUE document.
func LoadCUESource(filename string, src []byte) ([]FunctionDef, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	defs, err := CompileCUE(value)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		defs[i].Source = filename
	}
	return defs, nil
}

// LoadCUEDir loads the CUE package in dir and compiles its functions.
func LoadCUEDir(dir string) ([]FunctionDef, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("function directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	defs, err := CompileCUE(value)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		defs[i].Source = filepath.Clean(dir)
	}
	return defs, nil
}
