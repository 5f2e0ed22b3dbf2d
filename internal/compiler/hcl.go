package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclFile is the top-level structure of an HCL function file:
//
//	function "add" {
//	  input "a" { type = "float" }
//	  input "b" { type = "float" }
//	  output "sum" { type = "float" }
//	  step {
//	    op   = "add"
//	    args = ["a", "b"]
//	    out  = "sum"
//	  }
//	}
type hclFile struct {
	Functions []*hclFunction `hcl:"function,block"`
}

type hclFunction struct {
	Name        string      `hcl:"name,label"`
	Description *string     `hcl:"description,optional"`
	Inputs      []*hclParam `hcl:"input,block"`
	Outputs     []*hclParam `hcl:"output,block"`
	Steps       []*hclStep  `hcl:"step,block"`
}

type hclParam struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
}

type hclStep struct {
	Op       string    `hcl:"op"`
	Out      string    `hcl:"out"`
	Args     []string  `hcl:"args,optional"`
	Type     *string   `hcl:"type,optional"`
	Value    cty.Value `hcl:"value,optional"`
	Index    *int      `hcl:"index,optional"`
	Function *string   `hcl:"function,optional"`
}

// LoadHCLSource decodes the functions of a single HCL document.
func LoadHCLSource(filename string, src []byte) ([]FunctionDef, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	defs := make([]FunctionDef, 0, len(parsed.Functions))
	for _, fn := range parsed.Functions {
		def, err := fn.toDef()
		if err != nil {
			return nil, fmt.Errorf("%s: function %q: %w", filename, fn.Name, err)
		}
		def.Source = filename
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}

// LoadHCLFile reads and decodes one HCL file.
func LoadHCLFile(path string) ([]FunctionDef, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return LoadHCLSource(path, src)
}

// LoadHCLDir decodes every .hcl file directly inside dir.
func LoadHCLDir(dir string) ([]FunctionDef, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.hcl"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var defs []FunctionDef
	for _, f := range files {
		fileDefs, err := LoadHCLFile(f)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	return defs, nil
}

func (fn *hclFunction) toDef() (FunctionDef, error) {
	def := FunctionDef{Name: fn.Name}
	if fn.Description != nil {
		def.Description = *fn.Description
	}
	for _, p := range fn.Inputs {
		def.Inputs = append(def.Inputs, ParamDef{Name: p.Name, Type: p.Type})
	}
	for _, p := range fn.Outputs {
		def.Outputs = append(def.Outputs, ParamDef{Name: p.Name, Type: p.Type})
	}
	for i, s := range fn.Steps {
		step := StepDef{Op: s.Op, Out: s.Out, Args: s.Args}
		if s.Type != nil {
			step.Type = *s.Type
		}
		if s.Index != nil {
			step.Index = *s.Index
		}
		if s.Function != nil {
			step.Function = *s.Function
		}
		v, err := ctyScalar(s.Value)
		if err != nil {
			return def, fmt.Errorf("step %d: %w", i, err)
		}
		step.Value = v
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

// ctyScalar converts a cty value into the loosely typed form the type
// codecs accept. Whole numbers become int64.
func ctyScalar(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.String:
		return v.AsString(), nil
	case ty.IsTupleType() || ty.IsListType():
		var items []any
		for _, ev := range v.AsValueSlice() {
			item, err := ctyScalar(ev)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}
