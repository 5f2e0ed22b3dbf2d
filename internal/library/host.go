package library

import (
	"math"

	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/stdtypes"
)

// HostFunc describes a routine implemented in Go and exposed as a
// function with a CompiledBody. Impl receives the decoded input words and
// returns one word per output.
type HostFunc struct {
	Name    string
	Inputs  []core.InputParameter
	Outputs []core.OutputParameter
	Impl    func(args []ir.Word) []ir.Word
}

// Function builds the core function for h. The native routine follows the
// compiled-body convention: inputs, then the context pointer, returning a
// struct of outputs.
func (h HostFunc) Function() *core.Function {
	sig := core.NewSignature(h.Inputs, h.Outputs)
	params, ret := codegen.NativeSignature(sig)
	n := len(h.Inputs)
	impl := h.Impl

	fn := core.NewFunction(sig, h.Name)
	codegen.AddCompiledBody(fn, codegen.NewCompiledBody(&ir.NativeFunc{
		Name:   "host." + h.Name,
		Params: params,
		Ret:    ret,
		Impl: func(args []ir.Word) ir.Word {
			return ir.StructWord(impl(args[:n])...)
		},
	}))
	return fn
}

func floatFn(name string, f func(float64) float64) HostFunc {
	return HostFunc{
		Name:    name,
		Inputs:  []core.InputParameter{core.In("x", stdtypes.Float)},
		Outputs: []core.OutputParameter{core.Out("y", stdtypes.Float)},
		Impl: func(args []ir.Word) []ir.Word {
			return []ir.Word{ir.Float32Word(float32(f(float64(args[0].Float32()))))}
		},
	}
}

// HostFuncs returns the host math routines registered by RegisterHost.
func HostFuncs() []HostFunc {
	return []HostFunc{
		floatFn("math.sqrt", math.Sqrt),
		floatFn("math.sin", math.Sin),
		floatFn("math.cos", math.Cos),
		floatFn("math.floor", math.Floor),
		{
			Name: "math.pow",
			Inputs: []core.InputParameter{
				core.In("x", stdtypes.Float),
				core.In("y", stdtypes.Float),
			},
			Outputs: []core.OutputParameter{core.Out("z", stdtypes.Float)},
			Impl: func(args []ir.Word) []ir.Word {
				z := math.Pow(float64(args[0].Float32()), float64(args[1].Float32()))
				return []ir.Word{ir.Float32Word(float32(z))}
			},
		},
		{
			Name:    "math.length",
			Inputs:  []core.InputParameter{core.In("v", stdtypes.FVec3)},
			Outputs: []core.OutputParameter{core.Out("len", stdtypes.Float)},
			Impl: func(args []ir.Word) []ir.Word {
				var sum float64
				for _, c := range args[0].Fields {
					f := float64(c.Float32())
					sum += f * f
				}
				return []ir.Word{ir.Float32Word(float32(math.Sqrt(sum)))}
			},
		},
		{
			Name:   "math.divmod",
			Inputs: []core.InputParameter{core.In("a", stdtypes.Int32), core.In("b", stdtypes.Int32)},
			Outputs: []core.OutputParameter{
				core.Out("quo", stdtypes.Int32),
				core.Out("rem", stdtypes.Int32),
			},
			Impl: func(args []ir.Word) []ir.Word {
				a, b := int32(args[0].Int()), int32(args[1].Int())
				if b == 0 {
					return []ir.Word{ir.IntWord(0), ir.IntWord(0)}
				}
				return []ir.Word{ir.IntWord(int64(a / b)), ir.IntWord(int64(a % b))}
			},
		},
	}
}

// RegisterHost adds the host math routines to r.
func RegisterHost(r *Registry) error {
	for _, h := range HostFuncs() {
		if err := r.AddFunction(h.Function()); err != nil {
			return err
		}
	}
	return nil
}
