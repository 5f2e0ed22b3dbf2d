package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/compiler"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/jit"
	"github.com/roach88/fnjit/internal/stdtypes"
	"github.com/roach88/fnjit/internal/tuple"
	"github.com/roach88/fnjit/internal/tuplecall"
)

// ============================================================================
// Helpers
// ============================================================================

func forEachEngine(t *testing.T, fn func(t *testing.T, e jit.Engine)) {
	t.Helper()
	for _, name := range jit.Names() {
		t.Run(name, func(t *testing.T) {
			e, err := jit.New(name)
			require.NoError(t, err)
			fn(t, e)
		})
	}
}

func newRegistry(t *testing.T, defs ...compiler.FunctionDef) *Registry {
	t.Helper()
	r := NewRegistry(stdtypes.Default())
	require.NoError(t, RegisterHost(r))
	require.NoError(t, r.AddAll(defs))
	return r
}

// invoke derives what name needs and calls it through its tuple-call body.
func invoke(t *testing.T, r *Registry, e jit.Engine, name string, args ...any) []any {
	t.Helper()
	fn, err := r.Resolve(name)
	require.NoError(t, err)

	for _, dep := range r.Dependencies(name) {
		if !core.HasBody[*codegen.CompiledBody](dep) {
			require.NoError(t, codegen.DeriveCompiledFromBuildIR(dep, e))
		}
	}
	if !core.HasBody[tuplecall.Body](fn) {
		if core.HasBody[codegen.BuildIRBody](fn) {
			require.NoError(t, codegen.DeriveTupleCallFromBuildIR(fn, e))
		} else {
			require.NoError(t, codegen.DeriveTupleCallFromCompiled(fn, e))
		}
	}

	sig := fn.Signature()
	in := tuple.NewFromTypes(sig.InputTypes())
	require.Len(t, args, in.Len())
	for i, typ := range sig.InputTypes() {
		require.NoError(t, stdtypes.CodecOf(typ).Set(in, i, args[i]))
	}
	out := tuple.NewFromTypes(sig.OutputTypes())

	core.MustBody[tuplecall.Body](fn).Call(in, out, tuplecall.NewExecutionContext())

	results := make([]any, out.Len())
	for i, typ := range sig.OutputTypes() {
		results[i] = stdtypes.CodecOf(typ).Get(out, i)
	}
	return results
}

func param(name, typ string) compiler.ParamDef {
	return compiler.ParamDef{Name: name, Type: typ}
}

func op(o, out string, args ...string) compiler.StepDef {
	return compiler.StepDef{Op: o, Out: out, Args: args}
}

func constStep(out, typ string, v any) compiler.StepDef {
	return compiler.StepDef{Op: "const", Out: out, Type: typ, Value: v}
}

func lerp() compiler.FunctionDef {
	return compiler.FunctionDef{
		Name:    "lerp",
		Inputs:  []compiler.ParamDef{param("a", "float"), param("b", "float"), param("t", "float")},
		Outputs: []compiler.ParamDef{param("result", "float")},
		Steps: []compiler.StepDef{
			op("sub", "d", "b", "a"),
			op("mul", "s", "d", "t"),
			op("add", "result", "a", "s"),
		},
	}
}

func clamp01() compiler.FunctionDef {
	return compiler.FunctionDef{
		Name:    "clamp01",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("y", "float")},
		Steps: []compiler.StepDef{
			constStep("zero", "float", 0.0),
			constStep("one", "float", 1.0),
			op("max", "lo", "x", "zero"),
			op("min", "y", "lo", "one"),
		},
	}
}

// ============================================================================
// Recipe semantics
// ============================================================================

func TestRecipe_Lerp(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, lerp())
		got := invoke(t, r, e, "lerp", 2.0, 4.0, 0.25)
		assert.Equal(t, []any{float32(2.5)}, got)
	})
}

func TestRecipe_ClampMinMax(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, clamp01())
		assert.Equal(t, []any{float32(0)}, invoke(t, r, e, "clamp01", -0.5))

		// derived once; later calls reuse the tuple-call body
		assert.Equal(t, []any{float32(0.25)}, invoke(t, r, e, "clamp01", 0.25))
		assert.Equal(t, []any{float32(1)}, invoke(t, r, e, "clamp01", 7))
	})
}

func TestRecipe_ZeroInputConstant(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, compiler.FunctionDef{
			Name:    "answer",
			Outputs: []compiler.ParamDef{param("v", "int32")},
			Steps:   []compiler.StepDef{constStep("v", "int32", int64(42))},
		})
		assert.Equal(t, []any{int32(42)}, invoke(t, r, e, "answer"))
	})
}

func TestRecipe_VectorOps(t *testing.T) {
	def := compiler.FunctionDef{
		Name:    "vecmath",
		Inputs:  []compiler.ParamDef{param("v", "fvec3"), param("w", "fvec3"), param("k", "float")},
		Outputs: []compiler.ParamDef{param("scaled", "fvec3"), param("diff", "fvec3"), param("y", "float")},
		Steps: []compiler.StepDef{
			op("mul", "scaled", "v", "k"),
			op("sub", "d", "v", "w"),
			op("neg", "diff", "d"),
			{Op: "extract", Out: "vy", Args: []string{"v"}, Index: 1},
			op("copy", "y", "vy"),
		},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, def)
		got := invoke(t, r, e, "vecmath", []any{1.0, 2.0, 3.0}, "0.5,0.5,0.5", 2.0)
		assert.Equal(t, stdtypes.Vec3{2, 4, 6}, got[0])
		assert.Equal(t, stdtypes.Vec3{-0.5, -1.5, -2.5}, got[1])
		assert.Equal(t, float32(2), got[2])
	})
}

func TestRecipe_Vec3Constructor(t *testing.T) {
	def := compiler.FunctionDef{
		Name:    "splat",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("v", "fvec3")},
		Steps: []compiler.StepDef{
			constStep("one", "float", 1),
			op("vec3", "v", "x", "one", "x"),
		},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, def)
		assert.Equal(t, []any{stdtypes.Vec3{3, 1, 3}}, invoke(t, r, e, "splat", 3))
	})
}

func TestRecipe_SelectAndCompare(t *testing.T) {
	def := compiler.FunctionDef{
		Name:    "abs",
		Inputs:  []compiler.ParamDef{param("x", "int32")},
		Outputs: []compiler.ParamDef{param("y", "int32"), param("negative", "bool"), param("zero", "bool")},
		Steps: []compiler.StepDef{
			constStep("z", "int32", 0),
			op("lt", "negative", "x", "z"),
			op("eq", "zero", "x", "z"),
			op("neg", "n", "x"),
			op("select", "y", "negative", "n", "x"),
		},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, def)
		assert.Equal(t, []any{int32(5), true, false}, invoke(t, r, e, "abs", -5))
		assert.Equal(t, []any{int32(0), false, true}, invoke(t, r, e, "abs", 0))
	})
}

func TestRecipe_Cast(t *testing.T) {
	def := compiler.FunctionDef{
		Name:    "trunc",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("i", "int32"), param("back", "float"), param("nonzero", "bool")},
		Steps: []compiler.StepDef{
			{Op: "cast", Out: "i", Args: []string{"x"}, Type: "int32"},
			{Op: "cast", Out: "back", Args: []string{"i"}, Type: "float"},
			{Op: "cast", Out: "nonzero", Args: []string{"i"}, Type: "bool"},
		},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, def)
		assert.Equal(t, []any{int32(3), float32(3), true}, invoke(t, r, e, "trunc", 3.7))
		assert.Equal(t, []any{int32(0), float32(0), false}, invoke(t, r, e, "trunc", 0.5))
	})
}

func TestRecipe_IntegerDivisionByZero(t *testing.T) {
	def := compiler.FunctionDef{
		Name:    "idiv",
		Inputs:  []compiler.ParamDef{param("a", "int64"), param("b", "int64")},
		Outputs: []compiler.ParamDef{param("q", "int64")},
		Steps:   []compiler.StepDef{op("div", "q", "a", "b")},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, def)
		assert.Equal(t, []any{int64(3)}, invoke(t, r, e, "idiv", 7, 2))
		assert.Equal(t, []any{int64(0)}, invoke(t, r, e, "idiv", 7, 0))
	})
}

// ============================================================================
// Calls
// ============================================================================

func TestRecipe_CallHostFunction(t *testing.T) {
	def := compiler.FunctionDef{
		Name:    "hypot",
		Inputs:  []compiler.ParamDef{param("x", "float"), param("y", "float")},
		Outputs: []compiler.ParamDef{param("h", "float")},
		Steps: []compiler.StepDef{
			op("mul", "xx", "x", "x"),
			op("mul", "yy", "y", "y"),
			op("add", "s", "xx", "yy"),
			{Op: "call", Function: "math.sqrt", Args: []string{"s"}, Out: "h"},
		},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, def)
		assert.Equal(t, []any{float32(5)}, invoke(t, r, e, "hypot", 3, 4))
	})
}

func TestRecipe_CallRecipeChain(t *testing.T) {
	smooth := compiler.FunctionDef{
		Name:    "mix01",
		Inputs:  []compiler.ParamDef{param("a", "float"), param("b", "float"), param("t", "float")},
		Outputs: []compiler.ParamDef{param("y", "float")},
		Steps: []compiler.StepDef{
			{Op: "call", Function: "clamp01", Args: []string{"t"}, Out: "tc"},
			{Op: "call", Function: "lerp", Args: []string{"a", "b", "tc"}, Out: "y"},
		},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		// AddAll orders callees first regardless of input order.
		r := newRegistry(t, smooth, lerp(), clamp01())
		assert.Equal(t, []any{float32(10)}, invoke(t, r, e, "mix01", 0, 10, 3))
		assert.Equal(t, []any{float32(5)}, invoke(t, r, e, "mix01", 0, 10, 0.5))
	})
}

func TestRecipe_CallMultipleOutputs(t *testing.T) {
	def := compiler.FunctionDef{
		Name:    "digits",
		Inputs:  []compiler.ParamDef{param("n", "int32")},
		Outputs: []compiler.ParamDef{param("tens", "int32"), param("ones", "int32")},
		Steps: []compiler.StepDef{
			constStep("ten", "int32", 10),
			{Op: "call", Function: "math.divmod", Args: []string{"n", "ten"}, Out: "r"},
			op("copy", "tens", "r.quo"),
			op("copy", "ones", "r.rem"),
		},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t, def)
		assert.Equal(t, []any{int32(4), int32(2)}, invoke(t, r, e, "digits", 42))
	})
}

func TestRecipe_CallWithoutCompiledBodyPanics(t *testing.T) {
	caller := compiler.FunctionDef{
		Name:    "outer",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("y", "float")},
		Steps:   []compiler.StepDef{{Op: "call", Function: "clamp01", Args: []string{"x"}, Out: "y"}},
	}
	r := newRegistry(t, clamp01(), caller)
	fn, _ := r.Lookup("outer")
	e, err := jit.New("")
	require.NoError(t, err)

	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		assert.True(t, core.IsInvariant(rec, core.ErrCodeMissingBody))
	}()
	_ = codegen.DeriveTupleCallFromBuildIR(fn, e)
}

func TestRecipe_CallUsesCalleesFromSettings(t *testing.T) {
	caller := compiler.FunctionDef{
		Name:    "outer",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("y", "float")},
		Steps:   []compiler.StepDef{{Op: "call", Function: "clamp01", Args: []string{"x"}, Out: "y"}},
	}
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		// The routine comes from another registry; clamp01 here never
		// gets a compiled body, so the body set is not consulted.
		other := newRegistry(t, clamp01())
		donor, _ := other.Lookup("clamp01")
		require.NoError(t, codegen.DeriveCompiledFromBuildIR(donor, e))
		native := core.MustBody[*codegen.CompiledBody](donor).Native

		r := newRegistry(t, clamp01(), caller)
		fn, _ := r.Lookup("outer")
		callee, _ := r.Lookup("clamp01")
		require.NoError(t, codegen.DeriveTupleCallFromBuildIR(fn, e, codegen.WithSettings(codegen.BuildIRSettings{
			Callees: map[string]*ir.NativeFunc{"clamp01": native},
		})))
		assert.False(t, core.HasBody[*codegen.CompiledBody](callee))

		assert.Equal(t, []any{float32(1)}, invoke(t, r, e, "outer", 7))
		assert.Equal(t, []any{float32(0.25)}, invoke(t, r, e, "outer", 0.25))
	})
}

func TestHostFunction_DirectInvoke(t *testing.T) {
	forEachEngine(t, func(t *testing.T, e jit.Engine) {
		r := newRegistry(t)
		assert.Equal(t, []any{float32(5)}, invoke(t, r, e, "math.length", []any{3, 0, 4}))
		assert.Equal(t, []any{float32(8)}, invoke(t, r, e, "math.pow", 2, 3))
	})
}

// ============================================================================
// Type errors
// ============================================================================

func TestNewRecipe_TypeErrors(t *testing.T) {
	r := newRegistry(t, lerp())
	tests := []struct {
		name  string
		steps []compiler.StepDef
		out   string
		want  string
	}{
		{"mixed arithmetic", []compiler.StepDef{op("add", "y", "f", "i")}, "float", "add: operand types float and i32"},
		{"vector by int", []compiler.StepDef{op("mul", "y", "v", "i")}, "fvec3", "mul: operand types {float, float, float} and i32"},
		{"compare vectors", []compiler.StepDef{op("lt", "y", "v", "v")}, "bool", "lt: operand types"},
		{"select condition", []compiler.StepDef{op("select", "y", "f", "f", "f")}, "float", "select: condition type float"},
		{"extract scalar", []compiler.StepDef{{Op: "extract", Out: "y", Args: []string{"f"}}}, "float", "extract: index 0 of float"},
		{"extract range", []compiler.StepDef{{Op: "extract", Out: "y", Args: []string{"v"}, Index: 3}}, "float", "extract: index 3"},
		{"vec3 of ints", []compiler.StepDef{op("vec3", "y", "f", "i", "f")}, "fvec3", "vec3: component 1 is i32"},
		{"cast vector", []compiler.StepDef{{Op: "cast", Out: "y", Args: []string{"v"}, Type: "float"}}, "float", "cast: cannot convert"},
		{"bad const", []compiler.StepDef{constStep("y", "int32", "abc")}, "int32", "const:"},
		{"output type", []compiler.StepDef{op("copy", "y", "i")}, "float", `output "y" is i32, want float`},
		{"unknown callee", []compiler.StepDef{{Op: "call", Function: "nope", Args: []string{"f"}, Out: "y"}}, "float", `unknown function "nope"`},
		{"callee arity", []compiler.StepDef{{Op: "call", Function: "lerp", Args: []string{"f"}, Out: "y"}}, "float", "takes 3 args, got 1"},
		{"callee arg type", []compiler.StepDef{{Op: "call", Function: "math.sqrt", Args: []string{"i"}, Out: "y"}}, "float", "argument 0 is i32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := compiler.FunctionDef{
				Name:    "bad",
				Inputs:  []compiler.ParamDef{param("f", "float"), param("i", "int32"), param("v", "fvec3")},
				Outputs: []compiler.ParamDef{param("y", tt.out)},
				Steps:   tt.steps,
			}
			_, err := NewRecipe(def, r.Types(), r.Lookup)
			require.Error(t, err)

			var re *RecipeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "bad", re.Function)
			assert.Contains(t, re.Error(), tt.want)
		})
	}
}

func TestRecipeError_Format(t *testing.T) {
	assert.Equal(t, "function f: step 2: boom", (&RecipeError{Function: "f", Step: 2, Message: "boom"}).Error())
	assert.Equal(t, "function f: boom", (&RecipeError{Function: "f", Step: -1, Message: "boom"}).Error())
}

// ============================================================================
// Registry
// ============================================================================

func TestRegistry_AddAndLookup(t *testing.T) {
	r := NewRegistry(stdtypes.Default())
	fn, err := r.Add(lerp())
	require.NoError(t, err)
	assert.Equal(t, "lerp", fn.Name())
	assert.Len(t, fn.Signature().Inputs(), 3)

	got, ok := r.Lookup("lerp")
	require.True(t, ok)
	assert.Same(t, fn, got)

	recipe, ok := r.Recipe("lerp")
	require.True(t, ok)
	assert.Equal(t, "lerp", recipe.Definition().Name)
	assert.Equal(t, codegen.KindBuildIR, recipe.BodyKind())
}

func TestRegistry_Duplicate(t *testing.T) {
	r := NewRegistry(stdtypes.Default())
	_, err := r.Add(lerp())
	require.NoError(t, err)
	_, err = r.Add(lerp())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_ValidationErrors(t *testing.T) {
	r := NewRegistry(stdtypes.Default())
	def := lerp()
	def.Outputs = nil
	_, err := r.Add(def)
	require.Error(t, err)

	var verrs compiler.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, compiler.ErrFunctionNoOutputs, verrs[0].Code)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := newRegistry(t, lerp(), clamp01())
	names := r.Names()
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "lerp")
	assert.Contains(t, names, "math.sqrt")
	assert.Len(t, r.Functions(), r.Len())
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := NewRegistry(stdtypes.Default())
	_, err := r.Resolve("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown function "nope"`)
}

func TestRegistry_AddAllRejectsCycles(t *testing.T) {
	ping := compiler.FunctionDef{
		Name:    "ping",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("y", "float")},
		Steps:   []compiler.StepDef{{Op: "call", Function: "pong", Args: []string{"x"}, Out: "y"}},
	}
	pong := ping
	pong.Name = "pong"
	pong.Steps = []compiler.StepDef{{Op: "call", Function: "ping", Args: []string{"x"}, Out: "y"}}

	r := NewRegistry(stdtypes.Default())
	err := r.AddAll([]compiler.FunctionDef{ping, pong})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call cycle")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_AddAllRollsBack(t *testing.T) {
	bad := compiler.FunctionDef{
		Name:    "zbad",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("y", "int32")},
		Steps:   []compiler.StepDef{op("copy", "y", "x")},
	}
	r := NewRegistry(stdtypes.Default())
	err := r.AddAll([]compiler.FunctionDef{lerp(), bad})
	require.Error(t, err)
	assert.Equal(t, 0, r.Len(), "lerp must not stay registered")
}

func TestRegistry_Dependencies(t *testing.T) {
	top := compiler.FunctionDef{
		Name:    "top",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("y", "float")},
		Steps: []compiler.StepDef{
			{Op: "call", Function: "mid", Args: []string{"x"}, Out: "m"},
			{Op: "call", Function: "clamp01", Args: []string{"m"}, Out: "y"},
		},
	}
	mid := compiler.FunctionDef{
		Name:    "mid",
		Inputs:  []compiler.ParamDef{param("x", "float")},
		Outputs: []compiler.ParamDef{param("y", "float")},
		Steps: []compiler.StepDef{
			{Op: "call", Function: "clamp01", Args: []string{"x"}, Out: "c"},
			{Op: "call", Function: "math.sqrt", Args: []string{"c"}, Out: "y"},
		},
	}
	r := newRegistry(t, top, mid, clamp01())

	var names []string
	for _, fn := range r.Dependencies("top") {
		names = append(names, fn.Name())
	}
	assert.Equal(t, []string{"clamp01", "math.sqrt", "mid"}, names)
	assert.Empty(t, r.Dependencies("clamp01"))
}

func TestMostConcrete(t *testing.T) {
	e, err := jit.New("")
	require.NoError(t, err)
	r := newRegistry(t, lerp())

	fn, _ := r.Lookup("lerp")
	assert.Equal(t, codegen.KindBuildIR, MostConcrete(fn))
	require.NoError(t, codegen.DeriveCompiledFromBuildIR(fn, e))
	assert.Equal(t, codegen.KindCompiled, MostConcrete(fn))
	require.NoError(t, codegen.DeriveTupleCallFromBuildIR(fn, e))
	assert.Equal(t, tuplecall.Kind, MostConcrete(fn))

	host, _ := r.Lookup("math.sqrt")
	assert.Equal(t, codegen.KindCompiled, MostConcrete(host))

	assert.Equal(t, "", MostConcrete(core.NewFunction(core.NewSignature(nil, nil), "empty")))
}
