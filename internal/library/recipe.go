package library

import (
	"github.com/roach88/fnjit/internal/codegen"
	"github.com/roach88/fnjit/internal/compiler"
	"github.com/roach88/fnjit/internal/core"
	"github.com/roach88/fnjit/internal/ir"
	"github.com/roach88/fnjit/internal/stdtypes"
)

var vec3Type = stdtypes.IRType(stdtypes.FVec3)

// step is a type-checked recipe step.
type step struct {
	op     string
	args   []string
	out    string
	typ    *ir.Type // result type
	pred   ir.Predicate
	index  int
	word   ir.Word       // const
	callee *core.Function // call
}

// Recipe is the BuildIRBody of a function loaded from a definition. All
// type checking happens when the recipe is created; BuildIR only emits
// instructions.
type Recipe struct {
	def   compiler.FunctionDef
	sig   core.Signature
	steps []step
}

// Definition returns the definition the recipe was built from.
func (r *Recipe) Definition() compiler.FunctionDef { return r.def }

// Signature returns the signature derived from the definition.
func (r *Recipe) Signature() core.Signature { return r.sig }

// BodyKind implements core.Body.
func (r *Recipe) BodyKind() string { return codegen.KindBuildIR }

// BuildIR implements codegen.BuildIRBody. Call steps use the routine in
// settings.Callees when present, otherwise the callee's compiled body,
// which must then already be attached.
func (r *Recipe) BuildIR(b *ir.Builder, ci *codegen.CodeInterface, settings codegen.BuildIRSettings) {
	vars := make(map[string]ir.Value, len(r.steps)+ci.NumInputs())
	for i, in := range r.sig.Inputs() {
		vars[in.Name()] = ci.Input(i)
	}
	for i := range r.steps {
		r.steps[i].emit(b, ci, settings.Callees, vars)
	}
	for i, out := range r.sig.Outputs() {
		ci.SetOutput(i, vars[out.Name()])
	}
}

func (s *step) emit(b *ir.Builder, ci *codegen.CodeInterface, callees map[string]*ir.NativeFunc, vars map[string]ir.Value) {
	args := make([]ir.Value, len(s.args))
	for i, name := range s.args {
		args[i] = vars[name]
	}

	switch s.op {
	case "add", "sub", "mul", "div":
		vars[s.out] = emitArith(b, s.op, args[0], args[1], s.typ)
	case "neg":
		vars[s.out] = emitNeg(b, args[0])
	case "min", "max":
		vars[s.out] = b.Select(b.Cmp(s.pred, args[0], args[1]), args[0], args[1])
	case "lt", "gt", "eq":
		vars[s.out] = b.Cmp(s.pred, args[0], args[1])
	case "select":
		vars[s.out] = b.Select(args[0], args[1], args[2])
	case "copy":
		vars[s.out] = args[0]
	case "cast":
		vars[s.out] = b.Cast(args[0], s.typ)
	case "extract":
		vars[s.out] = b.ExtractValue(args[0], s.index)
	case "vec3":
		var v ir.Value = b.ConstZero(vec3Type)
		for i, a := range args {
			v = b.InsertValue(v, a, i)
		}
		vars[s.out] = v
	case "const":
		vars[s.out] = ir.NewConst(s.typ, s.word)
	case "call":
		s.emitCall(b, ci, callees[s.callee.Name()], args, vars)
	}
}

func (s *step) emitCall(b *ir.Builder, ci *codegen.CodeInterface, native *ir.NativeFunc, args []ir.Value, vars map[string]ir.Value) {
	if native == nil {
		body, ok := core.BodyOf[*codegen.CompiledBody](s.callee)
		core.Assert(ok, core.ErrCodeMissingBody, s.callee.Name(),
			"called from recipe without a compiled body")
		native = body.Native
	}

	res := b.Call(native, append(args, ci.Context())...)
	outs := s.callee.Signature().Outputs()
	if len(outs) == 1 {
		vars[s.out] = b.ExtractValue(res, 0)
		return
	}
	for i, o := range outs {
		vars[s.out+"."+o.Name()] = b.ExtractValue(res, i)
	}
}

// emitArith applies op lane by lane for struct operands. A scalar y is
// broadcast across the lanes of x.
func emitArith(b *ir.Builder, op string, x, y ir.Value, typ *ir.Type) ir.Value {
	if typ.Kind() != ir.KindStruct {
		switch op {
		case "add":
			return b.Add(x, y)
		case "sub":
			return b.Sub(x, y)
		case "mul":
			return b.Mul(x, y)
		default:
			return b.Div(x, y)
		}
	}

	var agg ir.Value = b.ConstZero(typ)
	for i, lane := range typ.Fields() {
		yi := y
		if y.Type().Kind() == ir.KindStruct {
			yi = b.ExtractValue(y, i)
		}
		agg = b.InsertValue(agg, emitArith(b, op, b.ExtractValue(x, i), yi, lane), i)
	}
	return agg
}

func emitNeg(b *ir.Builder, x ir.Value) ir.Value {
	typ := x.Type()
	if typ.Kind() != ir.KindStruct {
		return b.Neg(x)
	}
	var agg ir.Value = b.ConstZero(typ)
	for i := range typ.Fields() {
		agg = b.InsertValue(agg, b.Neg(b.ExtractValue(x, i)), i)
	}
	return agg
}

// Resolver finds previously registered functions for call steps.
type Resolver func(name string) (*core.Function, bool)

// NewRecipe type-checks def and returns its recipe. The definition should
// already have passed compiler.Validate; NewRecipe reports the typing
// errors validation cannot see.
func NewRecipe(def compiler.FunctionDef, types compiler.TypeLookup, resolve Resolver) (*Recipe, error) {
	p := planner{def: &def, types: types, resolve: resolve, vars: make(map[string]*ir.Type)}

	var ins []core.InputParameter
	for _, in := range def.Inputs {
		t, irt, err := p.resolveType(-1, in.Type)
		if err != nil {
			return nil, err
		}
		ins = append(ins, core.In(in.Name, t))
		p.vars[in.Name] = irt
	}
	var outs []core.OutputParameter
	outTypes := make([]*ir.Type, len(def.Outputs))
	for i, out := range def.Outputs {
		t, irt, err := p.resolveType(-1, out.Type)
		if err != nil {
			return nil, err
		}
		outs = append(outs, core.Out(out.Name, t))
		outTypes[i] = irt
	}

	steps := make([]step, 0, len(def.Steps))
	for i := range def.Steps {
		s, err := p.plan(i)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}

	for i, out := range def.Outputs {
		got, ok := p.vars[out.Name]
		if !ok {
			return nil, stepError(def.Name, -1, "output %q is never assigned", out.Name)
		}
		if !got.Equal(outTypes[i]) {
			return nil, stepError(def.Name, -1, "output %q is %s, want %s", out.Name, got, outTypes[i])
		}
	}

	return &Recipe{def: def, sig: core.NewSignature(ins, outs), steps: steps}, nil
}

// planner carries the variable types while steps are checked in order.
type planner struct {
	def     *compiler.FunctionDef
	types   compiler.TypeLookup
	resolve Resolver
	vars    map[string]*ir.Type
}

func (p *planner) resolveType(i int, name string) (*core.Type, *ir.Type, error) {
	t, ok := p.types.Lookup(name)
	if !ok {
		return nil, nil, stepError(p.def.Name, i, "unknown type %q", name)
	}
	irt := stdtypes.IRType(t)
	if irt == nil {
		return nil, nil, stepError(p.def.Name, i, "type %q has no code generator", name)
	}
	return t, irt, nil
}

func (p *planner) plan(i int) (step, error) {
	sd := p.def.Steps[i]
	s := step{op: sd.Op, args: sd.Args, out: sd.Out, index: sd.Index}
	fail := func(format string, args ...any) (step, error) {
		return step{}, stepError(p.def.Name, i, format, args...)
	}

	want, known := compiler.Ops[sd.Op]
	if !known {
		return fail("unknown op %q", sd.Op)
	}
	if want >= 0 && len(sd.Args) != want {
		return fail("%s takes %d args, got %d", sd.Op, want, len(sd.Args))
	}
	if _, taken := p.vars[sd.Out]; taken {
		return fail("variable %q is already bound", sd.Out)
	}

	argTypes := make([]*ir.Type, len(sd.Args))
	for j, a := range sd.Args {
		t, ok := p.vars[a]
		if !ok {
			return fail("undefined variable %q", a)
		}
		argTypes[j] = t
	}

	switch sd.Op {
	case "add", "sub", "mul", "div":
		x, y := argTypes[0], argTypes[1]
		switch {
		case x.IsNumeric() && x.Equal(y):
		case isNumericStruct(x) && (x.Equal(y) || isLaneOf(y, x)):
		default:
			return fail("%s: operand types %s and %s", sd.Op, x, y)
		}
		s.typ = x

	case "neg":
		x := argTypes[0]
		if !x.IsNumeric() && !isNumericStruct(x) {
			return fail("neg: operand type %s", x)
		}
		s.typ = x

	case "min", "max", "lt", "gt":
		x, y := argTypes[0], argTypes[1]
		if !x.IsNumeric() || !x.Equal(y) {
			return fail("%s: operand types %s and %s", sd.Op, x, y)
		}
		s.pred = map[string]ir.Predicate{"min": ir.PredLT, "max": ir.PredGT, "lt": ir.PredLT, "gt": ir.PredGT}[sd.Op]
		s.typ = x
		if sd.Op == "lt" || sd.Op == "gt" {
			s.typ = ir.Int1
		}

	case "eq":
		x, y := argTypes[0], argTypes[1]
		if !x.IsNumeric() || !x.Equal(y) {
			return fail("eq: operand types %s and %s", x, y)
		}
		s.pred = ir.PredEQ
		s.typ = ir.Int1

	case "select":
		if !argTypes[0].Equal(ir.Int1) {
			return fail("select: condition type %s, want i1", argTypes[0])
		}
		if !argTypes[1].Equal(argTypes[2]) {
			return fail("select: operand types %s and %s", argTypes[1], argTypes[2])
		}
		s.typ = argTypes[1]

	case "copy":
		s.typ = argTypes[0]

	case "cast":
		_, to, err := p.resolveType(i, sd.Type)
		if err != nil {
			return step{}, err
		}
		if !argTypes[0].IsNumeric() || !to.IsNumeric() {
			return fail("cast: cannot convert %s to %s", argTypes[0], to)
		}
		s.typ = to

	case "extract":
		x := argTypes[0]
		if x.Kind() != ir.KindStruct || sd.Index < 0 || sd.Index >= len(x.Fields()) {
			return fail("extract: index %d of %s", sd.Index, x)
		}
		s.typ = x.Fields()[sd.Index]

	case "vec3":
		for j, t := range argTypes {
			if !t.Equal(ir.Float32) {
				return fail("vec3: component %d is %s, want float", j, t)
			}
		}
		s.typ = vec3Type

	case "const":
		t, irt, err := p.resolveType(i, sd.Type)
		if err != nil {
			return step{}, err
		}
		c, ok := core.ExtensionOf[stdtypes.ValueCodec](t)
		if !ok {
			return fail("const: type %q has no value codec", sd.Type)
		}
		w, err := c.Word(sd.Value)
		if err != nil {
			return fail("const: %v", err)
		}
		s.typ, s.word = irt, w

	case "call":
		return p.planCall(i, s, argTypes)
	}

	p.vars[sd.Out] = s.typ
	return s, nil
}

func (p *planner) planCall(i int, s step, argTypes []*ir.Type) (step, error) {
	sd := p.def.Steps[i]
	if p.resolve == nil {
		return step{}, stepError(p.def.Name, i, "call: no function registry")
	}
	callee, ok := p.resolve(sd.Function)
	if !ok {
		return step{}, stepError(p.def.Name, i, "call: unknown function %q", sd.Function)
	}

	sig := callee.Signature()
	ins := sig.InputTypes()
	if len(ins) != len(argTypes) {
		return step{}, stepError(p.def.Name, i, "call %s: takes %d args, got %d", callee.Name(), len(ins), len(argTypes))
	}
	for j, t := range ins {
		want := stdtypes.IRType(t)
		if want == nil || !want.Equal(argTypes[j]) {
			return step{}, stepError(p.def.Name, i, "call %s: argument %d is %s, want %s", callee.Name(), j, argTypes[j], t)
		}
	}

	outs := sig.Outputs()
	for _, o := range outs {
		if stdtypes.IRType(o.Type()) == nil {
			return step{}, stepError(p.def.Name, i, "call %s: output %q has no code generator", callee.Name(), o.Name())
		}
	}
	if len(outs) == 1 {
		p.vars[sd.Out] = stdtypes.IRType(outs[0].Type())
	} else {
		for _, o := range outs {
			p.vars[sd.Out+"."+o.Name()] = stdtypes.IRType(o.Type())
		}
	}
	s.callee = callee
	return s, nil
}

// isNumericStruct reports whether t is a struct of numeric lanes.
func isNumericStruct(t *ir.Type) bool {
	if t.Kind() != ir.KindStruct || len(t.Fields()) == 0 {
		return false
	}
	for _, f := range t.Fields() {
		if !f.IsNumeric() {
			return false
		}
	}
	return true
}

// isLaneOf reports whether scalar s matches every lane of struct t.
func isLaneOf(s, t *ir.Type) bool {
	if s.Kind() == ir.KindStruct {
		return false
	}
	for _, f := range t.Fields() {
		if !f.Equal(s) {
			return false
		}
	}
	return true
}
