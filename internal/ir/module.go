package ir

// Function is an IR function with a single entry block.
type Function struct {
	Name   string
	Ret    *Type
	Params []*Param
	Body   []*Inst

	module   *Module
	numSlots int
}

// Module is a compilation unit: functions plus the native routines they
// call.
type Module struct {
	Name      string
	Functions []*Function
	Natives   []*NativeFunc
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name}
}

// NewFunction adds a function with the given return and parameter types.
func (m *Module) NewFunction(name string, ret *Type, params ...*Type) *Function {
	fn := &Function{Name: name, Ret: ret, module: m}
	for i, t := range params {
		fn.Params = append(fn.Params, &Param{typ: t, Index: i})
	}
	fn.numSlots = len(params)
	m.Functions = append(m.Functions, fn)
	return fn
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Declare registers a native routine. Declaring the same routine twice is a
// no-op.
func (m *Module) Declare(nf *NativeFunc) *NativeFunc {
	for _, existing := range m.Natives {
		if existing == nf {
			return nf
		}
	}
	m.Natives = append(m.Natives, nf)
	return nf
}

// Module returns the module the function belongs to.
func (fn *Function) Module() *Module {
	return fn.module
}

// Param returns parameter i.
func (fn *Function) Param(i int) *Param {
	return fn.Params[i]
}

// NumSlots returns the register file size needed to run the function:
// parameters first, then one slot per value-producing instruction.
func (fn *Function) NumSlots() int {
	return fn.numSlots
}

// ParamTypes returns the parameter types in order.
func (fn *Function) ParamTypes() []*Type {
	types := make([]*Type, len(fn.Params))
	for i, p := range fn.Params {
		types[i] = p.typ
	}
	return types
}

func (fn *Function) append(in *Inst) *Inst {
	if in.typ == nil {
		in.typ = Void
	}
	if in.typ.kind == KindVoid {
		in.slot = -1
	} else {
		in.slot = fn.numSlots
		fn.numSlots++
	}
	fn.Body = append(fn.Body, in)
	return in
}

// Replace substitutes every use of old in the function body with v.
func (fn *Function) Replace(old, v Value) {
	for _, in := range fn.Body {
		for i, op := range in.Operands {
			if op == old {
				in.Operands[i] = v
			}
		}
	}
}

// Uses counts how many operands refer to v.
func (fn *Function) Uses(v Value) int {
	n := 0
	for _, in := range fn.Body {
		for _, op := range in.Operands {
			if op == v {
				n++
			}
		}
	}
	return n
}
