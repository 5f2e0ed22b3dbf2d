package core

// Parameter is a named, typed slot in a Signature.
type Parameter struct {
	name string
	typ  *Type
}

// Name returns the parameter name.
func (p Parameter) Name() string { return p.name }

// Type returns the parameter type.
func (p Parameter) Type() *Type { return p.typ }

// InputParameter is a Parameter consumed by a Function.
type InputParameter struct{ Parameter }

// OutputParameter is a Parameter produced by a Function.
type OutputParameter struct{ Parameter }

// In creates an InputParameter.
func In(name string, typ *Type) InputParameter {
	return InputParameter{Parameter{name: name, typ: typ}}
}

// Out creates an OutputParameter.
func Out(name string, typ *Type) OutputParameter {
	return OutputParameter{Parameter{name: name, typ: typ}}
}

// Signature is the ordered list of inputs followed by the ordered list of
// outputs. The order defines the positional offset-table index of every
// parameter, so a Signature is never modified after construction.
type Signature struct {
	inputs  []InputParameter
	outputs []OutputParameter
}

// NewSignature creates a Signature. Both slices are copied.
func NewSignature(inputs []InputParameter, outputs []OutputParameter) Signature {
	return Signature{
		inputs:  append([]InputParameter(nil), inputs...),
		outputs: append([]OutputParameter(nil), outputs...),
	}
}

// Inputs returns the input parameters in order.
func (s Signature) Inputs() []InputParameter {
	return s.inputs
}

// Outputs returns the output parameters in order.
func (s Signature) Outputs() []OutputParameter {
	return s.outputs
}

// InputTypes returns the type of each input, in order.
func (s Signature) InputTypes() []*Type {
	types := make([]*Type, len(s.inputs))
	for i, p := range s.inputs {
		types[i] = p.typ
	}
	return types
}

// OutputTypes returns the type of each output, in order.
func (s Signature) OutputTypes() []*Type {
	types := make([]*Type, len(s.outputs))
	for i, p := range s.outputs {
		types[i] = p.typ
	}
	return types
}

// InputIndex returns the position of the named input, or -1.
func (s Signature) InputIndex(name string) int {
	for i, p := range s.inputs {
		if p.name == name {
			return i
		}
	}
	return -1
}

// OutputIndex returns the position of the named output, or -1.
func (s Signature) OutputIndex(name string) int {
	for i, p := range s.outputs {
		if p.name == name {
			return i
		}
	}
	return -1
}
