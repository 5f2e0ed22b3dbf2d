package core

import "golang.org/x/text/unicode/norm"

// DefaultFunctionName is used when a Function is created without a name.
const DefaultFunctionName = "Function"

// Body is one executable representation of a Function. Concrete body kinds
// live in backend packages; core only stores them.
type Body interface {
	// BodyKind names the representation, e.g. "build_ir" or "tuple_call".
	BodyKind() string
}

// Function is a Signature plus a set of interchangeable Bodies, at most one
// per kind. Functions are shared by pointer between call sites and
// compilers.
//
// Attaching bodies is not synchronized. Concurrent derivations on the same
// Function must be serialized by the caller.
type Function struct {
	signature Signature
	name      string
	bodies    Composition
}

// NewFunction creates a Function without bodies.
func NewFunction(sig Signature, name string) *Function {
	if name == "" {
		name = DefaultFunctionName
	}
	return &Function{signature: sig, name: norm.NFC.String(name)}
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.name
}

// Signature returns the function signature.
func (f *Function) Signature() Signature {
	return f.signature
}

// BodyKinds returns the attached body kinds as Go type names, sorted.
func (f *Function) BodyKinds() []string {
	return f.bodies.Kinds()
}

// AddBody attaches body as the Body of kind B. A second body of the same
// kind panics with ErrCodeDuplicateBody.
func AddBody[B Body](f *Function, body B) {
	if !Add(&f.bodies, body) {
		Fail(ErrCodeDuplicateBody, f.name, "body %s already attached", kindOf[B]())
	}
}

// BodyOf returns the Body of kind B, or false if none is attached.
func BodyOf[B Body](f *Function) (B, bool) {
	return Get[B](&f.bodies)
}

// HasBody reports whether a Body of kind B is attached.
func HasBody[B Body](f *Function) bool {
	return Has[B](&f.bodies)
}

// MustBody returns the Body of kind B or panics with ErrCodeMissingBody.
func MustBody[B Body](f *Function) B {
	body, ok := BodyOf[B](f)
	if !ok {
		Fail(ErrCodeMissingBody, f.name, "function has no %s body", kindOf[B]())
	}
	return body
}

// AssertDerivable checks the preconditions of deriving a body of kind To
// from a body of kind From: the source must be present and the target
// absent.
func AssertDerivable[From, To Body](f *Function) {
	Assert(HasBody[From](f), ErrCodeMissingBody, f.name,
		"cannot derive %s: no %s body", kindOf[To](), kindOf[From]())
	Assert(!HasBody[To](f), ErrCodeDuplicateBody, f.name,
		"cannot derive %s: already present", kindOf[To]())
}
