package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sizeExt struct{ size int }

type nameExt interface{ Label() string }

type labelImpl string

func (l labelImpl) Label() string { return string(l) }

type irBody struct{}

func (irBody) BodyKind() string { return "build_ir" }

type callBody struct{ id int }

func (*callBody) BodyKind() string { return "tuple_call" }

// requireInvariant runs fn and asserts it panics with the given code.
func requireInvariant(t *testing.T, code InvariantCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic with %s", code)
		assert.True(t, IsInvariant(r, code), "expected %s, got %v", code, r)
	}()
	fn()
}

// =============================================================================
// Composition / Type extensions
// =============================================================================

func TestType_ExtendAndLookup(t *testing.T) {
	typ := NewType("float")
	Extend(typ, sizeExt{size: 4})
	Extend[nameExt](typ, labelImpl("f32"))

	ext, ok := ExtensionOf[sizeExt](typ)
	require.True(t, ok)
	assert.Equal(t, 4, ext.size)

	label, ok := ExtensionOf[nameExt](typ)
	require.True(t, ok)
	assert.Equal(t, "f32", label.Label())

	assert.Len(t, typ.Extensions(), 2)
}

func TestType_ExtensionAbsentFailsClosed(t *testing.T) {
	typ := NewType("int32")

	ext, ok := ExtensionOf[sizeExt](typ)
	assert.False(t, ok)
	assert.Equal(t, sizeExt{}, ext)
	assert.False(t, HasExtension[nameExt](typ))
}

func TestType_ExtendTwicePanics(t *testing.T) {
	typ := NewType("float")
	Extend(typ, sizeExt{size: 4})

	requireInvariant(t, ErrCodeDuplicateExtension, func() {
		Extend(typ, sizeExt{size: 8})
	})

	// The first extension is retained.
	ext, _ := ExtensionOf[sizeExt](typ)
	assert.Equal(t, 4, ext.size)
}

func TestType_MustExtension(t *testing.T) {
	typ := NewType("bool")
	requireInvariant(t, ErrCodeMissingCodeGen, func() {
		MustExtension[sizeExt](typ, ErrCodeMissingCodeGen)
	})
}

func TestType_NameIsNFCNormalized(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	typ := NewType("cafe\u0301")
	assert.Equal(t, "caf\u00e9", typ.Name())
}

// =============================================================================
// Signature
// =============================================================================

func TestSignature_TypesPreserveOrder(t *testing.T) {
	f := NewType("float")
	i := NewType("int32")

	sig := NewSignature(
		[]InputParameter{In("a", f), In("b", i), In("c", f)},
		[]OutputParameter{Out("x", i)},
	)

	assert.Equal(t, []*Type{f, i, f}, sig.InputTypes())
	assert.Equal(t, []*Type{i}, sig.OutputTypes())
	assert.Equal(t, 1, sig.InputIndex("b"))
	assert.Equal(t, 0, sig.OutputIndex("x"))
	assert.Equal(t, -1, sig.InputIndex("missing"))
}

func TestSignature_CopiesParameters(t *testing.T) {
	f := NewType("float")
	inputs := []InputParameter{In("a", f)}
	sig := NewSignature(inputs, nil)

	inputs[0] = In("changed", f)
	assert.Equal(t, "a", sig.Inputs()[0].Name())
	assert.Empty(t, sig.Outputs())
	assert.Empty(t, sig.OutputTypes())
}

// =============================================================================
// Function bodies
// =============================================================================

func TestFunction_DefaultName(t *testing.T) {
	fn := NewFunction(NewSignature(nil, nil), "")
	assert.Equal(t, DefaultFunctionName, fn.Name())
}

func TestFunction_AddBodyOncePerKind(t *testing.T) {
	fn := NewFunction(NewSignature(nil, nil), "noop")
	AddBody(fn, irBody{})
	AddBody(fn, &callBody{id: 1})

	assert.True(t, HasBody[irBody](fn))
	body, ok := BodyOf[*callBody](fn)
	require.True(t, ok)
	assert.Equal(t, 1, body.id)

	requireInvariant(t, ErrCodeDuplicateBody, func() {
		AddBody(fn, &callBody{id: 2})
	})

	body, _ = BodyOf[*callBody](fn)
	assert.Equal(t, 1, body.id, "first body is retained")
	assert.Len(t, fn.BodyKinds(), 2)
}

func TestFunction_AssertDerivable(t *testing.T) {
	fn := NewFunction(NewSignature(nil, nil), "f")

	requireInvariant(t, ErrCodeMissingBody, func() {
		AssertDerivable[irBody, *callBody](fn)
	})

	AddBody(fn, irBody{})
	assert.NotPanics(t, func() { AssertDerivable[irBody, *callBody](fn) })

	AddBody(fn, &callBody{})
	requireInvariant(t, ErrCodeDuplicateBody, func() {
		AssertDerivable[irBody, *callBody](fn)
	})
}

func TestFunction_MustBody(t *testing.T) {
	fn := NewFunction(NewSignature(nil, nil), "f")
	requireInvariant(t, ErrCodeMissingBody, func() {
		MustBody[irBody](fn)
	})
}

func TestInvariantError_Message(t *testing.T) {
	err := &InvariantError{Code: ErrCodeMissingBody, Subject: "add", Message: "no body"}
	assert.Equal(t, "MISSING_BODY: no body (add)", err.Error())
	assert.True(t, IsInvariant(err, ErrCodeMissingBody))
	assert.False(t, IsInvariant(err, ErrCodeDuplicateBody))
	assert.False(t, IsInvariant("not an error", ErrCodeMissingBody))
}
