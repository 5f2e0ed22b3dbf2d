package core

import "golang.org/x/text/unicode/norm"

// Type identifies a value kind by name and carries an open set of
// extensions describing how backends handle values of that kind.
//
// Types are created once during setup and shared by pointer.
type Type struct {
	name       string
	extensions Composition
}

// NewType creates a Type. The name is NFC normalized.
func NewType(name string) *Type {
	return &Type{name: norm.NFC.String(name)}
}

// Name returns the type name.
func (t *Type) Name() string {
	return t.name
}

func (t *Type) String() string {
	return t.name
}

// Extensions returns the names of all attached extension kinds.
func (t *Type) Extensions() []string {
	return t.extensions.Kinds()
}

// Extend attaches ext as the extension of kind E. Attaching a second
// extension of the same kind panics with ErrCodeDuplicateExtension.
func Extend[E any](t *Type, ext E) {
	if !Add(&t.extensions, ext) {
		Fail(ErrCodeDuplicateExtension, t.name, "extension %s already attached", kindOf[E]())
	}
}

// ExtensionOf returns the extension of kind E, or false if none is attached.
func ExtensionOf[E any](t *Type) (E, bool) {
	return Get[E](&t.extensions)
}

// HasExtension reports whether an extension of kind E is attached.
func HasExtension[E any](t *Type) bool {
	return Has[E](&t.extensions)
}

// MustExtension returns the extension of kind E or panics with code.
func MustExtension[E any](t *Type, code InvariantCode) E {
	ext, ok := ExtensionOf[E](t)
	if !ok {
		Fail(code, t.name, "type has no %s extension", kindOf[E]())
	}
	return ext
}
