package core

import (
	"reflect"
	"slices"
)

// Composition is an open, type-indexed set of attachments. It holds at most
// one value per kind, where the kind is the static type argument used to
// attach it. Attachments are append-only.
type Composition struct {
	items map[reflect.Type]any
}

func kindOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Has reports whether a value of kind T is attached.
func Has[T any](c *Composition) bool {
	_, ok := c.items[kindOf[T]()]
	return ok
}

// Get returns the attached value of kind T. It fails closed: the zero value
// and false are returned when nothing is attached.
func Get[T any](c *Composition) (T, bool) {
	v, ok := c.items[kindOf[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	t, _ := v.(T)
	return t, true
}

// Add attaches v as the value of kind T. It returns false without modifying
// c if a value of that kind is already present.
func Add[T any](c *Composition, v T) bool {
	k := kindOf[T]()
	if _, ok := c.items[k]; ok {
		return false
	}
	if c.items == nil {
		c.items = make(map[reflect.Type]any)
	}
	c.items[k] = v
	return true
}

// Kinds returns the names of all attached kinds, sorted.
func (c *Composition) Kinds() []string {
	names := make([]string, 0, len(c.items))
	for k := range c.items {
		names = append(names, k.String())
	}
	slices.Sort(names)
	return names
}
