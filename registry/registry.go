// Package registry maps declared type names to factories of blank instances.
//
// A registry is populated once, before any decode that must rebuild registered
// types, and is only read afterwards. The same name is used as the wire tag by
// the encoder, so registrations on the decoding side must match the names the
// encoding side produced.
//
// Example:
//
//	r := registry.New()
//	registry.Register[Person](r) // "Person"
//	f, ok := r.Lookup("Person")
//	p := f().(*Person) // Zero Person, constructor not called.
package registry

import (
	"reflect"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Factory returns a blank instance of a registered type.
//
// The instance must be a pointer to a zero value. Factories must not run the
// type's normal construction logic: the decoder assigns fields onto the blank
// instance directly, and constructor side effects never re-run on decode.
type Factory func() any

// TypeNamer is implemented by types that declare their own wire name instead
// of the Go type name.
type TypeNamer interface {
	TypeName() string
}

var typeNamerType = reflect.TypeFor[TypeNamer]()

// NameOf returns the declared name of t. Pointer types resolve to their element.
// Unnamed types return "".
func NameOf(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	// Value and pointer receivers are both reachable through *T.
	if reflect.PointerTo(t).Implements(typeNamerType) {
		return reflect.New(t).Interface().(TypeNamer).TypeName()
	}
	return t.Name()
}

// Registry holds name to factory associations.
// The registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register associates name with factory. An existing entry with the same name
// is replaced.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Lookup returns the factory registered under name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := lo.Keys(r.factories)
	slices.Sort(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// Register registers T under its declared name and returns that name.
// The factory allocates a zero T with new.
func Register[T any](r *Registry) string {
	name := NameOf(reflect.TypeFor[T]())
	RegisterAs[T](r, name)
	return name
}

// RegisterAs registers T under the provided name.
func RegisterAs[T any](r *Registry, name string) {
	r.Register(name, func() any { return new(T) })
}
