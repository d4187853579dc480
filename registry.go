package strata

import (
	"fmt"
	"reflect"
	"unsafe"
)

// ComponentID is a unique identifier for a component type within one Registry.
// IDs are assigned in declaration order; that order is the canonical order
// every archetype, view and filter is normalized to.
type ComponentID uint32

// Registry is the declared universe of component types. All shapes presented
// to a World are checked against its Registry when descriptors are built;
// a component type the Registry does not know is rejected before any runtime
// work happens.
type Registry struct {
	types   []reflect.Type
	sizes   []uintptr
	ids     map[reflect.Type]ComponentID
	nonSync maskType
	sealed  bool
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		ids: make(map[reflect.Type]ComponentID, 16),
	}
}

// ComponentOption configures a component registration.
type ComponentOption func(r *Registry, id ComponentID)

// AsNonSync marks the component as unsafe to share across threads. The
// scheduler refuses to place it in a parallel system or in a stage containing
// more than one system.
func AsNonSync() ComponentOption {
	return func(r *Registry, id ComponentID) {
		r.nonSync = setMask(r.nonSync, id)
	}
}

// RegisterComponent declares a component type in the registry and returns its
// ID. Registering the same type again returns the existing ID. It panics if
// the maximum number of component types is exceeded or if the registry is
// already in use by a World.
func RegisterComponent[T any](r *Registry, opts ...ComponentOption) ComponentID {
	var zero T
	t := reflect.TypeOf(zero)
	if id, ok := r.ids[t]; ok {
		return id
	}
	if r.sealed {
		panic(fmt.Sprintf("strata: cannot register %s: registry is sealed by a world", t))
	}
	if len(r.types) >= maxComponentTypes {
		panic(fmt.Sprintf("strata: cannot register %s: maximum number of component types (%d) reached", t, maxComponentTypes))
	}
	id := ComponentID(len(r.types))
	r.types = append(r.types, t)
	r.sizes = append(r.sizes, unsafe.Sizeof(zero))
	r.ids[t] = id
	for _, opt := range opts {
		opt(r, id)
	}
	return id
}

// ID returns the ComponentID for a registered component type.
// It panics if the type has not been registered.
func ID[T any](r *Registry) ComponentID {
	var zero T
	t := reflect.TypeOf(zero)
	id, ok := r.ids[t]
	if !ok {
		panic(fmt.Sprintf("strata: component type %s not registered", t))
	}
	return id
}

// TryID returns the ComponentID for a component type and whether it is
// registered. It never panics.
func TryID[T any](r *Registry) (ComponentID, bool) {
	var zero T
	t := reflect.TypeOf(zero)
	id, ok := r.ids[t]
	return id, ok
}

// Len returns the number of registered component types.
func (self *Registry) Len() int {
	return len(self.types)
}

// typeOf returns the reflect.Type for a component ID.
func (self *Registry) typeOf(id ComponentID) reflect.Type {
	return self.types[id]
}

// sizeOf returns the byte size of a component ID's type.
func (self *Registry) sizeOf(id ComponentID) uintptr {
	return self.sizes[id]
}

// isNonSync reports whether the component was registered with AsNonSync.
func (self *Registry) isNonSync(id ComponentID) bool {
	return self.nonSync.has(id)
}

// valid reports whether the ID names a registered component.
func (self *Registry) valid(id ComponentID) bool {
	return int(id) < len(self.types)
}
