package strata

import (
	"sort"

	"github.com/pkg/errors"
)

// Access describes one element of a view: which component, whether the
// borrow is mutable, and whether the component may be absent.
type Access struct {
	id       ComponentID
	mutable  bool
	optional bool
}

// Read requests an immutable borrow of component T.
func Read[T any](r *Registry) Access {
	return Access{id: ID[T](r)}
}

// Write requests a mutable borrow of component T.
func Write[T any](r *Registry) Access {
	return Access{id: ID[T](r), mutable: true}
}

// ReadOpt requests an immutable borrow of component T, yielding absence
// instead of excluding archetypes that lack it.
func ReadOpt[T any](r *Registry) Access {
	return Access{id: ID[T](r), optional: true}
}

// WriteOpt requests a mutable borrow of component T, tolerating absence.
func WriteOpt[T any](r *Registry) Access {
	return Access{id: ID[T](r), mutable: true, optional: true}
}

// AccessID builds an access element from a raw component ID.
func AccessID(id ComponentID, mutable, optional bool) Access {
	return Access{id: id, mutable: mutable, optional: optional}
}

// View is the canonical form of a user-order element list. The user's order
// is preserved only as an index path; everything else is expressed in
// registry order, which is what lets archetype matching be pure bitmask
// arithmetic.
type View struct {
	elems     []Access // user order, as presented
	canonical []Access // registry order
	path      []int    // user position -> canonical position
	required  maskType
	optional  maskType
	writes    maskType
}

// NewView canonicalizes the element list against the registry. It fails on
// component IDs the registry does not declare and on duplicate components;
// both are build-time errors, never runtime ones.
func NewView(r *Registry, elems ...Access) (*View, error) {
	v := &View{elems: elems}
	seen := maskType{}
	for _, el := range elems {
		if !r.valid(el.id) {
			return nil, errors.Wrapf(ErrNotRegistered, "component id %d", el.id)
		}
		if seen.has(el.id) {
			return nil, errors.Wrapf(ErrDuplicateComponent, "component %s", r.typeOf(el.id))
		}
		seen = setMask(seen, el.id)
		if el.optional {
			v.optional = setMask(v.optional, el.id)
		} else {
			v.required = setMask(v.required, el.id)
		}
		if el.mutable {
			v.writes = setMask(v.writes, el.id)
		}
	}
	// Canonical order is ascending component ID, i.e. registry declaration
	// order. The path lets yielded tuples be projected back to user order.
	v.canonical = make([]Access, len(elems))
	copy(v.canonical, elems)
	sort.SliceStable(v.canonical, func(i, j int) bool {
		return v.canonical[i].id < v.canonical[j].id
	})
	v.path = make([]int, len(elems))
	for ui, el := range elems {
		for ci, cel := range v.canonical {
			if cel.id == el.id {
				v.path[ui] = ci
				break
			}
		}
	}
	return v, nil
}

// MustView is NewView, panicking on invalid shapes.
func MustView(r *Registry, elems ...Access) *View {
	v, err := NewView(r, elems...)
	if err != nil {
		panic(err)
	}
	return v
}

// Len returns the number of view elements.
func (self *View) Len() int {
	return len(self.elems)
}

// reads returns the mask of components borrowed immutably.
func (self *View) reads() maskType {
	return andNotMask(orMask(self.required, self.optional), self.writes)
}
