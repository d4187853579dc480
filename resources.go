package strata

import "reflect"

// Resources manages the world's singleton values, ensuring no duplicate types
// are present at the same time. It uses a slice for storage, a map for quick
// type to ID mapping, and a free list for ID reuse.
type Resources struct {
	items   []any
	types   map[reflect.Type]int
	freeIds []int
	nonSync []bool
}

// ResourceOption configures a resource registration.
type ResourceOption func(r *Resources, id int)

// ResourceNonSync marks the resource as unsafe to share across threads; the
// scheduler refuses it in parallel systems and multi-system stages.
func ResourceNonSync() ResourceOption {
	return func(r *Resources, id int) {
		r.nonSync[id] = true
	}
}

// Add adds a resource and returns its ID. Panics if a resource of the same
// type already exists. Reuses free IDs if available to avoid growing the
// slice unnecessarily.
func (self *Resources) Add(res any, opts ...ResourceOption) int {
	if res == nil {
		panic("strata: cannot add nil resource")
	}
	t := reflect.TypeOf(res)
	if self.types == nil {
		self.types = make(map[reflect.Type]int)
	}
	if _, ok := self.types[t]; ok {
		panic("strata: resource of the same type already exists")
	}
	var id int
	if len(self.freeIds) > 0 {
		id = self.freeIds[len(self.freeIds)-1]
		self.freeIds = self.freeIds[:len(self.freeIds)-1]
		self.items[id] = res
		self.nonSync[id] = false
	} else {
		self.items = append(self.items, res)
		self.nonSync = append(self.nonSync, false)
		id = len(self.items) - 1
	}
	self.types[t] = id
	for _, opt := range opts {
		opt(self, id)
	}
	return id
}

// Has checks if a resource with the given ID exists.
func (self *Resources) Has(id int) bool {
	return id >= 0 && id < len(self.items) && self.items[id] != nil
}

// Get retrieves the resource by ID, or nil if it doesn't exist.
func (self *Resources) Get(id int) any {
	if !self.Has(id) {
		return nil
	}
	return self.items[id]
}

// Remove removes the resource by ID if it exists, marking the ID as free for
// reuse.
func (self *Resources) Remove(id int) {
	if !self.Has(id) {
		return
	}
	res := self.items[id]
	t := reflect.TypeOf(res)
	delete(self.types, t)
	self.items[id] = nil
	self.nonSync[id] = false
	self.freeIds = append(self.freeIds, id)
}

// Clear removes all resources, resetting the free list.
func (self *Resources) Clear() {
	for i := range self.items {
		self.items[i] = nil
	}
	self.items = self.items[:0]
	self.nonSync = self.nonSync[:0]
	clear(self.types)
	self.freeIds = self.freeIds[:0]
}

// Len returns the number of resources currently held.
func (self *Resources) Len() int {
	return len(self.types)
}

// isNonSync reports whether the resource ID was added with ResourceNonSync.
func (self *Resources) isNonSync(id int) bool {
	return id >= 0 && id < len(self.nonSync) && self.nonSync[id]
}

// idOf returns the ID for a resource of the given pointer type.
func (self *Resources) idOf(t reflect.Type) (int, bool) {
	id, ok := self.types[t]
	return id, ok
}

// HasResource checks if a resource of type T exists, returning true and its
// ID, or false and -1.
func HasResource[T any](r *Resources) (bool, int) {
	t := reflect.TypeOf((*T)(nil))
	if id, ok := r.types[t]; ok {
		return true, id
	}
	return false, -1
}

// GetResource retrieves the resource of type T if it exists, returning it as
// *T and its ID, or nil and -1.
func GetResource[T any](r *Resources) (*T, int) {
	t := reflect.TypeOf((*T)(nil))
	if id, ok := r.types[t]; ok {
		res := r.items[id].(*T)
		return res, id
	}
	return nil, -1
}
