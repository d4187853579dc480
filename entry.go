package strata

// Entry is a transient cursor over a single entity, supporting reads, writes
// and shape changes. Shape changes migrate the entity's row between
// archetypes, so every operation re-resolves the entity's location from the
// entity table; a row index observed before an add or remove is never reused.
type Entry struct {
	world       *World
	entity      Entity
	scope       maskType // components this entry may read, when scoped
	scopeWrites maskType // components this entry may write or reshape
	scoped      bool
}

// Entry returns a cursor for the entity, or false if the entity is dead.
func (self *World) Entry(e Entity) (*Entry, bool) {
	if !self.Contains(e) {
		return nil, false
	}
	return &Entry{world: self, entity: e}, true
}

// Entity returns the entity this entry points at.
func (self *Entry) Entity() Entity {
	return self.entity
}

// Alive reports whether the entity is still alive.
func (self *Entry) Alive() bool {
	return self.world.Contains(self.entity)
}

// allows reports whether the entry may read the component.
func (self *Entry) allows(id ComponentID) bool {
	return !self.scoped || self.scope.has(id)
}

// allowsWrite reports whether the entry may write or reshape the component.
func (self *Entry) allowsWrite(id ComponentID) bool {
	return !self.scoped || self.scopeWrites.has(id)
}

// resolve returns the entity's current archetype and row. It must be called
// again after any operation that can change the entity's shape.
func (self *Entry) resolve() (*archetype, int, bool) {
	if !self.world.Contains(self.entity) {
		return nil, 0, false
	}
	meta := self.world.metas[self.entity.ID]
	return self.world.archetypes[meta.archetypeIndex], meta.index, true
}

// Matches evaluates a view and filter against this one entity, the
// single-entity analogue of a world query.
func (self *Entry) Matches(v *View, f Filter) bool {
	a, _, ok := self.resolve()
	if !ok {
		return false
	}
	if f == nil {
		f = None()
	}
	return includesAll(a.mask, v.required) && f.matches(a.mask)
}

// EntryHas reports whether the entity currently has component T.
func EntryHas[T any](en *Entry) bool {
	id, ok := TryID[T](en.world.registry)
	if !ok {
		return false
	}
	a, _, ok := en.resolve()
	return ok && a.mask.has(id)
}

// EntryGet returns a pointer to component T of the entry's entity, or nil if
// the entity is dead, lacks the component, or the entry's scope excludes it.
func EntryGet[T any](en *Entry) *T {
	id, ok := TryID[T](en.world.registry)
	if !ok || !en.allows(id) {
		return nil
	}
	a, row, ok := en.resolve()
	if !ok || !a.mask.has(id) {
		return nil
	}
	return (*T)(a.ptrAt(id, row))
}

// EntryAdd adds component T with the given value, overwriting in place when
// the entity already has it. Adding a new component migrates the entity's
// row to the archetype for its current mask plus T. It reports success.
func EntryAdd[T any](en *Entry, val T) bool {
	id, ok := TryID[T](en.world.registry)
	if !ok || !en.allowsWrite(id) {
		return false
	}
	w := en.world
	a, row, ok := en.resolve()
	if !ok {
		return false
	}
	if a.mask.has(id) {
		*(*T)(a.ptrAt(id, row)) = val
		return true
	}
	tr := w.lookupTransition(a, setMask(maskType{}, id), true)
	w.moveEntity(en.entity, tr)
	// The migration invalidated the old row; resolve again before writing.
	a, row, ok = en.resolve()
	if !ok {
		return false
	}
	*(*T)(a.ptrAt(id, row)) = val
	return true
}

// EntryRemove removes component T, migrating the entity's row to the
// archetype for its current mask minus T. Removing an absent component is a
// successful no-op. It reports false when the entity is dead, T is not
// registered, or the entry's scope does not allow writing T.
func EntryRemove[T any](en *Entry) bool {
	id, ok := TryID[T](en.world.registry)
	if !ok || !en.allowsWrite(id) {
		return false
	}
	w := en.world
	a, _, ok := en.resolve()
	if !ok {
		return false
	}
	if !a.mask.has(id) {
		return true
	}
	tr := w.lookupTransition(a, setMask(maskType{}, id), false)
	w.moveEntity(en.entity, tr)
	return true
}
