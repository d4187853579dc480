package strata

// Entity creation goes through shape-typed helpers: the component set is
// fixed by the type parameters, checked against the registry before any
// storage is touched, and canonicalized by ID so any type-parameter order
// maps to the same archetype.

// shapeMask resolves a set of component IDs to an archetype mask, rejecting
// duplicates. The arity is the number of IDs the caller supplied.
func shapeMask(arity int, ids ...ComponentID) maskType {
	m := makeMask(ids)
	if m.count() != arity {
		panic(ErrDuplicateComponent.Error())
	}
	return m
}

// CreateEntity creates a new entity with no components.
func (self *World) CreateEntity() Entity {
	return self.createEntity(self.archetypes[self.emptyArchIndex])
}

// Insert1 creates an entity with one component.
func Insert1[A any](w *World, a A) Entity {
	id1 := ID[A](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(1, id1))
	e := w.createEntity(arch)
	row := w.metas[e.ID].index
	*(*A)(arch.ptrAt(id1, row)) = a
	return e
}

// Insert2 creates an entity with two components.
func Insert2[A, B any](w *World, a A, b B) Entity {
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(2, id1, id2))
	e := w.createEntity(arch)
	row := w.metas[e.ID].index
	*(*A)(arch.ptrAt(id1, row)) = a
	*(*B)(arch.ptrAt(id2, row)) = b
	return e
}

// Insert3 creates an entity with three components.
func Insert3[A, B, C any](w *World, a A, b B, c C) Entity {
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	id3 := ID[C](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(3, id1, id2, id3))
	e := w.createEntity(arch)
	row := w.metas[e.ID].index
	*(*A)(arch.ptrAt(id1, row)) = a
	*(*B)(arch.ptrAt(id2, row)) = b
	*(*C)(arch.ptrAt(id3, row)) = c
	return e
}

// Insert4 creates an entity with four components.
func Insert4[A, B, C, D any](w *World, a A, b B, c C, d D) Entity {
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	id3 := ID[C](w.registry)
	id4 := ID[D](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(4, id1, id2, id3, id4))
	e := w.createEntity(arch)
	row := w.metas[e.ID].index
	*(*A)(arch.ptrAt(id1, row)) = a
	*(*B)(arch.ptrAt(id2, row)) = b
	*(*C)(arch.ptrAt(id3, row)) = c
	*(*D)(arch.ptrAt(id4, row)) = d
	return e
}

// Insert5 creates an entity with five components.
func Insert5[A, B, C, D, E any](w *World, a A, b B, c C, d D, e E) Entity {
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	id3 := ID[C](w.registry)
	id4 := ID[D](w.registry)
	id5 := ID[E](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(5, id1, id2, id3, id4, id5))
	ent := w.createEntity(arch)
	row := w.metas[ent.ID].index
	*(*A)(arch.ptrAt(id1, row)) = a
	*(*B)(arch.ptrAt(id2, row)) = b
	*(*C)(arch.ptrAt(id3, row)) = c
	*(*D)(arch.ptrAt(id4, row)) = d
	*(*E)(arch.ptrAt(id5, row)) = e
	return ent
}

// Insert6 creates an entity with six components.
func Insert6[A, B, C, D, E, F any](w *World, a A, b B, c C, d D, e E, f F) Entity {
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	id3 := ID[C](w.registry)
	id4 := ID[D](w.registry)
	id5 := ID[E](w.registry)
	id6 := ID[F](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(6, id1, id2, id3, id4, id5, id6))
	ent := w.createEntity(arch)
	row := w.metas[ent.ID].index
	*(*A)(arch.ptrAt(id1, row)) = a
	*(*B)(arch.ptrAt(id2, row)) = b
	*(*C)(arch.ptrAt(id3, row)) = c
	*(*D)(arch.ptrAt(id4, row)) = d
	*(*E)(arch.ptrAt(id5, row)) = e
	*(*F)(arch.ptrAt(id6, row)) = f
	return ent
}

// extendInto bulk-creates count zero-initialized entities in the archetype.
func (self *World) extendInto(a *archetype, count int) []Entity {
	if count == 0 {
		return nil
	}
	a.reserve(count)
	ents := make([]Entity, count)
	for i := range ents {
		ents[i] = self.createEntity(a)
	}
	return ents
}

// Extend1 bulk-creates one entity per element of the column vector.
func Extend1[A any](w *World, as []A) []Entity {
	id1 := ID[A](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(1, id1))
	ents := w.extendInto(arch, len(as))
	for i, e := range ents {
		row := w.metas[e.ID].index
		*(*A)(arch.ptrAt(id1, row)) = as[i]
	}
	return ents
}

// Extend2 bulk-creates entities from parallel column vectors. The vectors
// must have equal length.
func Extend2[A, B any](w *World, as []A, bs []B) []Entity {
	if len(as) != len(bs) {
		panic("strata: extend column lengths differ")
	}
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(2, id1, id2))
	ents := w.extendInto(arch, len(as))
	for i, e := range ents {
		row := w.metas[e.ID].index
		*(*A)(arch.ptrAt(id1, row)) = as[i]
		*(*B)(arch.ptrAt(id2, row)) = bs[i]
	}
	return ents
}

// Extend3 bulk-creates entities from parallel column vectors.
func Extend3[A, B, C any](w *World, as []A, bs []B, cs []C) []Entity {
	if len(as) != len(bs) || len(bs) != len(cs) {
		panic("strata: extend column lengths differ")
	}
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	id3 := ID[C](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(3, id1, id2, id3))
	ents := w.extendInto(arch, len(as))
	for i, e := range ents {
		row := w.metas[e.ID].index
		*(*A)(arch.ptrAt(id1, row)) = as[i]
		*(*B)(arch.ptrAt(id2, row)) = bs[i]
		*(*C)(arch.ptrAt(id3, row)) = cs[i]
	}
	return ents
}

// Extend4 bulk-creates entities from parallel column vectors.
func Extend4[A, B, C, D any](w *World, as []A, bs []B, cs []C, ds []D) []Entity {
	if len(as) != len(bs) || len(bs) != len(cs) || len(cs) != len(ds) {
		panic("strata: extend column lengths differ")
	}
	id1 := ID[A](w.registry)
	id2 := ID[B](w.registry)
	id3 := ID[C](w.registry)
	id4 := ID[D](w.registry)
	arch := w.getOrCreateArchetype(shapeMask(4, id1, id2, id3, id4))
	ents := w.extendInto(arch, len(as))
	for i, e := range ents {
		row := w.metas[e.ID].index
		*(*A)(arch.ptrAt(id1, row)) = as[i]
		*(*B)(arch.ptrAt(id2, row)) = bs[i]
		*(*C)(arch.ptrAt(id3, row)) = cs[i]
		*(*D)(arch.ptrAt(id4, row)) = ds[i]
	}
	return ents
}
