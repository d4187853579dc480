package strata

import "unsafe"

// archetype holds storage for one unique component-set mask. Entities with
// the same set of components share an archetype; each component is laid out
// as a column, with rows aligned across columns and the entities vector.
type archetype struct {
	mask        maskType
	ids         []ComponentID // component IDs in canonical (registry) order
	cols        []column      // one per ID, same order
	entities    []Entity      // parallel to column rows
	slots       [maxComponentTypes]int16
	index       int  // position in world.archetypes
	emptyMarked bool // empty at the previous shrink pass and no row pushed since
}

func newArchetype(reg *Registry, mask maskType, index int) *archetype {
	a := &archetype{
		mask:  mask,
		index: index,
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	mask.eachBit(func(id ComponentID) {
		a.slots[id] = int16(len(a.cols))
		a.ids = append(a.ids, id)
		a.cols = append(a.cols, newColumn(reg.typeOf(id), reg.sizeOf(id)))
	})
	return a
}

// slot returns the column index for a component ID, or -1 if absent.
func (self *archetype) slot(id ComponentID) int {
	return int(self.slots[id])
}

// len returns the number of entities stored in the archetype.
func (self *archetype) len() int {
	return len(self.entities)
}

// pushZeroRow appends a zero-initialized row for the entity and returns its
// row index.
func (self *archetype) pushZeroRow(e Entity) int {
	row := len(self.entities)
	self.emptyMarked = false
	self.entities = append(self.entities, e)
	for i := range self.cols {
		self.cols[i].pushZero()
	}
	return row
}

// ptrAt returns a pointer to the entity's cell for a component ID. The
// component must be present.
func (self *archetype) ptrAt(id ComponentID, row int) unsafe.Pointer {
	return self.cols[self.slot(id)].ptr(row)
}

// swapRemoveRow removes a row by moving the last row into its place. It
// returns the entity that was moved into the vacated slot, or false when the
// removed row was the last one.
func (self *archetype) swapRemoveRow(row int) (Entity, bool) {
	last := len(self.entities) - 1
	var moved Entity
	swapped := row < last
	if swapped {
		moved = self.entities[last]
		self.entities[row] = moved
	}
	self.entities = self.entities[:last]
	for i := range self.cols {
		self.cols[i].swapRemove(row, last)
	}
	return moved, swapped
}

// reserve grows every column and the entity vector for n additional rows.
func (self *archetype) reserve(n int) {
	need := len(self.entities) + n
	if cap(self.entities) < need {
		ns := make([]Entity, len(self.entities), need)
		copy(ns, self.entities)
		self.entities = ns
	}
	for i := range self.cols {
		self.cols[i].reserve(n)
	}
}

// reset drops all rows but keeps allocations.
func (self *archetype) reset() {
	self.entities = self.entities[:0]
	for i := range self.cols {
		self.cols[i].reset()
	}
}

// shrink drops spare capacity in every column.
func (self *archetype) shrink() {
	for i := range self.cols {
		self.cols[i].shrink()
	}
}

// copyOp describes one column-to-column copy used when a row migrates
// between two archetypes.
type copyOp struct {
	from int
	to   int
	size uintptr
}

// transition caches the destination archetype and the column copy plan for
// one add/remove mask applied to one source archetype.
type transition struct {
	target *archetype
	copies []copyOp
}

// buildCopies computes the copy plan for components shared by both
// archetypes.
func buildCopies(from, to *archetype) []copyOp {
	copies := make([]copyOp, 0, len(from.ids))
	for slot, id := range from.ids {
		dst := to.slot(id)
		if dst >= 0 {
			copies = append(copies, copyOp{from: slot, to: dst, size: from.cols[slot].size})
		}
	}
	return copies
}

// migrateRow moves the row out of the source archetype into the target: the
// shared components are copied per the plan, components new to the target are
// zero-initialized, dropped ones are left behind. It returns the row index in
// the target; the source row still has to be swap-removed by the caller.
func migrateRow(e Entity, row int, from, to *archetype, copies []copyOp) int {
	newRow := to.pushZeroRow(e)
	for _, op := range copies {
		src := from.cols[op.from].ptr(row)
		to.cols[op.to].setRow(newRow, src)
	}
	return newRow
}
