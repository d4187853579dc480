package strata

import (
	"go.uber.org/zap"
)

const defaultInitialCapacity = 1024

// World is the top-level store. It owns the registry, the archetypes, the
// entity table with its free-list of recycled IDs, and the resource
// container. All entity and component state lives here; there is no global
// state.
type World struct {
	registry  *Registry
	resources *Resources
	logger    *zap.Logger

	archetypes     []*archetype
	maskToArch     map[maskType]int
	emptyArchIndex int

	metas   []entityMeta
	freeIDs []uint32
	nextVer uint32

	addTransitions    map[int]map[maskType]transition
	removeTransitions map[int]map[maskType]transition

	archetypeVersion uint32 // incremented when the archetype set changes
	mutationVersion  uint32 // incremented on entity mutations
	size             int    // live entity count
}

// WorldOption configures a new World.
type WorldOption func(w *World)

// WithCapacity pre-allocates the entity table for the given number of
// entities.
func WithCapacity(capacity int) WorldOption {
	return func(w *World) {
		w.growEntityTable(capacity)
	}
}

// WithLogger attaches a structured logger; the world emits debug-level
// events on archetype creation, schedule planning and serialization.
func WithLogger(logger *zap.Logger) WorldOption {
	return func(w *World) {
		w.logger = logger
	}
}

// WithResource adds a resource to the world at construction time.
func WithResource(res any, opts ...ResourceOption) WorldOption {
	return func(w *World) {
		w.resources.Add(res, opts...)
	}
}

// NewWorld creates a World over the given registry. The registry is sealed:
// no further component types may be registered once a world uses it.
func NewWorld(reg *Registry, opts ...WorldOption) *World {
	reg.sealed = true
	w := &World{
		registry:          reg,
		resources:         &Resources{},
		logger:            zap.NewNop(),
		maskToArch:        make(map[maskType]int),
		addTransitions:    make(map[int]map[maskType]transition),
		removeTransitions: make(map[int]map[maskType]transition),
		nextVer:           1,
	}
	// Pre-create the empty archetype so entities without components have a home.
	w.emptyArchIndex = w.getOrCreateArchetype(maskType{}).index
	for _, opt := range opts {
		opt(w)
	}
	if len(w.metas) == 0 {
		w.growEntityTable(defaultInitialCapacity)
	}
	return w
}

// Registry returns the component registry the world was built over.
func (self *World) Registry() *Registry {
	return self.registry
}

// Resources returns the world's resource container.
func (self *World) Resources() *Resources {
	return self.resources
}

// Len returns the number of live entities.
func (self *World) Len() int {
	return self.size
}

// IsEmpty reports whether the world holds no live entities.
func (self *World) IsEmpty() bool {
	return self.size == 0
}

// Contains reports whether the entity is currently alive. An entity is alive
// if its ID is within bounds and its version matches the entity table's
// current version for that slot.
func (self *World) Contains(e Entity) bool {
	if int(e.ID) >= len(self.metas) {
		return false
	}
	meta := self.metas[e.ID]
	return meta.version != 0 && meta.version == e.Version
}

// growEntityTable extends the entity table and free-list to at least capacity
// slots.
func (self *World) growEntityTable(capacity int) {
	oldCap := len(self.metas)
	if capacity <= oldCap {
		return
	}
	delta := capacity - oldCap
	newMetas := make([]entityMeta, delta)
	for i := range newMetas {
		newMetas[i].archetypeIndex = -1
		newMetas[i].index = -1
	}
	self.metas = append(self.metas, newMetas...)
	for i := delta - 1; i >= 0; i-- {
		self.freeIDs = append(self.freeIDs, uint32(oldCap+i))
	}
}

// expand doubles the entity table when the free-list runs dry.
func (self *World) expand(additional int) {
	newCap := max(2*len(self.metas), len(self.metas)+additional)
	if newCap == 0 {
		newCap = 1
	}
	self.growEntityTable(newCap)
}

// getOrCreateArchetype returns the archetype for the given mask, creating it
// lazily on first use. No two archetypes with equal masks ever coexist.
func (self *World) getOrCreateArchetype(mask maskType) *archetype {
	if idx, ok := self.maskToArch[mask]; ok {
		return self.archetypes[idx]
	}
	a := newArchetype(self.registry, mask, len(self.archetypes))
	self.archetypes = append(self.archetypes, a)
	self.maskToArch[mask] = a.index
	self.archetypeVersion++
	self.logger.Debug("archetype created",
		zap.Int("index", a.index),
		zap.Int("components", len(a.ids)))
	return a
}

// createEntity places a fresh entity into the given archetype with
// zero-initialized components and returns it.
func (self *World) createEntity(a *archetype) Entity {
	if len(self.freeIDs) == 0 {
		self.expand(1)
	}
	last := len(self.freeIDs) - 1
	id := self.freeIDs[last]
	self.freeIDs = self.freeIDs[:last]
	meta := &self.metas[id]
	meta.version = self.nextVer
	ent := Entity{ID: id, Version: meta.version}
	meta.archetypeIndex = a.index
	meta.index = a.pushZeroRow(ent)
	self.nextVer++
	self.size++
	self.mutationVersion++
	return ent
}

// detachRow swap-removes the entity's row from its archetype and patches the
// entity table entry of whichever entity got moved into the vacated slot.
func (self *World) detachRow(a *archetype, row int) {
	moved, swapped := a.swapRemoveRow(row)
	if swapped {
		self.metas[moved.ID].index = row
	}
}

// Remove destroys the entity, recycling its ID. Removing a dead or stale
// entity is a no-op.
func (self *World) Remove(e Entity) {
	if !self.Contains(e) {
		return
	}
	meta := &self.metas[e.ID]
	a := self.archetypes[meta.archetypeIndex]
	self.detachRow(a, meta.index)
	meta.archetypeIndex = -1
	meta.index = -1
	meta.version = 0
	self.freeIDs = append(self.freeIDs, e.ID)
	self.size--
	self.mutationVersion++
}

// Clear removes all entities from the world, recycling their IDs and
// resetting archetypes. Allocations are retained, so refilling the world
// does not re-create archetypes or reallocate columns.
func (self *World) Clear() {
	for i := range self.metas {
		self.metas[i].archetypeIndex = -1
		self.metas[i].index = -1
		self.metas[i].version = 0
	}
	self.freeIDs = self.freeIDs[:0]
	for i := len(self.metas) - 1; i >= 0; i-- {
		self.freeIDs = append(self.freeIDs, uint32(i))
	}
	for _, a := range self.archetypes {
		a.reset()
	}
	self.size = 0
	self.mutationVersion++
}

// Reserve pre-allocates capacity for additional entities of the exact shape
// named by the component IDs, creating the archetype if needed.
func (self *World) Reserve(additional int, ids ...ComponentID) {
	for _, id := range ids {
		if !self.registry.valid(id) {
			panic("strata: reserve with unregistered component")
		}
	}
	a := self.getOrCreateArchetype(makeMask(ids))
	a.reserve(additional)
}

// ShrinkToFit drops spare column capacity and removes archetypes that have
// held no entities since the previous shrink. The empty-shape archetype is
// always retained.
func (self *World) ShrinkToFit() {
	kept := self.archetypes[:0]
	removed := 0
	for _, a := range self.archetypes {
		if a.len() == 0 && a.emptyMarked && a.index != self.emptyArchIndex {
			delete(self.maskToArch, a.mask)
			removed++
			continue
		}
		a.emptyMarked = a.len() == 0
		a.shrink()
		kept = append(kept, a)
	}
	if removed == 0 {
		return
	}
	self.archetypes = kept
	// Reindex survivors and patch every structure that held archetype indices.
	for i, a := range self.archetypes {
		if a.index == self.emptyArchIndex {
			self.emptyArchIndex = i
		}
		a.index = i
		self.maskToArch[a.mask] = i
		for row, e := range a.entities {
			self.metas[e.ID].archetypeIndex = i
			self.metas[e.ID].index = row
		}
	}
	// Transition caches hold stale indices; rebuild lazily.
	self.addTransitions = make(map[int]map[maskType]transition)
	self.removeTransitions = make(map[int]map[maskType]transition)
	self.archetypeVersion++
	self.logger.Debug("shrink removed archetypes", zap.Int("count", removed))
}

// lookupTransition returns the cached migration transition for applying delta
// to the source archetype, computing and caching it on first use. add selects
// between the add and remove caches.
func (self *World) lookupTransition(from *archetype, delta maskType, add bool) transition {
	cache := self.removeTransitions
	if add {
		cache = self.addTransitions
	}
	byDelta, ok := cache[from.index]
	if !ok {
		byDelta = make(map[maskType]transition)
		cache[from.index] = byDelta
	}
	if tr, ok := byDelta[delta]; ok {
		return tr
	}
	var newMask maskType
	if add {
		newMask = orMask(from.mask, delta)
	} else {
		newMask = andNotMask(from.mask, delta)
	}
	target := self.getOrCreateArchetype(newMask)
	tr := transition{target: target, copies: buildCopies(from, target)}
	byDelta[delta] = tr
	return tr
}

// moveEntity migrates the entity's row from its current archetype to the
// transition's target and updates the entity table for both the moved entity
// and the row swapped into its old slot.
func (self *World) moveEntity(e Entity, tr transition) {
	meta := &self.metas[e.ID]
	from := self.archetypes[meta.archetypeIndex]
	oldRow := meta.index
	newRow := migrateRow(e, oldRow, from, tr.target, tr.copies)
	meta.archetypeIndex = tr.target.index
	meta.index = newRow
	self.detachRow(from, oldRow)
	self.mutationVersion++
}
