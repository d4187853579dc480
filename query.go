package strata

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// Query selects entities by view shape and filter and iterates tuples of
// column references across all matching archetypes. The set of matching
// archetypes is cached and refreshed only when the world's archetype set
// changes.
type Query struct {
	world  *World
	view   *View
	filter Filter

	entryView *View // components reachable only through Entries during iteration
	resReads  []int
	resWrites []int

	matching      []*archetype
	cachedVersion uint32
	fresh         bool
}

// QueryOption configures a query at build time.
type QueryOption func(q *Query) error

// Where restricts the query to archetypes matching the filter.
func Where(f Filter) QueryOption {
	return func(q *Query) error {
		q.filter = f
		return nil
	}
}

// WithEntries declares components that iteration will touch only through the
// per-entity Entries accessor, never through the yielded tuples. They still
// count as borrows for scheduling.
func WithEntries(v *View) QueryOption {
	return func(q *Query) error {
		q.entryView = v
		return nil
	}
}

// ResourceRead declares a shared borrow of resource T for the duration of
// the query. The resource must be present in the world.
func ResourceRead[T any](w *World) QueryOption {
	return func(q *Query) error {
		id, ok := w.resources.idOf(reflect.TypeOf((*T)(nil)))
		if !ok {
			return errors.Wrapf(ErrResourceMissing, "%T", (*T)(nil))
		}
		q.resReads = append(q.resReads, id)
		return nil
	}
}

// ResourceWrite declares a unique borrow of resource T for the duration of
// the query.
func ResourceWrite[T any](w *World) QueryOption {
	return func(q *Query) error {
		id, ok := w.resources.idOf(reflect.TypeOf((*T)(nil)))
		if !ok {
			return errors.Wrapf(ErrResourceMissing, "%T", (*T)(nil))
		}
		q.resWrites = append(q.resWrites, id)
		return nil
	}
}

// NewQuery builds a query over the world from a canonicalized view. Shape
// errors (unknown resources) surface here, before any iteration.
func NewQuery(w *World, v *View, opts ...QueryOption) (*Query, error) {
	q := &Query{
		world:  w,
		view:   v,
		filter: None(),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	if err := q.checkSelfBorrows(); err != nil {
		return nil, err
	}
	return q, nil
}

// checkSelfBorrows rejects descriptors whose own borrow sets collide: a
// component held both by the view and the entry view with either side
// mutable, or a resource declared for reading and writing at once.
func (self *Query) checkSelfBorrows() error {
	if self.entryView != nil {
		vAll := orMask(self.view.required, self.view.optional)
		eAll := orMask(self.entryView.required, self.entryView.optional)
		overlap := andMask(vAll, eAll)
		mut := orMask(self.view.writes, self.entryView.writes)
		if intersects(overlap, mut) {
			return errors.Wrap(ErrBorrowConflict, "component in both view and entry view")
		}
	}
	for _, wID := range self.resWrites {
		for _, rID := range self.resReads {
			if wID == rID {
				return errors.Wrap(ErrBorrowConflict, "resource read and written by one query")
			}
		}
	}
	return nil
}

// MustQuery is NewQuery, panicking on build errors.
func MustQuery(w *World, v *View, opts ...QueryOption) *Query {
	q, err := NewQuery(w, v, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

// stale reports whether the archetype set changed since the last refresh.
func (self *Query) stale() bool {
	return !self.fresh || self.cachedVersion != self.world.archetypeVersion
}

// refresh rebuilds the matching archetype list. Selection is pure bitmask
// arithmetic: required bits must be a subset of the archetype mask and the
// filter must accept the mask.
func (self *Query) refresh() {
	self.matching = self.matching[:0]
	for _, a := range self.world.archetypes {
		if includesAll(a.mask, self.view.required) && self.filter.matches(a.mask) {
			self.matching = append(self.matching, a)
		}
	}
	self.cachedVersion = self.world.archetypeVersion
	self.fresh = true
}

// Count returns the number of entities the query currently matches.
func (self *Query) Count() int {
	if self.stale() {
		self.refresh()
	}
	n := 0
	for _, a := range self.matching {
		n += a.len()
	}
	return n
}

// Entry returns a per-entity cursor scoped to the query's entry view. It
// reports false if the entity is dead or no entry view was declared.
func (self *Query) Entry(e Entity) (*Entry, bool) {
	if self.entryView == nil || !self.world.Contains(e) {
		return nil, false
	}
	allowed := orMask(self.entryView.required, self.entryView.optional)
	return &Entry{
		world:       self.world,
		entity:      e,
		scope:       allowed,
		scopeWrites: self.entryView.writes,
		scoped:      true,
	}, true
}

// Cursor iterates a query's matching rows in lockstep across the view's
// columns. Column base pointers are held in canonical order; Ptr projects
// back to the user's element order through the view's index path.
type Cursor struct {
	query   *Query
	archIdx int
	arch    *archetype
	rows    int
	row     int
	limit   int // when > 0, iteration is pinned to [row, limit) of one archetype
	bases   []unsafe.Pointer
	strides []uintptr
	entity  Entity
}

// Iter begins iteration, refreshing the archetype cache if stale.
func (self *Query) Iter() *Cursor {
	if self.stale() {
		self.refresh()
	}
	n := len(self.view.canonical)
	return &Cursor{
		query:   self,
		bases:   make([]unsafe.Pointer, n),
		strides: make([]uintptr, n),
		row:     -1,
	}
}

// bind latches the column bases of the archetype. Optional components that
// are absent get a nil base; a query with zero view columns still iterates
// once per entity, driven by the entity vector's length.
func (self *Cursor) bind(a *archetype) {
	self.arch = a
	self.rows = a.len()
	for i, el := range self.query.view.canonical {
		slot := a.slot(el.id)
		if slot < 0 {
			self.bases[i] = nil
			self.strides[i] = 0
			continue
		}
		col := &a.cols[slot]
		self.bases[i] = col.base()
		self.strides[i] = col.size
	}
}

// Next advances to the next matching row, crossing archetype boundaries as
// needed. It returns false when iteration is complete.
func (self *Cursor) Next() bool {
	self.row++
	if self.limit > 0 {
		if self.row >= self.limit {
			return false
		}
		self.entity = self.arch.entities[self.row]
		return true
	}
	for self.arch == nil || self.row >= self.rows {
		if self.archIdx >= len(self.query.matching) {
			return false
		}
		self.bind(self.query.matching[self.archIdx])
		self.archIdx++
		self.row = 0
	}
	self.entity = self.arch.entities[self.row]
	return true
}

// Entity returns the entity at the current row.
func (self *Cursor) Entity() Entity {
	return self.entity
}

// Ptr returns a pointer to the component cell for the view element at the
// given user-order position, or nil when an optional component is absent.
func (self *Cursor) Ptr(userIdx int) unsafe.Pointer {
	ci := self.query.view.path[userIdx]
	base := self.bases[ci]
	if base == nil {
		return nil
	}
	return unsafe.Pointer(uintptr(base) + uintptr(self.row)*self.strides[ci])
}

// Has reports whether the view element at the user-order position is present
// in the current archetype.
func (self *Cursor) Has(userIdx int) bool {
	return self.bases[self.query.view.path[userIdx]] != nil
}

// ForEach runs fn once per matching row.
func (self *Query) ForEach(fn func(c *Cursor)) {
	c := self.Iter()
	for c.Next() {
		fn(c)
	}
}
