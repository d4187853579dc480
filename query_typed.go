package strata

// Typed queries wrap the dynamic cursor with pointer accessors for fixed
// arities. All typed elements are mandatory and borrowed mutably; use the
// dynamic Query with an explicit View for immutable or optional elements.

// Query1 iterates entities that have component A.
type Query1[A any] struct {
	q *Query
	c *Cursor
}

// NewQuery1 creates a query for entities with component A.
func NewQuery1[A any](w *World, opts ...QueryOption) *Query1[A] {
	v := MustView(w.registry, Write[A](w.registry))
	q := MustQuery(w, v, opts...)
	return &Query1[A]{q: q, c: q.Iter()}
}

// Reset rewinds the iterator; call it to traverse the same query again.
func (self *Query1[A]) Reset() {
	self.c = self.q.Iter()
}

// Next advances to the next entity. Returns false if no more entities.
func (self *Query1[A]) Next() bool {
	return self.c.Next()
}

// Get returns a pointer to the component for the current entity.
func (self *Query1[A]) Get() *A {
	return (*A)(self.c.Ptr(0))
}

// Entity returns the current entity.
func (self *Query1[A]) Entity() Entity {
	return self.c.Entity()
}

// Query2 iterates entities that have components A and B.
type Query2[A, B any] struct {
	q *Query
	c *Cursor
}

// NewQuery2 creates a query for entities with components A and B.
func NewQuery2[A, B any](w *World, opts ...QueryOption) *Query2[A, B] {
	v := MustView(w.registry, Write[A](w.registry), Write[B](w.registry))
	q := MustQuery(w, v, opts...)
	return &Query2[A, B]{q: q, c: q.Iter()}
}

// Reset rewinds the iterator.
func (self *Query2[A, B]) Reset() {
	self.c = self.q.Iter()
}

// Next advances to the next entity. Returns false if no more entities.
func (self *Query2[A, B]) Next() bool {
	return self.c.Next()
}

// Get returns pointers to both components for the current entity.
func (self *Query2[A, B]) Get() (*A, *B) {
	return (*A)(self.c.Ptr(0)), (*B)(self.c.Ptr(1))
}

// Entity returns the current entity.
func (self *Query2[A, B]) Entity() Entity {
	return self.c.Entity()
}

// Query3 iterates entities that have components A, B and C.
type Query3[A, B, C any] struct {
	q *Query
	c *Cursor
}

// NewQuery3 creates a query for entities with components A, B and C.
func NewQuery3[A, B, C any](w *World, opts ...QueryOption) *Query3[A, B, C] {
	v := MustView(w.registry, Write[A](w.registry), Write[B](w.registry), Write[C](w.registry))
	q := MustQuery(w, v, opts...)
	return &Query3[A, B, C]{q: q, c: q.Iter()}
}

// Reset rewinds the iterator.
func (self *Query3[A, B, C]) Reset() {
	self.c = self.q.Iter()
}

// Next advances to the next entity. Returns false if no more entities.
func (self *Query3[A, B, C]) Next() bool {
	return self.c.Next()
}

// Get returns pointers to the three components for the current entity.
func (self *Query3[A, B, C]) Get() (*A, *B, *C) {
	return (*A)(self.c.Ptr(0)), (*B)(self.c.Ptr(1)), (*C)(self.c.Ptr(2))
}

// Entity returns the current entity.
func (self *Query3[A, B, C]) Entity() Entity {
	return self.c.Entity()
}

// Query4 iterates entities that have components A, B, C and D.
type Query4[A, B, C, D any] struct {
	q *Query
	c *Cursor
}

// NewQuery4 creates a query for entities with components A, B, C and D.
func NewQuery4[A, B, C, D any](w *World, opts ...QueryOption) *Query4[A, B, C, D] {
	v := MustView(w.registry,
		Write[A](w.registry), Write[B](w.registry),
		Write[C](w.registry), Write[D](w.registry))
	q := MustQuery(w, v, opts...)
	return &Query4[A, B, C, D]{q: q, c: q.Iter()}
}

// Reset rewinds the iterator.
func (self *Query4[A, B, C, D]) Reset() {
	self.c = self.q.Iter()
}

// Next advances to the next entity. Returns false if no more entities.
func (self *Query4[A, B, C, D]) Next() bool {
	return self.c.Next()
}

// Get returns pointers to the four components for the current entity.
func (self *Query4[A, B, C, D]) Get() (*A, *B, *C, *D) {
	return (*A)(self.c.Ptr(0)), (*B)(self.c.Ptr(1)), (*C)(self.c.Ptr(2)), (*D)(self.c.Ptr(3))
}

// Entity returns the current entity.
func (self *Query4[A, B, C, D]) Entity() Entity {
	return self.c.Entity()
}
