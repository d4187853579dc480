package strata

import (
	"runtime"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// Parallel iteration splits every matching archetype into contiguous row
// ranges and dispatches them to a bounded worker pool. The caller's borrow of
// the query's columns is held for the whole dispatch; the call returns only
// once every range has been processed. Per-row effects must be commutative —
// no two workers ever observe the same row.

// rangeCursor builds a cursor pinned to rows [start, end) of one archetype.
func (self *Query) rangeCursor(a *archetype, start, end int) *Cursor {
	n := len(self.view.canonical)
	c := &Cursor{
		query:   self,
		bases:   make([]unsafe.Pointer, n),
		strides: make([]uintptr, n),
	}
	c.bind(a)
	c.row = start - 1
	c.limit = end
	return c
}

// ForEachPar runs fn once per matching row using up to workers goroutines.
// workers <= 0 selects GOMAXPROCS.
func (self *Query) ForEachPar(workers int, fn func(c *Cursor)) {
	if self.stale() {
		self.refresh()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, a := range self.matching {
		rows := a.len()
		if rows == 0 {
			continue
		}
		chunk := (rows + workers - 1) / workers
		for start := 0; start < rows; start += chunk {
			end := min(start+chunk, rows)
			arch, lo, hi := a, start, end
			g.Go(func() error {
				c := self.rangeCursor(arch, lo, hi)
				for c.Next() {
					fn(c)
				}
				return nil
			})
		}
	}
	// Workers never return errors; Wait is the join point.
	_ = g.Wait()
}

// ForEachPar1 is the typed parallel driver for a one-component query.
func ForEachPar1[A any](q *Query1[A], workers int, fn func(e Entity, a *A)) {
	q.q.ForEachPar(workers, func(c *Cursor) {
		fn(c.Entity(), (*A)(c.Ptr(0)))
	})
}

// ForEachPar2 is the typed parallel driver for a two-component query.
func ForEachPar2[A, B any](q *Query2[A, B], workers int, fn func(e Entity, a *A, b *B)) {
	q.q.ForEachPar(workers, func(c *Cursor) {
		fn(c.Entity(), (*A)(c.Ptr(0)), (*B)(c.Ptr(1)))
	})
}

// ForEachPar3 is the typed parallel driver for a three-component query.
func ForEachPar3[A, B, C any](q *Query3[A, B, C], workers int, fn func(e Entity, a *A, b *B, c *C)) {
	q.q.ForEachPar(workers, func(c *Cursor) {
		fn(c.Entity(), (*A)(c.Ptr(0)), (*B)(c.Ptr(1)), (*C)(c.Ptr(2)))
	})
}
