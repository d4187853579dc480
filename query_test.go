package strata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shapes {P}, {P,V}, {P,V,H}: a view of P filtered on Has(V) matches two.
func TestQueryFilterSelection(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	Insert1(w, Position{X: 1})
	Insert2(w, Position{X: 2}, Velocity{})
	Insert3(w, Position{X: 3}, Velocity{}, Health{})

	q := MustQuery(w, MustView(reg, Read[Position](reg)), Where(Has[Velocity](reg)))
	var got []float32
	q.ForEach(func(c *Cursor) {
		got = append(got, (*Position)(c.Ptr(0)).X)
	})
	assert.ElementsMatch(t, []float32{2, 3}, got)
	assert.Equal(t, 2, q.Count())
}

// A query yields exactly one tuple per entity whose archetype satisfies
// required-subset and the filter.
func TestQuerySoundness(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	Insert1(w, Position{})
	Insert1(w, Health{})
	Insert2(w, Position{}, Health{})
	Insert3(w, Position{}, Velocity{}, Health{})

	cases := []struct {
		name   string
		view   *View
		filter Filter
		want   int
	}{
		{"all with position", MustView(reg, Read[Position](reg)), None(), 3},
		{"position and not health", MustView(reg, Read[Position](reg)), Not(Has[Health](reg)), 1},
		{"health or velocity", MustView(reg), Or(Has[Health](reg), Has[Velocity](reg)), 3},
		{"position and health and not velocity", MustView(reg, Read[Position](reg), Read[Health](reg)), Not(Has[Velocity](reg)), 1},
		{"and of has", MustView(reg), And(Has[Position](reg), Has[Health](reg)), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := MustQuery(w, tc.view, Where(tc.filter))
			n := 0
			q.ForEach(func(c *Cursor) { n++ })
			assert.Equal(t, tc.want, n)
		})
	}
}

// A query with zero view columns over k matching entities terminates after
// exactly k iterations.
func TestEmptyViewTermination(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	for i := 0; i < 5; i++ {
		Insert2(w, Position{}, Velocity{})
	}
	Insert1(w, Health{})

	q := MustQuery(w, MustView(reg), Where(Has[Velocity](reg)))
	n := 0
	q.ForEach(func(c *Cursor) {
		n++
		require.Less(t, n, 100, "runaway iteration")
	})
	assert.Equal(t, 5, n)
}

func TestOptionalViews(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	Insert2(w, Position{X: 1}, Health{Current: 10})
	Insert1(w, Position{X: 2})

	v := MustView(reg, Read[Position](reg), ReadOpt[Health](reg))
	q := MustQuery(w, v)

	withHealth, without := 0, 0
	q.ForEach(func(c *Cursor) {
		require.NotNil(t, c.Ptr(0))
		if c.Has(1) {
			withHealth++
			assert.Equal(t, 10, (*Health)(c.Ptr(1)).Current)
		} else {
			without++
			assert.Nil(t, c.Ptr(1))
		}
	})
	assert.Equal(t, 1, withHealth)
	assert.Equal(t, 1, without)
}

// Yielded tuples come back in the user's element order even though columns
// are matched canonically.
func TestQueryUserOrderProjection(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	Insert3(w, Position{X: 1}, Velocity{VX: 2}, Health{Current: 3})

	// User order deliberately reversed from registry order.
	v := MustView(reg, Read[Health](reg), Read[Velocity](reg), Read[Position](reg))
	q := MustQuery(w, v)
	q.ForEach(func(c *Cursor) {
		assert.Equal(t, 3, (*Health)(c.Ptr(0)).Current)
		assert.Equal(t, float32(2), (*Velocity)(c.Ptr(1)).VX)
		assert.Equal(t, float32(1), (*Position)(c.Ptr(2)).X)
	})
}

func TestQueryCacheRefreshOnNewArchetype(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	Insert1(w, Position{X: 1})

	q := MustQuery(w, MustView(reg, Read[Position](reg)))
	assert.Equal(t, 1, q.Count())

	// A new archetype appears after the first refresh; the cache notices.
	Insert2(w, Position{X: 2}, Velocity{})
	assert.Equal(t, 2, q.Count())
}

func TestTypedQueries(t *testing.T) {
	w := newTestWorld()
	Insert2(w, Position{X: 1, Y: 2}, Velocity{VX: 3, VY: 4})
	Insert2(w, Position{X: 5, Y: 6}, Velocity{VX: 7, VY: 8})
	Insert1(w, Position{X: 9})

	q := NewQuery2[Position, Velocity](w)
	n := 0
	for q.Next() {
		p, v := q.Get()
		p.X += v.VX
		p.Y += v.VY
		n++
	}
	assert.Equal(t, 2, n)

	q1 := NewQuery1[Position](w)
	var xs []float32
	for q1.Next() {
		xs = append(xs, q1.Get().X)
	}
	assert.ElementsMatch(t, []float32{4, 12, 9}, xs)
}

func TestQueryResourceViews(t *testing.T) {
	type clock struct{ Tick int }
	w := NewWorld(newTestRegistry(), WithResource(&clock{Tick: 42}))
	reg := w.Registry()
	Insert1(w, Position{})

	q, err := NewQuery(w, MustView(reg, Read[Position](reg)), ResourceRead[clock](w))
	require.NoError(t, err)
	assert.Equal(t, 1, q.Count())

	type missing struct{}
	_, err = NewQuery(w, MustView(reg), ResourceRead[missing](w))
	assert.ErrorIs(t, err, ErrResourceMissing)
}

func TestQueryRejectsSelfConflictingBorrows(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()

	// The same component mutably in the view and in the entry view.
	_, err := NewQuery(w, MustView(reg, Write[Position](reg)),
		WithEntries(MustView(reg, Read[Position](reg))))
	assert.ErrorIs(t, err, ErrBorrowConflict)

	// Read-only overlap is allowed.
	_, err = NewQuery(w, MustView(reg, Read[Position](reg)),
		WithEntries(MustView(reg, Read[Position](reg))))
	assert.NoError(t, err)

	// A resource both read and written by one query.
	type clock struct{ Tick int }
	w2 := NewWorld(newTestRegistry(), WithResource(&clock{}))
	_, err = NewQuery(w2, MustView(w2.Registry()),
		ResourceRead[clock](w2), ResourceWrite[clock](w2))
	assert.ErrorIs(t, err, ErrBorrowConflict)
}

func TestParallelForEach(t *testing.T) {
	w := newTestWorld()
	n := 10_000
	ps := make([]Position, n)
	vs := make([]Velocity, n)
	for i := range ps {
		ps[i].X = float32(i)
		vs[i].VX = 1
	}
	Extend2(w, ps, vs)

	q := NewQuery2[Position, Velocity](w)
	ForEachPar2(q, 8, func(e Entity, p *Position, v *Velocity) {
		p.X += v.VX
	})

	check := NewQuery1[Position](w)
	sum := float64(0)
	for check.Next() {
		sum += float64(check.Get().X)
	}
	// Each of the n rows was incremented exactly once.
	want := float64(n)*float64(n-1)/2 + float64(n)
	assert.Equal(t, want, sum)
}
