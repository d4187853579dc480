package strata

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moveSystem(reg *Registry) *System {
	return &System{
		Name: "move",
		View: MustView(reg, Write[Position](reg), Read[Velocity](reg)),
		Run: func(q *Query) {
			q.ForEach(func(c *Cursor) {
				p := (*Position)(c.Ptr(0))
				v := (*Velocity)(c.Ptr(1))
				p.X += v.VX
				p.Y += v.VY
			})
		},
	}
}

// Insert {Position{1,2}, Velocity{3,4}}, run a system adding velocity to
// position, expect Position{4,6}.
func TestRunSystem(t *testing.T) {
	w := newTestWorld()
	e := Insert2(w, Position{X: 1, Y: 2}, Velocity{VX: 3, VY: 4})

	require.NoError(t, w.RunSystem(moveSystem(w.Registry())))

	en, _ := w.Entry(e)
	assert.Equal(t, Position{X: 4, Y: 6}, *EntryGet[Position](en))
}

// Two writers of disjoint columns share a stage; a reader of both lands in a
// later stage.
func TestSchedulePlanning(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	noop := func(q *Query) {}

	s1 := &System{Name: "s1", View: MustView(reg, Write[Position](reg)), Run: noop}
	s2 := &System{Name: "s2", View: MustView(reg, Write[Velocity](reg)), Run: noop}
	s3 := &System{Name: "s3", View: MustView(reg, Read[Position](reg), Read[Velocity](reg)), Run: noop}

	sched, err := NewSchedule(w, s1, s2, s3)
	require.NoError(t, err)

	stages := sched.Stages()
	require.Len(t, stages, 2)
	assert.ElementsMatch(t, []string{"s1", "s2"}, stages[0])
	assert.Equal(t, []string{"s3"}, stages[1])
}

// Readers of a shared column coexist; a writer does not.
func TestScheduleReadersShareWritersDoNot(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	noop := func(q *Query) {}

	r1 := &System{Name: "r1", View: MustView(reg, Read[Position](reg)), Run: noop}
	r2 := &System{Name: "r2", View: MustView(reg, Read[Position](reg)), Run: noop}
	wr := &System{Name: "w", View: MustView(reg, Write[Position](reg)), Run: noop}

	sched, err := NewSchedule(w, r1, r2, wr)
	require.NoError(t, err)
	stages := sched.Stages()
	require.Len(t, stages, 2)
	assert.ElementsMatch(t, []string{"r1", "r2"}, stages[0])
}

// No stage may contain a conflicting pair.
func TestScheduleNoConflictInvariant(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	noop := func(q *Query) {}

	systems := []*System{
		{Name: "a", View: MustView(reg, Write[Position](reg)), Run: noop},
		{Name: "b", View: MustView(reg, Read[Position](reg), Write[Velocity](reg)), Run: noop},
		{Name: "c", View: MustView(reg, Write[Health](reg)), Run: noop},
		{Name: "d", View: MustView(reg, Read[Velocity](reg)), Run: noop},
		{Name: "e", View: MustView(reg, Write[Position](reg), Write[Health](reg)), Run: noop},
	}
	sched, err := NewSchedule(w, systems...)
	require.NoError(t, err)

	for _, stage := range sched.stages {
		for i := 0; i < len(stage); i++ {
			for j := i + 1; j < len(stage); j++ {
				assert.False(t, stage[i].conflicts(stage[j]),
					"stage holds conflicting systems %s and %s",
					stage[i].sys.Name, stage[j].sys.Name)
			}
		}
	}
}

// Entry views conflict with mutable borrows of the same component.
func TestScheduleEntryViewConflicts(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	noop := func(q *Query) {}

	writer := &System{Name: "writer", View: MustView(reg, Write[Health](reg)), Run: noop}
	entries := &System{
		Name: "entries",
		View: MustView(reg, Read[Position](reg)),
		Options: []QueryOption{
			WithEntries(MustView(reg, Write[Health](reg))),
		},
		Run: noop,
	}
	reader := &System{Name: "reader", View: MustView(reg, Read[Health](reg)), Run: noop}

	sched, err := NewSchedule(w, writer, entries, reader)
	require.NoError(t, err)
	stages := sched.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, []string{"writer"}, stages[0])
	assert.Equal(t, []string{"entries"}, stages[1])
	assert.Equal(t, []string{"reader"}, stages[2])
}

// Borrow-chain order survives dynamic dispatch: a later writer of the same
// column never starts before an earlier one finishes.
func TestScheduleRunOrdering(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	Insert2(w, Position{}, Velocity{})

	var mu sync.Mutex
	var events []string
	log := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}
	mk := func(name string, v *View) *System {
		return &System{Name: name, View: v, Run: func(q *Query) {
			log("start:" + name)
			log("end:" + name)
		}}
	}
	s1 := mk("s1", MustView(reg, Write[Position](reg)))
	s2 := mk("s2", MustView(reg, Write[Position](reg)))
	s3 := mk("s3", MustView(reg, Write[Velocity](reg)))

	sched, err := NewSchedule(w, s1, s2, s3)
	require.NoError(t, err)
	require.NoError(t, sched.Run())

	idx := func(s string) int {
		for i, e := range events {
			if e == s {
				return i
			}
		}
		t.Fatalf("missing event %s", s)
		return -1
	}
	assert.Less(t, idx("end:s1"), idx("start:s2"))
}

func TestScheduleRejectsNonSyncInParallelSystem(t *testing.T) {
	reg := NewRegistry()
	RegisterComponent[Position](reg, AsNonSync())
	RegisterComponent[Velocity](reg)
	w := NewWorld(reg)

	par := &System{
		Name: "par",
		View: MustView(reg, Write[Position](reg)),
		RunPar: func(q *Query) {
			q.ForEachPar(0, func(c *Cursor) {})
		},
	}
	_, err := NewSchedule(w, par)
	assert.ErrorIs(t, err, ErrNonSync)
	assert.ErrorIs(t, w.RunParSystem(par), ErrNonSync)
}

// A non-Sync borrow confines its system to a single-system stage.
func TestScheduleNonSyncRunsAlone(t *testing.T) {
	reg := NewRegistry()
	RegisterComponent[Position](reg, AsNonSync())
	RegisterComponent[Velocity](reg)
	w := NewWorld(reg)
	noop := func(q *Query) {}

	a := &System{Name: "a", View: MustView(reg, Read[Position](reg)), Run: noop}
	b := &System{Name: "b", View: MustView(reg, Write[Velocity](reg)), Run: noop}

	sched, err := NewSchedule(w, a, b)
	require.NoError(t, err)
	for _, stage := range sched.Stages() {
		if len(stage) > 1 {
			t.Fatalf("non-Sync system shares stage: %v", stage)
		}
	}
}

// For a commutative system, sequential and parallel runs converge to the
// same world state.
func TestParallelEquivalence(t *testing.T) {
	build := func() *World {
		w := newTestWorld()
		n := 5000
		ps := make([]Position, n)
		vs := make([]Velocity, n)
		for i := range ps {
			ps[i] = Position{X: float32(i % 97), Y: float32(i % 13)}
			vs[i] = Velocity{VX: 1, VY: 2}
		}
		Extend2(w, ps, vs)
		return w
	}
	collect := func(w *World) []Position {
		q := NewQuery1[Position](w)
		var out []Position
		for q.Next() {
			out = append(out, *q.Get())
		}
		return out
	}

	serial := build()
	require.NoError(t, serial.RunSystem(moveSystem(serial.Registry())))

	parallel := build()
	parSys := &System{
		Name: "move-par",
		View: MustView(parallel.Registry(),
			Write[Position](parallel.Registry()),
			Read[Velocity](parallel.Registry())),
		RunPar: func(q *Query) {
			q.ForEachPar(4, func(c *Cursor) {
				p := (*Position)(c.Ptr(0))
				v := (*Velocity)(c.Ptr(1))
				p.X += v.VX
				p.Y += v.VY
			})
		},
	}
	require.NoError(t, parallel.RunParSystem(parSys))

	assert.Equal(t, collect(serial), collect(parallel))
}

func TestRunScheduleEndToEnd(t *testing.T) {
	w := newTestWorld()
	reg := w.Registry()
	e := Insert2(w, Position{X: 1, Y: 1}, Velocity{VX: 1, VY: 1})

	damp := &System{
		Name: "damp",
		View: MustView(reg, Write[Velocity](reg)),
		Run: func(q *Query) {
			q.ForEach(func(c *Cursor) {
				(*Velocity)(c.Ptr(0)).VX *= 2
			})
		},
	}
	require.NoError(t, w.RunSchedule(moveSystem(reg), damp))

	en, _ := w.Entry(e)
	assert.Equal(t, Position{X: 2, Y: 2}, *EntryGet[Position](en))
	assert.Equal(t, float32(2), EntryGet[Velocity](en).VX)
}
