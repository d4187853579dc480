package strata

import (
	"bytes"
	"testing"
)

func benchWorld(n int) *World {
	w := NewWorld(newTestRegistry(), WithCapacity(n))
	ps := make([]Position, n)
	vs := make([]Velocity, n)
	for i := range ps {
		ps[i].X = float32(i)
		vs[i].VX = 1
	}
	Extend2(w, ps, vs)
	return w
}

func BenchmarkInsert(b *testing.B) {
	w := NewWorld(newTestRegistry(), WithCapacity(b.N))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Insert2(w, Position{}, Velocity{})
	}
}

func BenchmarkQueryIterate(b *testing.B) {
	w := benchWorld(100_000)
	q := NewQuery2[Position, Velocity](w)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Reset()
		for q.Next() {
			p, v := q.Get()
			p.X += v.VX
		}
	}
}

func BenchmarkQueryIterateParallel(b *testing.B) {
	w := benchWorld(100_000)
	q := NewQuery2[Position, Velocity](w)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ForEachPar2(q, 0, func(e Entity, p *Position, v *Velocity) {
			p.X += v.VX
		})
	}
}

func BenchmarkEntryShapeChange(b *testing.B) {
	w := benchWorld(1024)
	q := NewQuery1[Position](w)
	var ents []Entity
	for q.Next() {
		ents = append(ents, q.Entity())
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e := ents[i%len(ents)]
		en, _ := w.Entry(e)
		EntryAdd(en, Health{Current: i})
		EntryRemove[Health](en)
	}
}

func BenchmarkSerializeColumnMode(b *testing.B) {
	w := benchWorld(10_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		_ = w.Serialize(&buf, ColumnMode)
	}
}
