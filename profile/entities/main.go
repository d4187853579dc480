// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/ameliadane/strata"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 10000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for i := 0; i < rounds; i++ {
		reg := strata.NewRegistry()
		strata.RegisterComponent[comp1](reg)
		strata.RegisterComponent[comp2](reg)
		w := strata.NewWorld(reg, strata.WithCapacity(numEntities))

		query := strata.NewQuery2[comp1, comp2](w)
		for j := 0; j < iters; j++ {
			c1 := make([]comp1, numEntities)
			c2 := make([]comp2, numEntities)
			strata.Extend2(w, c1, c2)
			entities := []strata.Entity{}
			query.Reset()
			for query.Next() {
				entities = append(entities, query.Entity())
				a, b := query.Get()
				a.V += b.V
				a.W += b.W
			}
			for _, e := range entities {
				w.Remove(e)
			}
		}
	}
}
