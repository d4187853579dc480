// Profiling:
// go build ./profile/query
// go tool pprof -http=":8000" -nodefraction=0.001 ./query cpu.prof

package main

import (
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/ameliadane/strata"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

type comp3 struct {
	V int64
	W int64
}

func main() {
	// CPU Profiling
	f, _ := os.Create("cpu.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()

	count := 50
	iters := 10000
	entities := 100000
	run(count, iters, entities)

	// Memory Profiling
	memFile, _ := os.Create("mem.prof")
	defer memFile.Close()
	runtime.GC() // Trigger garbage collection
	_ = pprof.WriteHeapProfile(memFile)
}

func run(rounds, iters, numEntities int) {
	for i := 0; i < rounds; i++ {
		reg := strata.NewRegistry()
		strata.RegisterComponent[comp1](reg)
		strata.RegisterComponent[comp2](reg)
		strata.RegisterComponent[comp3](reg)
		w := strata.NewWorld(reg, strata.WithCapacity(numEntities))

		c1 := make([]comp1, numEntities)
		c2 := make([]comp2, numEntities)
		c3 := make([]comp3, numEntities)
		strata.Extend3(w, c1, c2, c3)

		query := strata.NewQuery3[comp1, comp2, comp3](w)
		for j := 0; j < iters; j++ {
			query.Reset()
			for query.Next() {
				a, b, _ := query.Get()
				a.V += b.V
				a.W += b.W
			}
		}
	}
}
