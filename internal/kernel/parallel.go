// Package kernel assembles physical quantities (vorticity, divergence,
// baroclinic transfer) from per-point derivatives over a full 4D grid.
package kernel

import (
	"runtime"
	"sync"
)

// ForEachPoint calls fn for every flat index in [0, size), fanned out over
// runtime.GOMAXPROCS(0) goroutines. Each goroutine strides through the
// range and owns the scratch value newScratch returns for it, so fn must
// only write state reachable from its own index and scratch.
func ForEachPoint[S any](size int, newScratch func() S, fn func(flat int, scratch S)) {
	nprocs := runtime.GOMAXPROCS(0)
	if nprocs > size {
		nprocs = size
	}
	if nprocs < 1 {
		return
	}

	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			scratch := newScratch()
			for ii := pp; ii < size; ii += nprocs {
				fn(ii, scratch)
			}
		}(pp)
	}
	wg.Wait()
}

// noScratch is the scratch constructor for kernels that need none.
func noScratch() struct{} { return struct{}{} }
