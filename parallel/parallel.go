// Package parallel runs index-range work across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Config says how an index range is split. Workers below 2 means the range
// runs on the calling goroutine; Grain is the smallest range worth a goroutine.
type Config struct {
	Workers int
	Grain   int
}

// DefaultConfig uses one worker per CPU and leaves ranges shorter than 64
// on the caller.
func DefaultConfig() Config {
	return Config{Workers: runtime.NumCPU(), Grain: 64}
}

// Sequential never spawns goroutines.
func Sequential() Config {
	return Config{Workers: 1, Grain: 1}
}

// Each gives every one of n coarse work items its own goroutine.
func Each(n int) Config {
	return Config{Workers: n, Grain: 1}
}

// Parallel reports whether a range of n indices would be split.
func (c Config) Parallel(n int) bool {
	return c.Workers > 1 && n > 1 && n >= c.Grain
}

// chunk is the number of contiguous indices handed to one goroutine.
func (c Config) chunk(n int) int {
	return max((n+c.Workers-1)/c.Workers, c.Grain, 1)
}

// For calls f(i) for every i in [0, n) and returns once all calls are done.
// Each goroutine owns a disjoint contiguous range.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Parallel(n) {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	size := cfg.chunk(n)
	chunks := (n + size - 1) / size

	var wg sync.WaitGroup
	wg.Add(chunks)
	for c := 0; c < chunks; c++ {
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				f(i)
			}
		}(c*size, min((c+1)*size, n))
	}
	wg.Wait()
}
