package compute

import (
	"runtime"
	"sync"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{workers: runtime.NumCPU()}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

// Sweep splits targets across workers. Each target's inner sum stays
// serial in ascending source order, so the split never changes results.
func (c *CPUBackend) Sweep(eng *force.Engine, ps []body.Particle, targets []int, out []force.Derivs) {
	n := len(targets)
	if n < 16 || c.workers < 2 {
		for k, i := range targets {
			out[k] = eng.At(i, ps)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (n + c.workers - 1) / c.workers
	for w := 0; w < c.workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for k := start; k < end; k++ {
				out[k] = eng.At(targets[k], ps)
			}
		}(start, end)
	}
	wg.Wait()
}
