package compute

import (
	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

// Backend runs one force sweep: derivatives of every target index against
// the full predicted particle set. Sweep must have completed device work
// before it returns, so the caller can enter the cross-rank exchange.
type Backend interface {
	Name() string
	Available() bool
	Sweep(eng *force.Engine, ps []body.Particle, targets []int, out []force.Derivs)
	Cleanup()
}

// Select returns the CUDA backend when the build and the machine support
// it, otherwise the CPU backend.
func Select(gpu bool) Backend {
	if gpu {
		cuda := NewCUDABackend()
		if cuda.Available() {
			return cuda
		}
	}
	return NewCPUBackend()
}
