//go:build !cuda

package compute

import (
	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

type CUDABackend struct {
	cpu *CPUBackend
}

func NewCUDABackend() *CUDABackend {
	return &CUDABackend{cpu: NewCPUBackend()}
}

func (c *CUDABackend) Name() string    { return "cuda (not available)" }
func (c *CUDABackend) Available() bool { return false }
func (c *CUDABackend) Cleanup()        {}

func (c *CUDABackend) Sweep(eng *force.Engine, ps []body.Particle, targets []int, out []force.Derivs) {
	c.cpu.Sweep(eng, ps, targets, out)
}
