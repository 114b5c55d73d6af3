//go:build cuda

package compute

/*
#cgo CFLAGS: -I/opt/cuda/include
#cgo LDFLAGS: -L/opt/cuda/lib64 -L${SRCDIR} -lcudart -lhermite -lstdc++
#include <stdlib.h>

extern int cuda_device_count();
extern const char* cuda_device_name_get();
extern void hermite_sweep_gpu(
	const double* pos, const double* vel, const double* acc, const double* jrk,
	const double* mass, int n,
	const int* targets, int nt,
	double eps2, int order,
	double* out, double* dom);
*/
import "C"
import (
	"unsafe"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

func vec3(b []float64) r3.Vec { return r3.Vec{X: b[0], Y: b[1], Z: b[2]} }

type CUDABackend struct {
	available  bool
	deviceName string
	cpu        *CPUBackend
}

func NewCUDABackend() *CUDABackend {
	count := int(C.cuda_device_count())
	name := ""
	if count > 0 {
		name = C.GoString(C.cuda_device_name_get())
	}
	return &CUDABackend{
		available:  count > 0,
		deviceName: name,
		cpu:        NewCPUBackend(),
	}
}

func (c *CUDABackend) Name() string {
	if c.available {
		return "cuda (" + c.deviceName + ")"
	}
	return "cuda (not available)"
}

func (c *CUDABackend) Available() bool { return c.available }
func (c *CUDABackend) Cleanup()        {}

// Sweep flattens the predicted set, launches the device kernel and blocks
// until device synchronization before unpacking. The kernel applies the
// same softened chain and derivative order as the CPU path.
func (c *CUDABackend) Sweep(eng *force.Engine, ps []body.Particle, targets []int, out []force.Derivs) {
	if !c.available || len(targets) == 0 {
		c.cpu.Sweep(eng, ps, targets, out)
		return
	}

	n := len(ps)
	pos := make([]float64, 3*n)
	vel := make([]float64, 3*n)
	acc := make([]float64, 3*n)
	jrk := make([]float64, 3*n)
	mass := make([]float64, n)
	for i := range ps {
		p := &ps[i]
		pos[3*i], pos[3*i+1], pos[3*i+2] = p.Pos.X, p.Pos.Y, p.Pos.Z
		vel[3*i], vel[3*i+1], vel[3*i+2] = p.Vel.X, p.Vel.Y, p.Vel.Z
		acc[3*i], acc[3*i+1], acc[3*i+2] = p.Acc.X, p.Acc.Y, p.Acc.Z
		jrk[3*i], jrk[3*i+1], jrk[3*i+2] = p.Jerk.X, p.Jerk.Y, p.Jerk.Z
		mass[i] = p.Mass
	}

	nt := len(targets)
	tgt := make([]int32, nt)
	for k, i := range targets {
		tgt[k] = int32(i)
	}
	// 4 tiers x 3 components per target
	res := make([]float64, 12*nt)
	dom := make([]float64, nt)

	C.hermite_sweep_gpu(
		(*C.double)(unsafe.Pointer(&pos[0])),
		(*C.double)(unsafe.Pointer(&vel[0])),
		(*C.double)(unsafe.Pointer(&acc[0])),
		(*C.double)(unsafe.Pointer(&jrk[0])),
		(*C.double)(unsafe.Pointer(&mass[0])),
		C.int(n),
		(*C.int)(unsafe.Pointer(&tgt[0])),
		C.int(nt),
		C.double(eng.Eps2),
		C.int(eng.Order),
		(*C.double)(unsafe.Pointer(&res[0])),
		(*C.double)(unsafe.Pointer(&dom[0])),
	)

	for k := 0; k < nt; k++ {
		b := res[12*k:]
		out[k] = force.Derivs{
			Acc:      vec3(b[0:3]),
			Jerk:     vec3(b[3:6]),
			Snap:     vec3(b[6:9]),
			Crackle:  vec3(b[9:12]),
			DomRatio: dom[k],
		}
	}
}
