package body

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Particle is one point mass together with the derivative history its
// integrator order carries. Tiers above the active order stay zero.
type Particle struct {
	ID   int
	Mass float64
	Pos  r3.Vec
	Vel  r3.Vec

	Acc     r3.Vec
	Jerk    r3.Vec
	Snap    r3.Vec // orders 6 and 8
	Crackle r3.Vec // order 8 only

	Time float64 // time this state is valid at
	Step float64 // current block step
	Due  float64 // Time + Step
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

func (p *Particle) IsValid() bool {
	return p.Mass > 0 && finite(p.Pos) && finite(p.Vel)
}

// Speed2 returns the squared speed.
func (p *Particle) Speed2() float64 { return r3.Norm2(p.Vel) }
