// Package diag computes and records the conserved quantities that make a
// long integration auditable.
package diag

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
)

// Report is one diagnostic sample of the full system.
type Report struct {
	Time      float64
	Kinetic   float64
	Potential float64
	Momentum  r3.Vec
	AngMom    r3.Vec
}

func (r Report) Energy() float64 { return r.Kinetic + r.Potential }

// Drift returns the relative energy error against a reference energy.
func (r Report) Drift(initial float64) float64 {
	if initial == 0 {
		return 0
	}
	return math.Abs(r.Energy()-initial) / math.Abs(initial)
}

// Measure computes the full conservation report with the run's softening.
func Measure(sys *body.System, eps float64) Report {
	return Report{
		Time:      sys.Time,
		Kinetic:   Kinetic(sys.Bodies),
		Potential: Potential(sys.Bodies, eps),
		Momentum:  Momentum(sys.Bodies),
		AngMom:    AngularMomentum(sys.Bodies),
	}
}

func Kinetic(bodies []body.Particle) float64 {
	ke := 0.0
	for i := range bodies {
		ke += 0.5 * bodies[i].Mass * r3.Norm2(bodies[i].Vel)
	}
	return ke
}

// Potential sums the softened pairwise potential. G = 1.
func Potential(bodies []body.Particle, eps float64) float64 {
	pe := 0.0
	eps2 := eps * eps
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			d := bodies[j].Pos.Sub(bodies[i].Pos)
			pe -= bodies[i].Mass * bodies[j].Mass / math.Sqrt(r3.Norm2(d)+eps2)
		}
	}
	return pe
}

func Momentum(bodies []body.Particle) r3.Vec {
	var p r3.Vec
	for i := range bodies {
		p = p.Add(bodies[i].Vel.Scale(bodies[i].Mass))
	}
	return p
}

func AngularMomentum(bodies []body.Particle) r3.Vec {
	var l r3.Vec
	for i := range bodies {
		l = l.Add(bodies[i].Pos.Cross(bodies[i].Vel.Scale(bodies[i].Mass)))
	}
	return l
}

// VirialRatio returns 2T/|U| with the unsoftened potential, the acceptance
// statistic for sampled equilibria.
func VirialRatio(bodies []body.Particle) float64 {
	u := Potential(bodies, 0)
	if u == 0 {
		return math.Inf(1)
	}
	return 2 * Kinetic(bodies) / math.Abs(u)
}
