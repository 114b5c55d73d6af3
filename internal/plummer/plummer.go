// Package plummer samples virial-equilibrium initial conditions from a
// Plummer density profile in N-body units (total mass 1, G = 1, E = -1/4).
package plummer

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/diag"
	"github.com/dmarquez/hermigo/internal/snap"
)

const (
	// rcut truncates the profile's infinite support; encloses ~99.9% of
	// the mass in model units.
	rcut = 22.8

	maxTries  = 1000
	virialTol = 1e-8

	// lengthScale converts the model scale radius to N-body units, from
	// E = -(3*pi/64)/a = -1/4.
	lengthScale = 3 * math.Pi / 16
)

type Sampler struct {
	N     int
	Ranks int // partition sizing check only
	Seed  int64
}

func New(n, ranks int, seed int64) *Sampler {
	return &Sampler{N: n, Ranks: ranks, Seed: seed}
}

// Sample draws N equal-mass particles, removes the centre-of-mass drift,
// rescales to exact virial equilibrium and validates 2T/|U| against 1.
func (s *Sampler) Sample() (*body.System, error) {
	if _, err := body.NewPartition(s.N, s.Ranks); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(s.Seed))
	bodies := make([]body.Particle, s.N)
	mass := 1.0 / float64(s.N)

	for i := range bodies {
		r, rejected, err := s.radius(rng)
		if err != nil {
			return nil, fmt.Errorf("%w: particle %d after %d rejections", body.ErrSampling, i, rejected)
		}
		v, rejected, err := s.speed(rng, r)
		if err != nil {
			return nil, fmt.Errorf("%w: particle %d velocity after %d rejections", body.ErrSampling, i, rejected)
		}
		bodies[i] = body.Particle{
			ID:   i,
			Mass: mass,
			Pos:  isotropic(rng, r),
			Vel:  isotropic(rng, v),
		}
	}

	centre(bodies)
	scale(bodies)
	virialize(bodies)

	if q := diag.VirialRatio(bodies); math.Abs(q-1) > virialTol {
		return nil, fmt.Errorf("%w: virial ratio %g", body.ErrSampling, q)
	}
	return body.NewSystem(bodies, 0), nil
}

// WriteInitial samples and writes the initial-condition file consumed by
// the particle store.
func (s *Sampler) WriteInitial(path string) (*body.System, error) {
	sys, err := s.Sample()
	if err != nil {
		return nil, err
	}
	if err := snap.WriteFile(path, sys); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", body.ErrSnapshotIO, path, err)
	}
	return sys, nil
}

// radius inverts the cumulative mass profile, rejecting draws beyond the
// truncation radius or numerically unbounded.
func (s *Sampler) radius(rng *rand.Rand) (float64, int, error) {
	for tries := 0; tries < maxTries; tries++ {
		x := rng.Float64()
		if x == 0 {
			tries--
			continue
		}
		r := 1 / math.Sqrt(math.Pow(x, -2.0/3.0)-1)
		if math.IsNaN(r) || math.IsInf(r, 0) || r > rcut {
			continue
		}
		return r, tries, nil
	}
	return 0, maxTries, fmt.Errorf("radius rejection limit")
}

// speed draws from the isotropic equilibrium distribution by von Neumann
// rejection on g(q) = q^2 (1-q^2)^{7/2}, q = v / v_esc.
func (s *Sampler) speed(rng *rand.Rand, r float64) (float64, int, error) {
	vesc := math.Sqrt2 * math.Pow(1+r*r, -0.25)
	for tries := 0; tries < maxTries; tries++ {
		q := rng.Float64()
		g := q * q * math.Pow(1-q*q, 3.5)
		if 0.1*rng.Float64() < g {
			return q * vesc, tries, nil
		}
	}
	return 0, maxTries, fmt.Errorf("speed rejection limit")
}

func isotropic(rng *rand.Rand, radius float64) r3.Vec {
	z := (1 - 2*rng.Float64()) * radius
	rxy := math.Sqrt(radius*radius - z*z)
	phi := 2 * math.Pi * rng.Float64()
	return r3.Vec{X: rxy * math.Cos(phi), Y: rxy * math.Sin(phi), Z: z}
}

// centre removes the centre-of-mass position and velocity.
func centre(bodies []body.Particle) {
	var cp, cv r3.Vec
	var m float64
	for i := range bodies {
		cp = cp.Add(bodies[i].Pos.Scale(bodies[i].Mass))
		cv = cv.Add(bodies[i].Vel.Scale(bodies[i].Mass))
		m += bodies[i].Mass
	}
	cp = cp.Scale(1 / m)
	cv = cv.Scale(1 / m)
	for i := range bodies {
		bodies[i].Pos = bodies[i].Pos.Sub(cp)
		bodies[i].Vel = bodies[i].Vel.Sub(cv)
	}
}

// scale converts from model units (a = 1) to N-body units.
func scale(bodies []body.Particle) {
	vs := 1 / math.Sqrt(lengthScale)
	for i := range bodies {
		bodies[i].Pos = bodies[i].Pos.Scale(lengthScale)
		bodies[i].Vel = bodies[i].Vel.Scale(vs)
	}
}

// virialize rescales velocities so 2T/|U| is exactly 1 for the finite
// sample, not just in expectation.
func virialize(bodies []body.Particle) {
	if len(bodies) < 2 {
		return
	}
	q := diag.VirialRatio(bodies)
	if q <= 0 || math.IsInf(q, 0) {
		return
	}
	f := 1 / math.Sqrt(q)
	for i := range bodies {
		bodies[i].Vel = bodies[i].Vel.Scale(f)
	}
}
