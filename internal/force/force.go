// Package force evaluates softened pairwise gravity and its time
// derivatives by direct O(N) summation per target. G = 1 throughout.
package force

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
)

// Derivs holds the derivative tier evaluated at one target particle.
// Tiers above the engine's order stay zero.
type Derivs struct {
	Acc     r3.Vec
	Jerk    r3.Vec
	Snap    r3.Vec
	Crackle r3.Vec

	// DomRatio is the strongest single-pair contribution over the total
	// acceleration magnitude. A ratio above CloseRatio marks a close
	// encounter dominated by one neighbour.
	DomRatio float64
}

// CloseRatio is the dominant-pair threshold for the tighter accuracy
// coefficient.
const CloseRatio = 0.5

// Close reports whether the target sits in a close encounter.
func (d Derivs) Close() bool { return d.DomRatio > CloseRatio }

type Engine struct {
	Eps2  float64
	Order int
}

func New(eps float64, order int) *Engine {
	return &Engine{Eps2: eps * eps, Order: order}
}

// At sums over all other particles in ascending index order, so results
// are bit-reproducible no matter which rank runs the sum. For orders 6
// and 8 the inputs must carry predicted Acc (and Jerk) alongside Pos/Vel.
//
// The chain, with r2 softened:
//
//	alpha = r.v / r2
//	beta  = (v.v + r.a) / r2 + alpha^2
//	gamma = (3 v.a + r.j) / r2 + alpha (3 beta - 4 alpha^2)
//	a0 = m r / r^3
//	a1 = m v / r^3 - 3 alpha a0
//	a2 = m a / r^3 - 6 alpha a1 - 3 beta a0
//	a3 = m j / r^3 - 9 alpha a2 - 9 beta a1 - 3 gamma a0
func (e *Engine) At(i int, ps []body.Particle) Derivs {
	var d Derivs
	var maxPair2 float64
	pi := &ps[i]

	for j := range ps {
		if j == i {
			continue
		}
		pj := &ps[j]

		r := pj.Pos.Sub(pi.Pos)
		v := pj.Vel.Sub(pi.Vel)
		r2 := r3.Norm2(r) + e.Eps2
		rinv2 := 1 / r2
		mr3 := pj.Mass * rinv2 * math.Sqrt(rinv2)

		a0 := r.Scale(mr3)
		if p2 := r3.Norm2(a0); p2 > maxPair2 {
			maxPair2 = p2
		}
		d.Acc = d.Acc.Add(a0)

		alpha := r.Dot(v) * rinv2
		a1 := v.Scale(mr3).Sub(a0.Scale(3 * alpha))
		d.Jerk = d.Jerk.Add(a1)

		if e.Order < 6 {
			continue
		}
		a := pj.Acc.Sub(pi.Acc)
		beta := (r3.Norm2(v)+r.Dot(a))*rinv2 + alpha*alpha
		a2 := a.Scale(mr3).Sub(a1.Scale(6 * alpha)).Sub(a0.Scale(3 * beta))
		d.Snap = d.Snap.Add(a2)

		if e.Order < 8 {
			continue
		}
		jk := pj.Jerk.Sub(pi.Jerk)
		gamma := (3*v.Dot(a)+r.Dot(jk))*rinv2 + alpha*(3*beta-4*alpha*alpha)
		a3 := jk.Scale(mr3).Sub(a2.Scale(9 * alpha)).Sub(a1.Scale(9 * beta)).Sub(a0.Scale(3 * gamma))
		d.Crackle = d.Crackle.Add(a3)
	}

	if acc2 := r3.Norm2(d.Acc); acc2 > 0 {
		d.DomRatio = math.Sqrt(maxPair2 / acc2)
	}
	return d
}

// Apply stores evaluated derivatives on a particle.
func Apply(p *body.Particle, d Derivs) {
	p.Acc = d.Acc
	p.Jerk = d.Jerk
	p.Snap = d.Snap
	p.Crackle = d.Crackle
}
