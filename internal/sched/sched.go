// Package sched assigns per-particle block time steps and selects the
// active block each cycle. Steps live on a power-of-two hierarchy so
// particles sharing a rung fall due at the same global time.
package sched

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

type Scheduler struct {
	Eta     float64 // general accuracy coefficient
	EtaS    float64 // close-encounter accuracy coefficient
	Eps     float64 // softening length
	MinStep float64 // underflow is a fatal stall
	MaxStep float64 // largest rung, a power of two
	T0      float64 // run start; rungs align to t-T0, so restarts keep their grid
	TEnd    float64 // hard ceiling; no particle is ever due past it
}

// Candidate derives the unquantized step from the local dynamical
// timescale, switching to the tighter coefficient when one neighbour
// dominates the acceleration.
func (s *Scheduler) Candidate(d force.Derivs) float64 {
	eta := s.Eta
	if d.Close() {
		eta = s.EtaS
	}
	a := r3.Norm(d.Acc)
	if a == 0 {
		return s.MaxStep
	}
	if s.Eps > 0 {
		return eta * math.Sqrt(s.Eps/a)
	}
	// unsoftened runs fall back to the acceleration/jerk timescale
	j := r3.Norm(d.Jerk)
	if j == 0 {
		return s.MaxStep
	}
	return eta * a / j
}

// Quantize floors dt to the power-of-two rung commensurate with t: a
// particle at time t may only hold step h when t-T0 is a multiple of h.
func (s *Scheduler) Quantize(dt, t float64) float64 {
	rel := t - s.T0
	h := s.MaxStep
	for h > dt || (rel != 0 && math.Mod(rel, h) != 0) {
		h /= 2
		if h < s.MinStep {
			return h
		}
	}
	return h
}

// Assign installs the particle's next step and due time after a
// correction (or initialization) at p.Time. A step may at most double,
// and the final one shortens off the rung grid so the particle lands
// exactly on the end time.
func (s *Scheduler) Assign(p *body.Particle, d force.Derivs) error {
	if s.TEnd > 0 && p.Time >= s.TEnd {
		p.Step = 0
		p.Due = s.TEnd
		return nil
	}
	dt := s.Candidate(d)
	if p.Step > 0 && dt > 2*p.Step {
		dt = 2 * p.Step
	}
	h := s.Quantize(dt, p.Time)
	if s.TEnd > 0 && p.Time+h >= s.TEnd {
		p.Step = s.TEnd - p.Time
		p.Due = s.TEnd
		return nil
	}
	if h < s.MinStep {
		return &body.StallError{ID: p.ID, Time: p.Time, Step: h, Pos: p.Pos, Vel: p.Vel}
	}
	p.Step = h
	p.Due = p.Time + h
	return nil
}

// ActiveBlock returns the global minimum due time and every particle due
// exactly then. Due times are sums of powers of two, so the equality is
// exact.
func ActiveBlock(sys *body.System) (float64, []int) {
	due := sys.MinDue()
	var idx []int
	for i := range sys.Bodies {
		if sys.Bodies[i].Due == due {
			idx = append(idx, i)
		}
	}
	return due, idx
}

// MaxRung returns the largest power of two not exceeding limit.
func MaxRung(limit float64) float64 {
	return math.Exp2(math.Floor(math.Log2(limit)))
}
