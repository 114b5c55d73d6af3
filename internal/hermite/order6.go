package hermite

import (
	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

// Hermite6 adds snap to the history and predicts acceleration as well,
// since the force chain differentiates through it.
type Hermite6 struct{}

func (Hermite6) Order() int { return 6 }

func (Hermite6) Predict(p *body.Particle, t float64) body.Particle {
	dt := t - p.Time
	dt2 := dt * dt
	q := *p
	q.Pos = p.Pos.
		Add(p.Vel.Scale(dt)).
		Add(p.Acc.Scale(dt2 / 2)).
		Add(p.Jerk.Scale(dt2 * dt / 6)).
		Add(p.Snap.Scale(dt2 * dt2 / 24))
	q.Vel = p.Vel.
		Add(p.Acc.Scale(dt)).
		Add(p.Jerk.Scale(dt2 / 2)).
		Add(p.Snap.Scale(dt2 * dt / 6))
	q.Acc = p.Acc.
		Add(p.Jerk.Scale(dt)).
		Add(p.Snap.Scale(dt2 / 2))
	q.Time = t
	return q
}

func (Hermite6) Correct(p *body.Particle, d force.Derivs, t float64) {
	dt := t - p.Time
	h2 := dt / 2
	h10 := dt * dt / 10
	h120 := dt * dt * dt / 120

	vel := p.Vel.
		Add(p.Acc.Add(d.Acc).Scale(h2)).
		Sub(d.Jerk.Sub(p.Jerk).Scale(h10)).
		Add(d.Snap.Add(p.Snap).Scale(h120))
	p.Pos = p.Pos.
		Add(p.Vel.Add(vel).Scale(h2)).
		Sub(d.Acc.Sub(p.Acc).Scale(h10)).
		Add(d.Jerk.Add(p.Jerk).Scale(h120))
	p.Vel = vel

	force.Apply(p, d)
	p.Time = t
}
