package hermite

import (
	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

// Hermite8 carries the full tier through crackle and predicts both
// acceleration and jerk for the force chain.
type Hermite8 struct{}

func (Hermite8) Order() int { return 8 }

func (Hermite8) Predict(p *body.Particle, t float64) body.Particle {
	dt := t - p.Time
	dt2 := dt * dt
	dt3 := dt2 * dt
	q := *p
	q.Pos = p.Pos.
		Add(p.Vel.Scale(dt)).
		Add(p.Acc.Scale(dt2 / 2)).
		Add(p.Jerk.Scale(dt3 / 6)).
		Add(p.Snap.Scale(dt2 * dt2 / 24)).
		Add(p.Crackle.Scale(dt3 * dt2 / 120))
	q.Vel = p.Vel.
		Add(p.Acc.Scale(dt)).
		Add(p.Jerk.Scale(dt2 / 2)).
		Add(p.Snap.Scale(dt3 / 6)).
		Add(p.Crackle.Scale(dt2 * dt2 / 24))
	q.Acc = p.Acc.
		Add(p.Jerk.Scale(dt)).
		Add(p.Snap.Scale(dt2 / 2)).
		Add(p.Crackle.Scale(dt3 / 6))
	q.Jerk = p.Jerk.
		Add(p.Snap.Scale(dt)).
		Add(p.Crackle.Scale(dt2 / 2))
	q.Time = t
	return q
}

func (Hermite8) Correct(p *body.Particle, d force.Derivs, t float64) {
	dt := t - p.Time
	h2 := dt / 2
	h28 := 3 * dt * dt / 28
	h84 := dt * dt * dt / 84
	h1680 := dt * dt * dt * dt / 1680

	vel := p.Vel.
		Add(p.Acc.Add(d.Acc).Scale(h2)).
		Sub(d.Jerk.Sub(p.Jerk).Scale(h28)).
		Add(d.Snap.Add(p.Snap).Scale(h84)).
		Sub(d.Crackle.Sub(p.Crackle).Scale(h1680))
	p.Pos = p.Pos.
		Add(p.Vel.Add(vel).Scale(h2)).
		Sub(d.Acc.Sub(p.Acc).Scale(h28)).
		Add(d.Jerk.Add(p.Jerk).Scale(h84)).
		Sub(d.Snap.Sub(p.Snap).Scale(h1680))
	p.Vel = vel

	force.Apply(p, d)
	p.Time = t
}
