package hermite

import (
	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

// Hermite4 carries acceleration and jerk.
type Hermite4 struct{}

func (Hermite4) Order() int { return 4 }

func (Hermite4) Predict(p *body.Particle, t float64) body.Particle {
	dt := t - p.Time
	q := *p
	q.Pos = p.Pos.
		Add(p.Vel.Scale(dt)).
		Add(p.Acc.Scale(dt * dt / 2)).
		Add(p.Jerk.Scale(dt * dt * dt / 6))
	q.Vel = p.Vel.
		Add(p.Acc.Scale(dt)).
		Add(p.Jerk.Scale(dt * dt / 2))
	q.Time = t
	return q
}

func (Hermite4) Correct(p *body.Particle, d force.Derivs, t float64) {
	dt := t - p.Time
	h2 := dt / 2
	h212 := dt * dt / 12

	vel := p.Vel.
		Add(p.Acc.Add(d.Acc).Scale(h2)).
		Sub(d.Jerk.Sub(p.Jerk).Scale(h212))
	p.Pos = p.Pos.
		Add(p.Vel.Add(vel).Scale(h2)).
		Sub(d.Acc.Sub(p.Acc).Scale(h212))
	p.Vel = vel

	force.Apply(p, d)
	p.Time = t
}
