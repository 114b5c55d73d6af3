package force

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
)

func TestTwoBodyAcceleration(t *testing.T) {
	ps := []body.Particle{
		{ID: 0, Mass: 1, Pos: r3.Vec{X: -0.5}},
		{ID: 1, Mass: 2, Pos: r3.Vec{X: 0.5}},
	}
	e := New(0, 4)

	d := e.At(0, ps)
	if math.Abs(d.Acc.X-2) > 1e-14 || d.Acc.Y != 0 || d.Acc.Z != 0 {
		t.Errorf("expected acc (2,0,0), got %v", d.Acc)
	}
	if d.DomRatio != 1 {
		t.Errorf("expected dominant ratio 1 for a pair, got %g", d.DomRatio)
	}
	if !d.Close() {
		t.Error("a two-body system is always a close encounter")
	}

	d = e.At(1, ps)
	if math.Abs(d.Acc.X+1) > 1e-14 {
		t.Errorf("expected acc (-1,0,0), got %v", d.Acc)
	}
}

func TestSofteningWeakensForce(t *testing.T) {
	ps := []body.Particle{
		{ID: 0, Mass: 1, Pos: r3.Vec{X: -0.5}},
		{ID: 1, Mass: 1, Pos: r3.Vec{X: 0.5}},
	}

	bare := New(0, 4).At(0, ps)
	soft := New(0.1, 4).At(0, ps)

	want := 1 / math.Pow(1.01, 1.5)
	if math.Abs(soft.Acc.X-want) > 1e-14 {
		t.Errorf("expected softened acc %g, got %g", want, soft.Acc.X)
	}
	if soft.Acc.X >= bare.Acc.X {
		t.Error("softening must weaken the force")
	}
}

func TestNewtonThirdLaw(t *testing.T) {
	ps := randomCluster(12, 42)
	e := New(0.05, 4)

	var net r3.Vec
	for i := range ps {
		d := e.At(i, ps)
		net = net.Add(d.Acc.Scale(ps[i].Mass))
	}
	if r3.Norm(net) > 1e-12 {
		t.Errorf("net force %v should vanish", net)
	}
}

func TestJerkMatchesFiniteDifference(t *testing.T) {
	ps := randomCluster(6, 7)
	e := New(0.05, 4)

	const h = 1e-6
	d := e.At(0, ps)

	fd := centralDiff(h, func(s float64) r3.Vec {
		q := drift(ps, s)
		return e.At(0, q).Acc
	})

	assertVecClose(t, "jerk", d.Jerk, fd, 1e-6)
}

func TestSnapMatchesFiniteDifference(t *testing.T) {
	ps := randomCluster(6, 11)
	e4 := New(0.05, 4)
	for i := range ps {
		Apply(&ps[i], e4.At(i, ps))
	}

	const h = 1e-5
	d := New(0.05, 6).At(0, ps)

	fd := centralDiff(h, func(s float64) r3.Vec {
		return e4.At(0, advance(ps, s)).Jerk
	})

	assertVecClose(t, "snap", d.Snap, fd, 1e-5)
}

func TestCrackleMatchesFiniteDifference(t *testing.T) {
	ps := randomCluster(6, 13)
	e4 := New(0.05, 4)
	for i := range ps {
		Apply(&ps[i], e4.At(i, ps))
	}

	const h = 1e-5
	d := New(0.05, 8).At(0, ps)

	e6 := New(0.05, 6)
	fd := centralDiff(h, func(s float64) r3.Vec {
		return e6.At(0, advance(ps, s)).Snap
	})

	assertVecClose(t, "crackle", d.Crackle, fd, 1e-4)
}

// randomCluster spreads n particles around a unit-ish ring with jitter,
// keeping pair separations of order one so finite-difference checks stay
// well conditioned.
func randomCluster(n int, seed int64) []body.Particle {
	rng := rand.New(rand.NewSource(seed))
	ps := make([]body.Particle, n)
	for i := range ps {
		phi := 2 * math.Pi * float64(i) / float64(n)
		ps[i] = body.Particle{
			ID:   i,
			Mass: 0.5 + rng.Float64(),
			Pos: r3.Vec{
				X: 2*math.Cos(phi) + 0.1*rng.NormFloat64(),
				Y: 2*math.Sin(phi) + 0.1*rng.NormFloat64(),
				Z: 0.1 * rng.NormFloat64(),
			},
			Vel: r3.Vec{X: 0.3 * rng.NormFloat64(), Y: 0.3 * rng.NormFloat64(), Z: 0.3 * rng.NormFloat64()},
		}
	}
	return ps
}

// drift moves every particle linearly by s along its velocity.
func drift(ps []body.Particle, s float64) []body.Particle {
	q := append([]body.Particle(nil), ps...)
	for i := range q {
		q[i].Pos = q[i].Pos.Add(q[i].Vel.Scale(s))
	}
	return q
}

// advance moves every particle along its true trajectory to second order,
// shifting the stored Acc and Jerk tiers consistently.
func advance(ps []body.Particle, s float64) []body.Particle {
	q := append([]body.Particle(nil), ps...)
	for i := range q {
		q[i].Pos = q[i].Pos.Add(q[i].Vel.Scale(s)).Add(q[i].Acc.Scale(s * s / 2))
		q[i].Vel = q[i].Vel.Add(q[i].Acc.Scale(s)).Add(q[i].Jerk.Scale(s * s / 2))
		q[i].Acc = q[i].Acc.Add(q[i].Jerk.Scale(s))
	}
	return q
}

func centralDiff(h float64, f func(float64) r3.Vec) r3.Vec {
	return f(h).Sub(f(-h)).Scale(1 / (2 * h))
}

func assertVecClose(t *testing.T, name string, got, want r3.Vec, tol float64) {
	t.Helper()
	scale := math.Max(1, r3.Norm(want))
	if r3.Norm(got.Sub(want)) > tol*scale {
		t.Errorf("%s = %v, finite difference gives %v", name, got, want)
	}
}
