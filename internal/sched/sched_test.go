package sched

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/force"
)

func testScheduler() *Scheduler {
	return &Scheduler{
		Eta:     0.02,
		EtaS:    0.01,
		Eps:     0.01,
		MinStep: 1e-12,
		MaxStep: 0.0625,
	}
}

func TestCandidateSoftened(t *testing.T) {
	s := testScheduler()
	d := force.Derivs{Acc: r3.Vec{X: 4}}

	want := s.Eta * math.Sqrt(s.Eps/4)
	if got := s.Candidate(d); got != want {
		t.Errorf("expected %g, got %g", want, got)
	}
}

func TestCandidateCloseEncounter(t *testing.T) {
	s := testScheduler()
	d := force.Derivs{Acc: r3.Vec{X: 4}, DomRatio: 0.9}

	want := s.EtaS * math.Sqrt(s.Eps/4)
	if got := s.Candidate(d); got != want {
		t.Errorf("expected tighter step %g, got %g", want, got)
	}
}

func TestCandidateUnsoftened(t *testing.T) {
	s := testScheduler()
	s.Eps = 0
	d := force.Derivs{Acc: r3.Vec{X: 2}, Jerk: r3.Vec{X: 8}}

	want := s.Eta * 2 / 8
	if got := s.Candidate(d); got != want {
		t.Errorf("expected %g, got %g", want, got)
	}
}

func TestCandidateZeroAcceleration(t *testing.T) {
	s := testScheduler()
	if got := s.Candidate(force.Derivs{}); got != s.MaxStep {
		t.Errorf("expected max step %g for free particle, got %g", s.MaxStep, got)
	}
}

func TestQuantizePowerOfTwo(t *testing.T) {
	s := testScheduler()

	h := s.Quantize(0.01, 0)
	if h != 0.0078125 {
		t.Errorf("expected 2^-7, got %g", h)
	}
	if h > 0.01 {
		t.Error("quantized step exceeds candidate")
	}
}

func TestQuantizeCommensurate(t *testing.T) {
	s := testScheduler()
	s.MaxStep = 0.5

	// A particle at t = 5*2^-4 cannot hold a 2^-3 step even if accuracy
	// would allow it.
	h := s.Quantize(0.5, 0.3125)
	if h != 0.0625 {
		t.Errorf("expected 2^-4 at t=0.3125, got %g", h)
	}
	if math.Mod(0.3125, h) != 0 {
		t.Errorf("step %g not commensurate with t=0.3125", h)
	}
}

func TestQuantizeRelativeToStart(t *testing.T) {
	s := testScheduler()
	s.T0 = 0.1 // not a binary fraction

	h := s.Quantize(0.05, s.T0)
	if h != 0.03125 {
		t.Errorf("expected 2^-5 at run start, got %g", h)
	}

	h = s.Quantize(0.05, s.T0+0.03125)
	if h != 0.03125 {
		t.Errorf("expected 2^-5 one step in, got %g", h)
	}
}

func TestAssignAtMostDoubles(t *testing.T) {
	s := testScheduler()
	p := &body.Particle{ID: 3, Mass: 1, Time: 0, Step: 0.0078125}

	// Tiny acceleration wants the maximum step; the doubling rule caps it.
	d := force.Derivs{Acc: r3.Vec{X: 1e-10}}
	if err := s.Assign(p, d); err != nil {
		t.Fatal(err)
	}
	if p.Step != 0.015625 {
		t.Errorf("expected step to double to 2^-6, got %g", p.Step)
	}
	if p.Due != p.Time+p.Step {
		t.Errorf("due %g inconsistent with time %g + step %g", p.Due, p.Time, p.Step)
	}
}

func TestAssignStall(t *testing.T) {
	s := testScheduler()
	p := &body.Particle{ID: 7, Mass: 1, Time: 0.5}

	// Enormous acceleration drives the step under MinStep.
	d := force.Derivs{Acc: r3.Vec{X: 1e30}}
	err := s.Assign(p, d)
	if err == nil {
		t.Fatal("expected stall error")
	}
	if !errors.Is(err, body.ErrStall) {
		t.Errorf("expected ErrStall, got %v", err)
	}
	var stall *body.StallError
	if !errors.As(err, &stall) {
		t.Fatal("expected *StallError")
	}
	if stall.ID != 7 || stall.Time != 0.5 {
		t.Errorf("stall context ID=%d Time=%g, want 7, 0.5", stall.ID, stall.Time)
	}
}

func TestAssignClampsAtEndTime(t *testing.T) {
	s := testScheduler()
	s.TEnd = 0.95 // not on the rung grid
	p := &body.Particle{ID: 1, Mass: 1, Time: 0.9375}

	// Tiny acceleration wants the full rung, which would overshoot.
	d := force.Derivs{Acc: r3.Vec{X: 1e-10}}
	if err := s.Assign(p, d); err != nil {
		t.Fatal(err)
	}
	if p.Due != 0.95 {
		t.Errorf("expected due exactly at end time 0.95, got %.17g", p.Due)
	}
	if p.Step != 0.95-0.9375 {
		t.Errorf("expected terminal step %.17g, got %.17g", 0.95-0.9375, p.Step)
	}
}

func TestAssignAtEndTimeDoesNotStall(t *testing.T) {
	s := testScheduler()
	s.TEnd = 0.95
	p := &body.Particle{ID: 2, Mass: 1, Time: 0.95}

	// The particle's time is off the binary grid, so quantization alone
	// would underflow; a finished particle must not report a stall.
	d := force.Derivs{Acc: r3.Vec{X: 1}}
	if err := s.Assign(p, d); err != nil {
		t.Fatalf("finished particle reported %v", err)
	}
	if p.Due != 0.95 {
		t.Errorf("expected due pinned at 0.95, got %g", p.Due)
	}
}

func TestActiveBlock(t *testing.T) {
	sys := body.NewSystem([]body.Particle{
		{ID: 0, Mass: 1, Due: 0.25},
		{ID: 1, Mass: 1, Due: 0.125},
		{ID: 2, Mass: 1, Due: 0.125},
		{ID: 3, Mass: 1, Due: 0.5},
	}, 0)

	due, idx := ActiveBlock(sys)
	if due != 0.125 {
		t.Errorf("expected block time 0.125, got %g", due)
	}
	if len(idx) != 2 || idx[0] != 1 || idx[1] != 2 {
		t.Errorf("expected active particles [1 2], got %v", idx)
	}
}

func TestMaxRung(t *testing.T) {
	tests := []struct {
		limit, want float64
	}{
		{0.0625, 0.0625},
		{0.1, 0.0625},
		{1.0, 1.0},
		{0.7, 0.5},
	}
	for _, tt := range tests {
		if got := MaxRung(tt.limit); got != tt.want {
			t.Errorf("MaxRung(%g) = %g, want %g", tt.limit, got, tt.want)
		}
	}
}
