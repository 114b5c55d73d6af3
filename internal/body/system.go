package body

import "fmt"

// System is the full particle set plus the simulation clock and the
// monotonic output counters. The clock lives here, not in a global, so
// several systems can coexist in one process.
type System struct {
	Bodies []Particle
	Time   float64

	OutputStep int     // index of the next snapshot
	NextOutput float64 // next disk-output threshold
	NextDiag   float64 // next diagnostic threshold
}

func NewSystem(bodies []Particle, t float64) *System {
	return &System{Bodies: bodies, Time: t}
}

func (s *System) N() int { return len(s.Bodies) }

// Validate checks the invariants that hold for the run's lifetime.
func (s *System) Validate() error {
	if len(s.Bodies) == 0 {
		return fmt.Errorf("%w: empty particle set", ErrConfig)
	}
	seen := make(map[int]struct{}, len(s.Bodies))
	for i := range s.Bodies {
		p := &s.Bodies[i]
		if !p.IsValid() {
			return fmt.Errorf("%w: particle %d has mass %g or non-finite state", ErrConfig, p.ID, p.Mass)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate particle id %d", ErrConfig, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// MinDue returns the earliest next-due time over all particles.
func (s *System) MinDue() float64 {
	due := s.Bodies[0].Due
	for i := 1; i < len(s.Bodies); i++ {
		if s.Bodies[i].Due < due {
			due = s.Bodies[i].Due
		}
	}
	return due
}
