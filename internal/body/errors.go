package body

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Domain errors. Every one of these terminates the run; none is used for
// ordinary control flow.
var (
	// ErrConfig indicates a malformed or missing configuration or input file.
	ErrConfig = errors.New("hermigo: invalid configuration")

	// ErrSampling indicates the initial-condition sampler kept rejecting.
	ErrSampling = errors.New("hermigo: sampling rejected")

	// ErrStall indicates a particle's adaptive step underflowed the minimum.
	ErrStall = errors.New("hermigo: time step underflow")

	// ErrPartition indicates the launch rank count disagrees with the partition.
	ErrPartition = errors.New("hermigo: partition mismatch")

	// ErrCollective indicates a rank failed to complete a cross-rank exchange.
	ErrCollective = errors.New("hermigo: collective exchange failed")

	// ErrSnapshotIO indicates a checkpoint or diagnostic write kept failing.
	ErrSnapshotIO = errors.New("hermigo: snapshot write failed")
)

// StallError carries the offending particle's local state so an underflow
// is diagnosable rather than silently clamped.
type StallError struct {
	ID   int
	Time float64
	Step float64
	Pos  r3.Vec
	Vel  r3.Vec
}

func (e *StallError) Error() string {
	return fmt.Sprintf("%v: particle %d at t=%.6g step=%.3g pos=(%.6g,%.6g,%.6g) vel=(%.6g,%.6g,%.6g)",
		ErrStall, e.ID, e.Time, e.Step, e.Pos.X, e.Pos.Y, e.Pos.Z, e.Vel.X, e.Vel.Y, e.Vel.Z)
}

func (e *StallError) Unwrap() error { return ErrStall }
