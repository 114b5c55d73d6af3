// Package run drives the integration cycle on each rank: select the
// active block, evaluate forces for the owned share, correct, exchange,
// fire output triggers, repeat until the end time.
package run

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/comm"
	"github.com/dmarquez/hermigo/internal/compute"
	"github.com/dmarquez/hermigo/internal/config"
	"github.com/dmarquez/hermigo/internal/diag"
	"github.com/dmarquez/hermigo/internal/force"
	"github.com/dmarquez/hermigo/internal/hermite"
	"github.com/dmarquez/hermigo/internal/sched"
	"github.com/dmarquez/hermigo/internal/snap"
)

// Runner is one rank's view of the integration. Every rank holds a full
// replica of the system; only the owned partition slice is ever written
// between exchanges.
type Runner struct {
	cfg     *config.Config
	c       *comm.Comm
	part    body.Partition
	sys     *body.System
	eng     *force.Engine
	integ   hermite.Integrator
	sch     *sched.Scheduler
	backend compute.Backend
	log     *logrus.Entry

	index map[int]int // particle ID to replica slot

	// output state, rank 0 only writes, all ranks count
	writer    *snap.Writer
	rec       *diag.Recorder
	outCount  int
	diagCount int
	diagT0    float64
	lastSnap  float64

	pred  []body.Particle
	cycle uint64
}

// New wires a runner for one rank. The system replica is owned by the
// caller and mutated in place.
func New(cfg *config.Config, c *comm.Comm, sys *body.System) (*Runner, error) {
	if c.Size() != cfg.Ranks {
		return nil, fmt.Errorf("%w: launched with %d ranks, configured for %d",
			body.ErrPartition, c.Size(), cfg.Ranks)
	}
	part, err := body.NewPartition(sys.N(), c.Size())
	if err != nil {
		return nil, err
	}
	integ, err := hermite.New(cfg.Order)
	if err != nil {
		return nil, err
	}

	maxRung := sched.MaxRung(math.Min(cfg.DtDisk, cfg.DtContr))
	r := &Runner{
		cfg:   cfg,
		c:     c,
		part:  part,
		sys:   sys,
		eng:   force.New(cfg.Eps, cfg.Order),
		integ: integ,
		sch: &sched.Scheduler{
			Eta:     cfg.Eta,
			EtaS:    cfg.EtaS,
			Eps:     cfg.Eps,
			MinStep: cfg.MinStep,
			MaxStep: maxRung,
			T0:      sys.Time,
			TEnd:    cfg.TEnd,
		},
		backend:  compute.Select(cfg.GPU),
		log:      logrus.WithField("rank", c.Rank()),
		index:    make(map[int]int, sys.N()),
		diagT0:   sys.Time,
		lastSnap: math.Inf(-1),
		pred:     make([]body.Particle, sys.N()),
	}
	for i := range sys.Bodies {
		r.index[sys.Bodies[i].ID] = i
	}

	if c.Rank() == 0 {
		r.writer, err = snap.NewWriter(cfg.OutDir, cfg.Compress)
		if err != nil {
			return nil, err
		}
		r.rec, err = diag.NewRecorder(filepath.Join(cfg.OutDir, "diagnostics.csv"))
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run integrates to the configured end time and writes the final
// snapshot. Any error aborts the whole rank group.
func (r *Runner) Run() error {
	if err := r.sys.Validate(); err != nil {
		r.c.Abort(err)
		return err
	}
	if r.c.Rank() == 0 {
		r.log.WithFields(logrus.Fields{
			"n":       r.sys.N(),
			"order":   r.cfg.Order,
			"ranks":   r.c.Size(),
			"backend": r.backend.Name(),
			"t_end":   r.cfg.TEnd,
		}).Info("starting integration")
	}
	defer r.backend.Cleanup()

	if err := r.initialize(); err != nil {
		r.c.Abort(err)
		return err
	}

	for r.sys.Time < r.cfg.TEnd {
		if err := r.step(); err != nil {
			return err
		}
	}

	if err := r.finalSnapshot(); err != nil {
		r.c.Abort(err)
		return err
	}
	if r.rec != nil {
		r.log.WithFields(logrus.Fields{
			"t":         r.sys.Time,
			"cycles":    r.cycle,
			"snapshots": r.outCount,
			"max_drift": r.rec.MaxDrift(),
		}).Info("integration finished")
		if err := r.rec.Close(); err != nil {
			return fmt.Errorf("%w: %v", body.ErrSnapshotIO, err)
		}
	}
	return r.c.Barrier()
}

// initialize bootstraps the derivative history and the block steps. Orders
// 6 and 8 need a first acceleration/jerk pass so the full chain has source
// accelerations (and jerks) to differentiate through.
func (r *Runner) initialize() error {
	lo, hi := r.part.Range(r.c.Rank())
	own := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		own = append(own, i)
	}
	out := make([]force.Derivs, len(own))

	if r.cfg.Order > 4 {
		boot := force.New(r.cfg.Eps, 4)
		r.backend.Sweep(boot, r.sys.Bodies, own, out)
		for k, i := range own {
			force.Apply(&r.sys.Bodies[i], out[k])
		}
		if err := r.exchangeOwned(own); err != nil {
			return err
		}
	}

	r.backend.Sweep(r.eng, r.sys.Bodies, own, out)
	for k, i := range own {
		p := &r.sys.Bodies[i]
		force.Apply(p, out[k])
		if err := r.sch.Assign(p, out[k]); err != nil {
			return err
		}
	}
	if err := r.exchangeOwned(own); err != nil {
		return err
	}

	r.sys.NextDiag = r.diagT0 + r.cfg.DtContr
	r.sys.NextOutput = r.diagT0 + r.cfg.DtDisk

	if r.rec != nil {
		if err := r.rec.Record(diag.Measure(r.sys, r.cfg.Eps)); err != nil {
			return err
		}
	}
	return nil
}

// step advances one block cycle.
func (r *Runner) step() error {
	t, err := r.c.AllReduceMin(r.sys.MinDue())
	if err != nil {
		return err
	}

	blockT, active := sched.ActiveBlock(r.sys)
	if blockT != t {
		// replicas disagree on the schedule; the store invariant is gone
		err := fmt.Errorf("block time %g, group minimum %g", blockT, t)
		r.c.Abort(err)
		return fmt.Errorf("%w: %v", body.ErrCollective, err)
	}

	for i := range r.sys.Bodies {
		r.pred[i] = r.integ.Predict(&r.sys.Bodies[i], t)
	}

	own := active[:0:0]
	for _, i := range active {
		if r.part.Owns(r.c.Rank(), i) {
			own = append(own, i)
		}
	}

	out := make([]force.Derivs, len(own))
	r.backend.Sweep(r.eng, r.pred, own, out)

	for k, i := range own {
		p := &r.sys.Bodies[i]
		r.integ.Correct(p, out[k], t)
		if err := r.sch.Assign(p, out[k]); err != nil {
			r.c.Abort(err)
			return err
		}
	}

	if err := r.exchangeOwned(own); err != nil {
		return err
	}
	r.sys.Time = t
	r.cycle++

	if err := r.triggers(); err != nil {
		r.c.Abort(err)
		return err
	}
	return r.c.Barrier()
}

// exchangeOwned broadcasts this rank's updated particles and folds every
// rank's contributions into the local replica.
func (r *Runner) exchangeOwned(own []int) error {
	local := make([]body.Particle, len(own))
	for k, i := range own {
		local[k] = r.sys.Bodies[i]
	}
	all, err := r.c.AllGatherParticles(local)
	if err != nil {
		return err
	}
	for _, q := range all {
		r.sys.Bodies[r.index[q.ID]] = q
	}
	return nil
}

// triggers fires the diagnostic and disk-output schedules. Each threshold
// fires exactly once even when a block step overshoots it. Thresholds are
// computed from counters, not accumulated, so they do not drift.
func (r *Runner) triggers() error {
	for r.sys.Time >= r.sys.NextDiag {
		if r.rec != nil {
			if err := r.rec.Record(diag.Measure(r.sys, r.cfg.Eps)); err != nil {
				return err
			}
		}
		r.diagCount++
		r.sys.NextDiag = r.diagT0 + float64(r.diagCount+1)*r.cfg.DtContr
	}
	for r.sys.Time >= r.sys.NextOutput {
		r.outCount++
		r.sys.OutputStep++
		if err := r.writeSnapshot(); err != nil {
			return err
		}
		r.sys.NextOutput = r.diagT0 + float64(r.outCount+1)*r.cfg.DtDisk
	}
	return nil
}

func (r *Runner) writeSnapshot() error {
	r.lastSnap = r.sys.Time
	if r.writer == nil {
		return nil
	}
	if err := r.writer.Write(r.sys); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{
		"step": r.sys.OutputStep,
		"t":    r.sys.Time,
	}).Info("snapshot written")
	return nil
}

// finalSnapshot guarantees the run ends with a snapshot on disk, without
// duplicating one that the last trigger already wrote at this time.
func (r *Runner) finalSnapshot() error {
	if r.lastSnap == r.sys.Time {
		return nil
	}
	r.outCount++
	r.sys.OutputStep++
	return r.writeSnapshot()
}
