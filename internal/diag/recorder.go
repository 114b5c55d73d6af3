package diag

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dmarquez/hermigo/internal/body"
)

var historyHeader = []string{
	"time", "kinetic", "potential", "energy",
	"px", "py", "pz", "lx", "ly", "lz", "drift",
}

// Recorder appends diagnostic samples to a CSV history file and tracks the
// worst relative energy drift against the first sample. Writes are retried
// once; a second failure is fatal.
type Recorder struct {
	f       *os.File
	out     io.Writer
	w       *csv.Writer
	initial float64
	primed  bool
	max     float64
}

func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", body.ErrSnapshotIO, err)
	}
	r := &Recorder{f: f, out: f, w: csv.NewWriter(f)}
	if err := r.w.Write(historyHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", body.ErrSnapshotIO, err)
	}
	return r, nil
}

func (r *Recorder) Record(rep Report) error {
	if !r.primed {
		r.initial = rep.Energy()
		r.primed = true
	}
	drift := rep.Drift(r.initial)
	if drift > r.max {
		r.max = drift
	}

	row := make([]string, 0, len(historyHeader))
	for _, v := range []float64{
		rep.Time, rep.Kinetic, rep.Potential, rep.Energy(),
		rep.Momentum.X, rep.Momentum.Y, rep.Momentum.Z,
		rep.AngMom.X, rep.AngMom.Y, rep.AngMom.Z, drift,
	} {
		row = append(row, strconv.FormatFloat(v, 'g', 17, 64))
	}

	if err := r.w.Write(row); err == nil {
		r.w.Flush()
	}
	if err := r.w.Error(); err != nil {
		// one retry on a fresh writer, since the failed one's buffered
		// error is sticky; then give up
		r.w = csv.NewWriter(r.out)
		if err = r.w.Write(row); err == nil {
			r.w.Flush()
			err = r.w.Error()
		}
		if err != nil {
			return fmt.Errorf("%w: diagnostic history: %v", body.ErrSnapshotIO, err)
		}
	}
	return nil
}

// InitialEnergy reports the reference energy of the first sample.
func (r *Recorder) InitialEnergy() float64 { return r.initial }

// MaxDrift reports the worst relative energy drift seen so far.
func (r *Recorder) MaxDrift() float64 { return r.max }

func (r *Recorder) Close() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// History is a parsed diagnostic series.
type History struct {
	Times    []float64
	Energies []float64
	Drifts   []float64
}

// LoadHistory reads a CSV history written by a Recorder.
func LoadHistory(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	records, err := rd.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return &History{}, nil
	}

	h := &History{}
	for _, rec := range records[1:] {
		if len(rec) != len(historyHeader) {
			continue
		}
		t, err1 := strconv.ParseFloat(rec[0], 64)
		e, err2 := strconv.ParseFloat(rec[3], 64)
		d, err3 := strconv.ParseFloat(rec[10], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		h.Times = append(h.Times, t)
		h.Energies = append(h.Energies, e)
		h.Drifts = append(h.Drifts, d)
	}
	return h, nil
}
