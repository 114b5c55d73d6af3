package diag

import (
	"encoding/csv"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmarquez/hermigo/internal/body"
)

// flakyWriter fails a set number of writes, then passes through.
type flakyWriter struct {
	failures int
	sink     strings.Builder
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		return 0, errors.New("transient write failure")
	}
	return w.sink.Write(p)
}

func TestRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.csv")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatal(err)
	}

	sys := pair()
	rep := Measure(sys, 0)
	for i := 0; i < 3; i++ {
		rep.Time = float64(i) * 0.25
		if err := rec.Record(rep); err != nil {
			t.Fatal(err)
		}
	}
	if rec.InitialEnergy() != rep.Energy() {
		t.Errorf("initial energy %g, want %g", rec.InitialEnergy(), rep.Energy())
	}
	if rec.MaxDrift() != 0 {
		t.Errorf("identical samples should not drift, got %g", rec.MaxDrift())
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}

	h, err := LoadHistory(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.Times) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(h.Times))
	}
	for i, want := range []float64{0, 0.25, 0.5} {
		if h.Times[i] != want {
			t.Errorf("sample %d at time %g, want %g", i, h.Times[i], want)
		}
		if math.Abs(h.Energies[i]-rep.Energy()) > 1e-15 {
			t.Errorf("sample %d energy %g, want %g", i, h.Energies[i], rep.Energy())
		}
	}
}

func TestRecorderTracksWorstDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnostics.csv")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatal(err)
	}
	defer rec.Close()

	rec.Record(Report{Kinetic: 1, Potential: -2}) // E = -1
	rec.Record(Report{Kinetic: 1.1, Potential: -2})
	rec.Record(Report{Kinetic: 1.05, Potential: -2})

	if d := rec.MaxDrift(); math.Abs(d-0.1) > 1e-12 {
		t.Errorf("expected max drift 0.1, got %g", d)
	}
}

func TestRecordRetriesTransientFailure(t *testing.T) {
	fw := &flakyWriter{failures: 1}
	rec := &Recorder{out: fw, w: csv.NewWriter(fw)}

	if err := rec.Record(Report{Time: 0.5, Kinetic: 1, Potential: -2}); err != nil {
		t.Fatalf("retry did not recover from a single failed write: %v", err)
	}
	if !strings.Contains(fw.sink.String(), "0.5") {
		t.Error("retried row never reached the underlying writer")
	}
}

func TestRecordGivesUpAfterRetry(t *testing.T) {
	fw := &flakyWriter{failures: 2}
	rec := &Recorder{out: fw, w: csv.NewWriter(fw)}

	err := rec.Record(Report{Kinetic: 1, Potential: -2})
	if err == nil {
		t.Fatal("expected persistent write failure to be fatal")
	}
	if !errors.Is(err, body.ErrSnapshotIO) {
		t.Errorf("expected ErrSnapshotIO, got %v", err)
	}
}
