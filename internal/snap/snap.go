// Package snap reads and writes the text snapshot format shared by
// initial-condition, restart and disk-output files. Each file is
// self-contained: a header line `step N time`, then one line per particle
// `id mass x y z vx vy vz`.
package snap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/DataDog/zstd"

	"github.com/dmarquez/hermigo/internal/body"
)

// Writer emits numbered snapshots into a directory. Writes are retried
// once; a second failure is fatal to the caller.
type Writer struct {
	Dir      string
	Compress bool
}

func NewWriter(dir string, compress bool) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", body.ErrSnapshotIO, err)
	}
	return &Writer{Dir: dir, Compress: compress}, nil
}

func (w *Writer) Path(step int) string {
	name := fmt.Sprintf("snap_%04d.dat", step)
	if w.Compress {
		name += ".zst"
	}
	return filepath.Join(w.Dir, name)
}

// Write serializes the system under its current OutputStep index.
func (w *Writer) Write(sys *body.System) error {
	path := w.Path(sys.OutputStep)
	err := WriteFile(path, sys)
	if err != nil {
		err = WriteFile(path, sys)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", body.ErrSnapshotIO, path, err)
	}
	return nil
}

// WriteFile writes one snapshot to path, compressing when the name ends
// in .zst.
func WriteFile(path string, sys *body.System) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	var out io.Writer = f
	var zw *zstd.Writer
	if strings.HasSuffix(path, ".zst") {
		zw = zstd.NewWriter(f)
		out = zw
	}
	bw := bufio.NewWriter(out)

	fmt.Fprintf(bw, "%d %d %.17g\n", sys.OutputStep, sys.N(), sys.Time)
	for i := range sys.Bodies {
		p := &sys.Bodies[i]
		fmt.Fprintf(bw, "%d %.17g %.17g %.17g %.17g %.17g %.17g %.17g\n",
			p.ID, p.Mass, p.Pos.X, p.Pos.Y, p.Pos.Z, p.Vel.X, p.Vel.Y, p.Vel.Z)
	}

	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// ReadFile loads a snapshot or initial-condition file into a fresh system.
func ReadFile(path string) (*body.System, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", body.ErrConfig, err)
	}
	defer f.Close()

	var in io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		zr := zstd.NewReader(f)
		defer zr.Close()
		in = zr
	}

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 1<<16), 1<<20)
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: %s: missing header", body.ErrConfig, path)
	}
	head := strings.Fields(sc.Text())
	if len(head) != 3 {
		return nil, fmt.Errorf("%w: %s: header wants 3 fields, got %d", body.ErrConfig, path, len(head))
	}
	step, err := strconv.Atoi(head[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: step: %v", body.ErrConfig, path, err)
	}
	n, err := strconv.Atoi(head[1])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("%w: %s: particle count %q", body.ErrConfig, path, head[1])
	}
	t, err := strconv.ParseFloat(head[2], 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: time: %v", body.ErrConfig, path, err)
	}

	bodies := make([]body.Particle, 0, n)
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("%w: %s: %d particles, header says %d", body.ErrConfig, path, i, n)
		}
		p, err := parseParticle(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", body.ErrConfig, path, i+2, err)
		}
		p.Time = t
		bodies = append(bodies, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", body.ErrConfig, path, err)
	}

	sys := body.NewSystem(bodies, t)
	sys.OutputStep = step
	return sys, sys.Validate()
}

func parseParticle(line string) (body.Particle, error) {
	var p body.Particle
	fields := strings.Fields(line)
	if len(fields) != 8 {
		return p, fmt.Errorf("want 8 fields, got %d", len(fields))
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return p, fmt.Errorf("id %q: %v", fields[0], err)
	}
	vals := make([]float64, 7)
	for i := range vals {
		vals[i], err = strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return p, fmt.Errorf("field %d %q: %v", i+2, fields[i+1], err)
		}
	}
	p.ID = id
	p.Mass = vals[0]
	p.Pos.X, p.Pos.Y, p.Pos.Z = vals[1], vals[2], vals[3]
	p.Vel.X, p.Vel.Y, p.Vel.Z = vals[4], vals[5], vals[6]
	return p, nil
}
