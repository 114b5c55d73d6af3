package plummer_test

import (
	"math"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dmarquez/hermigo/internal/body"
	"github.com/dmarquez/hermigo/internal/diag"
	"github.com/dmarquez/hermigo/internal/plummer"
	"github.com/dmarquez/hermigo/internal/snap"
)

var _ = Describe("Sampler", func() {
	const n = 256

	var sys *body.System

	BeforeEach(func() {
		var err error
		sys, err = plummer.New(n, 1, 12345).Sample()
		Expect(err).NotTo(HaveOccurred())
	})

	It("draws the requested number of particles", func() {
		Expect(sys.N()).To(Equal(n))
	})

	It("assigns equal masses summing to one", func() {
		total := 0.0
		for i := range sys.Bodies {
			Expect(sys.Bodies[i].Mass).To(BeNumerically("~", 1.0/n, 1e-15))
			total += sys.Bodies[i].Mass
		}
		Expect(total).To(BeNumerically("~", 1.0, 1e-12))
	})

	It("removes the centre-of-mass drift", func() {
		Expect(r3.Norm(diag.Momentum(sys.Bodies))).To(BeNumerically("<", 1e-12))
	})

	It("lands exactly on virial equilibrium", func() {
		Expect(diag.VirialRatio(sys.Bodies)).To(BeNumerically("~", 1.0, 1e-8))
	})

	It("starts every particle at time zero", func() {
		Expect(sys.Time).To(BeZero())
		for i := range sys.Bodies {
			Expect(sys.Bodies[i].Time).To(BeZero())
		}
	})

	It("passes system validation", func() {
		Expect(sys.Validate()).To(Succeed())
	})

	It("keeps every particle inside the truncation radius", func() {
		// The cut is applied in model units; N-body units scale lengths
		// by 3 pi/16. The extra unit absorbs the centre-of-mass shift.
		limit := 22.8*3*math.Pi/16 + 1
		for i := range sys.Bodies {
			Expect(r3.Norm(sys.Bodies[i].Pos)).To(BeNumerically("<", limit))
		}
	})
})

var _ = Describe("Determinism", func() {
	It("reproduces the same sample for the same seed", func() {
		a, err := plummer.New(64, 1, 7).Sample()
		Expect(err).NotTo(HaveOccurred())
		b, err := plummer.New(64, 1, 7).Sample()
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Bodies).To(Equal(a.Bodies))
	})

	It("produces different samples for different seeds", func() {
		a, err := plummer.New(64, 1, 7).Sample()
		Expect(err).NotTo(HaveOccurred())
		b, err := plummer.New(64, 1, 8).Sample()
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Bodies).NotTo(Equal(a.Bodies))
	})
})

var _ = Describe("WriteInitial", func() {
	It("writes a loadable initial-condition file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "plummer.dat")

		sys, err := plummer.New(32, 1, 99).WriteInitial(path)
		Expect(err).NotTo(HaveOccurred())

		loaded, err := snap.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.N()).To(Equal(32))
		Expect(loaded.Time).To(BeZero())
		Expect(loaded.Bodies[5].Pos).To(Equal(sys.Bodies[5].Pos))
	})
})

var _ = Describe("Partition sizing", func() {
	It("rejects more ranks than particles", func() {
		_, err := plummer.New(4, 8, 1).Sample()
		Expect(err).To(MatchError(body.ErrPartition))
	})
})
