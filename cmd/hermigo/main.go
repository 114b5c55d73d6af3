package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/dmarquez/hermigo/internal/config"
	"github.com/dmarquez/hermigo/internal/diag"
	"github.com/dmarquez/hermigo/internal/plummer"
	"github.com/dmarquez/hermigo/internal/run"
	"github.com/dmarquez/hermigo/internal/snap"
	"github.com/dmarquez/hermigo/internal/viz"
)

var (
	profile  string
	order    int
	ranks    int
	gpu      bool
	outDir   string
	compress bool
	verbose  bool

	genN     int
	genRanks int
	genSeed  int64
	genOut   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "hermigo",
		Short:        "direct-summation Hermite N-body integrator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [config-file]",
		Short: "integrate a run to its end time",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&profile, "profile", "", "YAML profile instead of the one-line record")
	runCmd.Flags().IntVar(&order, "order", 0, "Hermite order: 4, 6 or 8")
	runCmd.Flags().IntVar(&ranks, "ranks", 0, "SPMD rank count")
	runCmd.Flags().BoolVar(&gpu, "gpu", false, "offload force sweeps to the GPU")
	runCmd.Flags().StringVar(&outDir, "out", "", "snapshot directory")
	runCmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress snapshots")

	genCmd := &cobra.Command{
		Use:   "genplum",
		Short: "sample Plummer-model initial conditions",
		RunE:  genPlummer,
	}
	genCmd.Flags().IntVarP(&genN, "n", "n", 1024, "particle count")
	genCmd.Flags().IntVar(&genRanks, "ranks", 1, "rank count the partition must fit")
	genCmd.Flags().Int64Var(&genSeed, "seed", 19700101, "random seed")
	genCmd.Flags().StringVarP(&genOut, "output", "o", "plummer.dat", "output file")

	diagCmd := &cobra.Command{
		Use:   "diag [diagnostics.csv]",
		Short: "summarize a diagnostic history",
		Args:  cobra.ExactArgs(1),
		RunE:  diagReport,
	}

	liveCmd := &cobra.Command{
		Use:   "live [diagnostics.csv]",
		Short: "monitor a running integration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.Watch(args[0])
		},
	}

	rootCmd.AddCommand(runCmd, genCmd, diagCmd, liveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	setupLogging()

	var cfg *config.Config
	var err error
	switch {
	case profile != "":
		cfg, err = config.LoadProfile(profile)
	case len(args) == 1:
		cfg, err = config.Load(args[0])
	default:
		return fmt.Errorf("need a config file argument or --profile")
	}
	if err != nil {
		return err
	}

	// flag overrides
	if order != 0 {
		cfg.Order = order
	}
	if ranks != 0 {
		cfg.Ranks = ranks
	}
	if gpu {
		cfg.GPU = true
	}
	if outDir != "" {
		cfg.OutDir = outDir
	}
	if compress {
		cfg.Compress = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sys, err := snap.ReadFile(cfg.Input)
	if err != nil {
		return err
	}

	final, err := run.Local(cfg, sys)
	if err != nil {
		return err
	}

	// keep the resolved configuration next to the outputs
	if err := config.SaveProfile(filepath.Join(cfg.OutDir, "run.yaml"), cfg); err != nil {
		logrus.WithError(err).Warn("could not save run profile")
	}

	rep := diag.Measure(final, cfg.Eps)
	fmt.Printf("t=%.6g  E=%.10g  |P|=%.3e\n",
		final.Time, rep.Energy(), r3.Norm(rep.Momentum))
	return nil
}

func genPlummer(cmd *cobra.Command, args []string) error {
	setupLogging()

	s := plummer.New(genN, genRanks, genSeed)
	sys, err := s.WriteInitial(genOut)
	if err != nil {
		return err
	}

	rep := diag.Measure(sys, 0)
	fmt.Printf("wrote %s: N=%d  T=%.6g  U=%.6g  2T/|U|=%.6g\n",
		genOut, sys.N(), rep.Kinetic, rep.Potential, diag.VirialRatio(sys.Bodies))
	return nil
}

func diagReport(cmd *cobra.Command, args []string) error {
	hist, err := diag.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(hist.Times) == 0 {
		return fmt.Errorf("%s: no samples", args[0])
	}

	maxDrift := floats.Max(hist.Drifts)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "samples\t%d\n", len(hist.Times))
	fmt.Fprintf(w, "t range\t%.6g .. %.6g\n", hist.Times[0], hist.Times[len(hist.Times)-1])
	fmt.Fprintf(w, "initial energy\t%.10g\n", hist.Energies[0])
	fmt.Fprintf(w, "final energy\t%.10g\n", hist.Energies[len(hist.Energies)-1])
	fmt.Fprintf(w, "mean drift\t%.3e\n", stat.Mean(hist.Drifts, nil))
	fmt.Fprintf(w, "max drift\t%.3e\n", maxDrift)
	w.Flush()

	if len(hist.Drifts) > 1 {
		fmt.Println(asciigraph.Plot(hist.Drifts,
			asciigraph.Height(10), asciigraph.Width(64), asciigraph.Caption("relative energy drift")))
	}
	return nil
}
