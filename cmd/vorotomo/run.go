package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seismon/vorotomo/comm"
	"github.com/seismon/vorotomo/rays"
	"github.com/seismon/vorotomo/store"
	"github.com/seismon/vorotomo/tomo"
)

var runFlags struct {
	config   string
	events   string
	arrivals string
	stations string
	pwave    string
	swave    string
	procs    int
	seed     int64
	rayStep  float64
	verbose  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full inversion",
	RunE:  runInversion,
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&runFlags.config, "config", "c", "vorotomo.yaml", "configuration file")
	flags.StringVar(&runFlags.events, "events", "events.csv", "event catalog")
	flags.StringVar(&runFlags.arrivals, "arrivals", "arrivals.csv", "arrival catalog")
	flags.StringVar(&runFlags.stations, "stations", "stations.csv", "station catalog")
	flags.StringVar(&runFlags.pwave, "pwave", "pwave.gob", "starting P model")
	flags.StringVar(&runFlags.swave, "swave", "swave.gob", "starting S model")
	flags.IntVarP(&runFlags.procs, "procs", "n", 4, "number of simulated processes (min 2)")
	flags.Int64Var(&runFlags.seed, "seed", 1, "random seed")
	flags.Float64Var(&runFlags.rayStep, "ray-step", rays.DefaultStep, "ray discretization step in km")
	flags.BoolVarP(&runFlags.verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(runCmd)
}

func runInversion(cmd *cobra.Command, args []string) error {
	if runFlags.procs < 2 {
		return fmt.Errorf("need at least 2 processes, got %d", runFlags.procs)
	}

	level := slog.LevelInfo
	if runFlags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := tomo.LoadConfig(runFlags.config)
	if err != nil {
		return err
	}

	var fields tomo.FieldStore
	if dir := cfg.Workspace.TraveltimeDir; dir != "" {
		fieldStore, err := store.OpenFieldStore(dir)
		if err != nil {
			return err
		}
		defer fieldStore.Close()
		fields = fieldStore
	} else {
		fields = store.NewMemFieldStore()
	}

	var snapshots tomo.SnapshotWriter
	if dir := cfg.Workspace.OutputDir; dir != "" {
		writer, err := store.NewDirWriter(dir)
		if err != nil {
			return err
		}
		snapshots = writer
	}

	opts := tomo.Options{
		Oracles: tomo.Oracles{
			Solver:     rays.Solver{Step: runFlags.rayStep},
			Fields:     fields,
			NewLocator: rays.NewLocator,
		},
		Source: store.CSVSource{
			EventsPath:   runFlags.events,
			ArrivalsPath: runFlags.arrivals,
			StationsPath: runFlags.stations,
			PwavePath:    runFlags.pwave,
			SwavePath:    runFlags.swave,
		},
		Snapshots: snapshots,
		Logger:    logger,
		Seed:      runFlags.seed,
	}

	loop := comm.NewLoop()
	errs := make([]error, runFlags.procs)
	comm.SpawnGroup(loop, runFlags.procs, func(g *comm.Group) {
		it := tomo.New(g, opts)
		it.SetConfig(cfg)
		errs[g.Rank()] = drive(it)
	})
	if err := resolveRunError(loop.Run(), errs); err != nil {
		return err
	}
	logger.Info("inversion complete", "iterations", cfg.Algorithm.NIter)
	return nil
}

// resolveRunError picks the error to report for one run.
// When a rank fails mid-protocol the surviving ranks block
// on the next collective and the loop reports a deadlock;
// the rank's own error names the actual cause, so it wins.
func resolveRunError(runErr error, errs []error) error {
	for rank, err := range errs {
		if err != nil {
			return fmt.Errorf("rank %d: %w", rank, err)
		}
	}
	return runErr
}

// drive runs one process's share of the whole inversion.
func drive(it *tomo.Iterator) error {
	startup := []func() error{
		it.LoadEventData,
		it.LoadNetworkGeometry,
		it.LoadVelocityModels,
		it.SanitizeData,
		it.ComputeTraveltimeLookupTables,
		it.UpdateArrivalResiduals,
	}
	for _, step := range startup {
		if err := step(); err != nil {
			return err
		}
	}
	for i := 0; i < it.Config().Algorithm.NIter; i++ {
		if err := it.Iterate(); err != nil {
			return err
		}
	}
	return nil
}
