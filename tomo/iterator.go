package tomo

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/seismon/vorotomo/comm"
	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/sparse"
)

// Options configures an Iterator.
type Options struct {
	// Oracles are the external numerical collaborators.
	Oracles Oracles

	// Source supplies parsed input data on the root.
	Source DataSource

	// Snapshots receives per-iteration state on the root.
	// May be nil, in which case nothing is persisted.
	Snapshots SnapshotWriter

	// Logger receives structured progress logs. Defaults
	// to slog.Default().
	Logger *slog.Logger

	// Seed seeds the per-process random source. Each rank
	// derives its own stream from it.
	Seed int64
}

// An Iterator drives the inversion procedure for one
// process in the group. Every process holds its own
// Iterator; shared state lives on the root and reaches the
// workers only through Synchronize.
type Iterator struct {
	group *comm.Group

	// root flags the coordinating role explicitly, rather
	// than sprinkling rank comparisons around.
	root bool

	log     *slog.Logger
	oracles Oracles
	source  DataSource
	snap    SnapshotWriter
	rng     *rand.Rand

	iiter int

	cfg      *Config
	arrivals []Arrival
	events   []Event
	stations []Station
	sampled  []Arrival

	pwaveModel *geom.Model
	swaveModel *geom.Model

	projection  *sparse.Matrix
	sensitivity *sparse.Matrix
	residuals   []float64

	voronoiCells []geom.Vec3

	pwaveStack [][]float64
	swaveStack [][]float64

	pwaveVariance []float64
	swaveVariance []float64
}

// New creates the calling process's view of the inversion.
func New(group *comm.Group, opts Options) *Iterator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Iterator{
		group:   group,
		root:    group.IsRoot(),
		log:     logger.With("rank", group.Rank()),
		oracles: opts.Oracles,
		source:  opts.Source,
		snap:    opts.Snapshots,
		rng:     rand.New(rand.NewSource(opts.Seed + int64(group.Rank())*7919)),
	}
}

// Iteration returns the number of completed iterations.
func (it *Iterator) Iteration() int {
	return it.iiter
}

// Config returns the synchronized run configuration.
func (it *Iterator) Config() *Config { return it.cfg }

// Events returns the current event set.
func (it *Iterator) Events() []Event { return it.events }

// Arrivals returns the current arrival set.
func (it *Iterator) Arrivals() []Arrival { return it.arrivals }

// Stations returns the sanitized station set.
func (it *Iterator) Stations() []Station { return it.stations }

// SampledArrivals returns the most recent realization's
// arrival sample.
func (it *Iterator) SampledArrivals() []Arrival { return it.sampled }

// VoronoiCells returns the most recent realization's cell
// set.
func (it *Iterator) VoronoiCells() []geom.Vec3 { return it.voronoiCells }

// PwaveModel and SwaveModel return the live models.
func (it *Iterator) PwaveModel() *geom.Model { return it.pwaveModel }
func (it *Iterator) SwaveModel() *geom.Model { return it.swaveModel }

// PwaveVariance and SwaveVariance return the per-node
// ensemble variances of the most recent iteration.
func (it *Iterator) PwaveVariance() []float64 { return it.pwaveVariance }
func (it *Iterator) SwaveVariance() []float64 { return it.swaveVariance }

// model returns the live model for a phase.
func (it *Iterator) model(phase Phase) (*geom.Model, error) {
	switch phase {
	case PhaseP:
		return it.pwaveModel, nil
	case PhaseS:
		return it.swaveModel, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
}

// stationsByKey indexes the sanitized station set.
func (it *Iterator) stationsByKey() map[StationKey]Station {
	out := make(map[StationKey]Station, len(it.stations))
	for _, s := range it.stations {
		out[s.Key()] = s
	}
	return out
}

// LoadConfig parses the configuration file on the root and
// broadcasts it.
func (it *Iterator) LoadConfig(path string) error {
	it.log.Info("loading configuration", "path", path)
	if it.root {
		cfg, err := LoadConfig(path)
		if err != nil {
			return err
		}
		it.cfg = cfg
	}
	it.Synchronize(AttrConfig)
	return nil
}

// SetConfig installs an already-parsed configuration on
// the root and broadcasts it.
func (it *Iterator) SetConfig(cfg *Config) {
	if it.root {
		it.cfg = cfg
	}
	it.Synchronize(AttrConfig)
}

// LoadEventData reads events and arrivals on the root and
// broadcasts them.
func (it *Iterator) LoadEventData() error {
	it.log.Info("loading event data")
	if it.root {
		events, arrivals, err := it.source.EventData()
		if err != nil {
			return fmt.Errorf("load event data: %w", err)
		}
		it.events = events
		it.arrivals = arrivals
	}
	it.Synchronize(AttrEvents, AttrArrivals)
	return nil
}

// LoadNetworkGeometry reads the station set on the root
// and broadcasts it.
func (it *Iterator) LoadNetworkGeometry() error {
	it.log.Info("loading network geometry")
	if it.root {
		stations, err := it.source.NetworkGeometry()
		if err != nil {
			return fmt.Errorf("load network geometry: %w", err)
		}
		it.stations = stations
	}
	it.Synchronize(AttrStations)
	return nil
}

// LoadVelocityModels reads the starting models on the root
// and broadcasts them. The two models must share grid
// geometry; the geometry never changes afterwards.
func (it *Iterator) LoadVelocityModels() error {
	it.log.Info("loading velocity models")
	if it.root {
		pwave, swave, err := it.source.VelocityModels()
		if err != nil {
			return fmt.Errorf("load velocity models: %w", err)
		}
		if err := pwave.Validate(); err != nil {
			return err
		}
		if err := swave.Validate(); err != nil {
			return err
		}
		if !pwave.Grid.Equal(swave.Grid) {
			return ErrGridMismatch
		}
		it.pwaveModel = pwave
		it.swaveModel = swave
	}
	it.Synchronize(AttrPwaveModel, AttrSwaveModel)
	return nil
}

// SanitizeData drops duplicate stations and stations with
// no associated arrivals. Both are expected cleanup, not
// errors.
func (it *Iterator) SanitizeData() error {
	it.log.Info("sanitizing data")
	if it.root {
		seen := map[StationKey]bool{}
		withArrivals := map[StationKey]bool{}
		for _, a := range it.arrivals {
			withArrivals[a.StationKey()] = true
		}
		kept := make([]Station, 0, len(it.stations))
		dropped := 0
		pruned := 0
		for _, s := range it.stations {
			key := s.Key()
			if seen[key] {
				dropped++
				continue
			}
			seen[key] = true
			if !withArrivals[key] {
				pruned++
				continue
			}
			kept = append(kept, s)
		}
		if dropped > 0 {
			it.log.Info("dropped duplicate stations", "count", dropped)
		}
		if pruned > 0 {
			it.log.Info("pruned stations without arrivals", "count", pruned)
		}
		it.stations = kept
	}
	it.Synchronize(AttrStations)
	return nil
}

// Iterate executes one full iteration of the inversion:
// per phase, nreal realizations of sample, parameterize,
// project, assemble and update, then ensemble averaging,
// traveltime recomputation, event relocation, residual
// refresh and persistence.
//
// The iteration counter advances by exactly one. Iterate
// never decides to stop; the caller owns termination.
func (it *Iterator) Iterate() error {
	nreal := it.cfg.Algorithm.NReal
	it.iiter++
	it.log.Info("starting iteration", "iteration", it.iiter, "niter", it.cfg.Algorithm.NIter)

	for _, phase := range Phases {
		it.clearStack(phase)
		for ireal := 0; ireal < nreal; ireal++ {
			it.log.Info("realization", "phase", phase, "ireal", ireal+1, "nreal", nreal)
			if err := it.SampleArrivals(phase); err != nil {
				return err
			}
			if err := it.GenerateVoronoiCells(phase); err != nil {
				return err
			}
			if err := it.UpdateProjectionMatrix(); err != nil {
				return err
			}
			if err := it.ComputeSensitivityMatrix(phase, ModeVelocity); err != nil {
				return err
			}
			if err := it.ComputeModelUpdate(phase); err != nil {
				return err
			}
		}
	}
	if err := it.UpdateModels(); err != nil {
		return err
	}
	if err := it.ComputeTraveltimeLookupTables(); err != nil {
		return err
	}
	if err := it.RelocateEvents(); err != nil {
		return err
	}
	if err := it.UpdateArrivalResiduals(); err != nil {
		return err
	}
	return it.Save()
}

// Save persists the iteration's state. Root-only; workers
// return immediately.
func (it *Iterator) Save() error {
	if !it.root || it.snap == nil {
		return nil
	}
	it.log.Info("saving iteration state", "iteration", it.iiter)
	return it.snap.WriteIteration(&Snapshot{
		Iteration:     it.iiter,
		PwaveModel:    it.pwaveModel,
		SwaveModel:    it.swaveModel,
		PwaveStack:    it.pwaveStack,
		SwaveStack:    it.swaveStack,
		PwaveVariance: it.pwaveVariance,
		SwaveVariance: it.swaveVariance,
		Events:        it.events,
		Arrivals:      it.arrivals,
	})
}
