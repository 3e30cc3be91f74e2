package tomo

import "github.com/seismon/vorotomo/geom"

// A FieldKey names one persisted traveltime field.
type FieldKey struct {
	Network string
	Station string
	Phase   Phase
}

// String renders the key in its canonical "NET.STA.P" form.
func (k FieldKey) String() string {
	return k.Network + "." + k.Station + "." + string(k.Phase)
}

// A Field is a solved traveltime field for one station and
// phase. Implementations come from the external traveltime
// engine; the inversion only ever evaluates and traces.
type Field interface {
	// Value evaluates the travel time at a point in
	// spherical coordinates.
	Value(p geom.Vec3) float64

	// TraceRay returns the minimal-traveltime ray path
	// from the given point back to the field's source, as
	// an ordered sequence of spherical points starting at
	// the source.
	TraceRay(p geom.Vec3) ([]geom.Vec3, error)

	// StepSize returns the ray discretization step in
	// kilometers.
	StepSize() float64
}

// A TraveltimeSolver computes a traveltime field from a
// velocity model and a source location in spherical
// coordinates.
type TraveltimeSolver interface {
	Solve(model *geom.Model, src geom.Vec3) (Field, error)
}

// A FieldStore persists traveltime fields between rounds.
// Workers write fields during lookup-table recomputation
// and read them back while assembling matrices, relocating
// events and refreshing residuals.
type FieldStore interface {
	Put(key FieldKey, field Field) error
	Get(key FieldKey) (Field, error)
}

// A LocatorArrival keys one observation handed to the
// hypocenter locator.
type LocatorArrival struct {
	StationID string
	Phase     Phase
}

// A Location is the result of one hypocenter search.
type Location struct {
	// Coords is the hypocenter in spherical coordinates.
	Coords geom.Vec3

	// Time is the origin time.
	Time float64

	// RMS is the root-mean-square residual at the located
	// hypocenter.
	RMS float64
}

// A Locator is the external hypocenter search engine.
type Locator interface {
	ClearArrivals()
	AddArrivals(arrivals map[LocatorArrival]float64)
	Locate(steps LocateConfig) (Location, error)
}

// A LocatorFactory builds a Locator over the given model
// grid, station coordinates (spherical, keyed "NET.STA")
// and traveltime fields.
type LocatorFactory func(grid geom.Grid, stations map[string]geom.Vec3, fields FieldStore) (Locator, error)

// Oracles bundles the external numerical collaborators the
// engine consumes as black boxes.
type Oracles struct {
	Solver     TraveltimeSolver
	Fields     FieldStore
	NewLocator LocatorFactory
}

// A DataSource supplies the parsed input data sets. Only
// the root process reads from it; results are broadcast.
type DataSource interface {
	EventData() (events []Event, arrivals []Arrival, err error)
	NetworkGeometry() ([]Station, error)
	VelocityModels() (pwave, swave *geom.Model, err error)
}

// A Snapshot is everything the engine persists at the end
// of one iteration.
type Snapshot struct {
	Iteration int

	PwaveModel *geom.Model
	SwaveModel *geom.Model

	PwaveStack [][]float64
	SwaveStack [][]float64

	PwaveVariance []float64
	SwaveVariance []float64

	Events   []Event
	Arrivals []Arrival
}

// A SnapshotWriter persists per-iteration state. Only the
// root process writes snapshots.
type SnapshotWriter interface {
	WriteIteration(snap *Snapshot) error
}
