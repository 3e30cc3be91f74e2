package rays

import (
	"testing"

	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/tomo"
	"github.com/stretchr/testify/require"
)

func uniformModel(velocity float64) *geom.Model {
	// Polar angle grows southward, so the grid anchors at
	// the northernmost latitude and the surface radius.
	grid := geom.Grid{
		Min:       geom.GeoToSph(1.4, 1, 0),
		Intervals: geom.Vec3{25, 0.005, 0.005},
		Npts:      [3]int{8, 8, 8},
	}
	grid.Min[0] -= grid.Intervals[0] * float64(grid.Npts[0]-1)
	return geom.NewModel(grid, velocity)
}

func TestFieldValueUniformVelocity(t *testing.T) {
	model := uniformModel(6)
	src := geom.GeoToSph(1.05, 1.05, 10)
	field, err := Solver{Step: 1}.Solve(model, src)
	require.NoError(t, err)

	p := geom.GeoToSph(1.25, 1.2, 150)
	dist := geom.SphToXYZ(p).Sub(geom.SphToXYZ(src)).Norm()
	require.InDelta(t, dist/6, field.Value(p), 1e-6*dist)
	require.Equal(t, 0.0, field.Value(src))
}

func TestTraceRayEndpoints(t *testing.T) {
	model := uniformModel(6)
	src := geom.GeoToSph(1.05, 1.05, 10)
	field, err := Solver{Step: 2}.Solve(model, src)
	require.NoError(t, err)

	p := geom.GeoToSph(1.3, 1.25, 120)
	ray, err := field.TraceRay(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(ray), 2)

	// Ordered source to query.
	require.InDelta(t, 0, ray[0].Sub(src).Norm(), 1e-6)
	require.InDelta(t, 0, ray[len(ray)-1].Sub(p).Norm(), 1e-6)

	// Spacing close to the nominal step.
	a := geom.SphToXYZ(ray[0])
	b := geom.SphToXYZ(ray[1])
	require.InDelta(t, 2, b.Sub(a).Norm(), 0.5)
}

func TestLocatorRecoversSyntheticEvent(t *testing.T) {
	model := uniformModel(6)
	solver := Solver{Step: 1}

	stations := map[string]geom.Vec3{
		"XX.A": geom.GeoToSph(1.02, 1.03, 0),
		"XX.B": geom.GeoToSph(1.3, 1.05, 0),
		"XX.C": geom.GeoToSph(1.1, 1.3, 0),
		"XX.D": geom.GeoToSph(1.28, 1.3, 5),
	}
	fields := newMemStore()
	for id, coords := range stations {
		network, code, ok := splitStationID(id)
		require.True(t, ok)
		field, err := solver.Solve(model, coords)
		require.NoError(t, err)
		key := tomo.FieldKey{Network: network, Station: code, Phase: tomo.PhaseP}
		require.NoError(t, fields.Put(key, field))
	}

	// Synthesize arrivals from a known hypocenter.
	trueCoords := geom.GeoToSph(1.15, 1.15, 80)
	trueTime := 12.5
	arrivals := map[tomo.LocatorArrival]float64{}
	for id := range stations {
		key := tomo.LocatorArrival{StationID: id, Phase: tomo.PhaseP}
		field, err := locatorField(fields, key)
		require.NoError(t, err)
		arrivals[key] = trueTime + field.Value(trueCoords)
	}

	locator, err := NewLocator(model.Grid, stations, fields)
	require.NoError(t, err)
	locator.AddArrivals(arrivals)

	// Steps sized to bridge the coarse grid spacing of
	// roughly 0.29 degrees and 25 km.
	location, err := locator.Locate(tomo.LocateConfig{
		DLat: 0.1, DLon: 0.1, DDepth: 10, DTime: 1,
	})
	require.NoError(t, err)
	require.Less(t, location.RMS, 0.5)
	require.InDelta(t, trueTime, location.Time, 1.0)

	lat, lon, depth := geom.SphToGeo(location.Coords)
	require.InDelta(t, 1.15, lat, 0.1)
	require.InDelta(t, 1.15, lon, 0.1)
	require.InDelta(t, 80, depth, 30)
}

func TestLocateWithoutArrivals(t *testing.T) {
	model := uniformModel(6)
	locator, err := NewLocator(model.Grid, map[string]geom.Vec3{}, newMemStore())
	require.NoError(t, err)
	_, err = locator.Locate(tomo.LocateConfig{DLat: 0.1, DLon: 0.1, DDepth: 10, DTime: 1})
	require.ErrorIs(t, err, ErrNoArrivals)
}

// memStore is a test-local in-memory field store.
type memStore struct {
	fields map[tomo.FieldKey]tomo.Field
}

func newMemStore() *memStore {
	return &memStore{fields: map[tomo.FieldKey]tomo.Field{}}
}

func (s *memStore) Put(key tomo.FieldKey, field tomo.Field) error {
	s.fields[key] = field
	return nil
}

func (s *memStore) Get(key tomo.FieldKey) (tomo.Field, error) {
	field, ok := s.fields[key]
	if !ok {
		return nil, tomo.ErrFieldNotFound
	}
	return field, nil
}

func locatorField(store tomo.FieldStore, key tomo.LocatorArrival) (tomo.Field, error) {
	network, code, _ := splitStationID(key.StationID)
	return store.Get(tomo.FieldKey{Network: network, Station: code, Phase: key.Phase})
}
