package tomo

import (
	"sort"
	"testing"

	"github.com/seismon/vorotomo/comm"
	"github.com/seismon/vorotomo/geom"
	"github.com/stretchr/testify/require"
)

// stubField replays a fixed ray path.
type stubField struct {
	ray  []geom.Vec3
	step float64
}

func (f stubField) Value(geom.Vec3) float64                 { return 0 }
func (f stubField) TraceRay(geom.Vec3) ([]geom.Vec3, error) { return f.ray, nil }
func (f stubField) StepSize() float64                       { return f.step }

type stubFieldStore map[FieldKey]Field

func (s stubFieldStore) Put(key FieldKey, field Field) error {
	s[key] = field
	return nil
}

func (s stubFieldStore) Get(key FieldKey) (Field, error) {
	field, ok := s[key]
	if !ok {
		return nil, ErrFieldNotFound
	}
	return field, nil
}

// rayThrough spreads n points radially across the test
// grid, so a traced ray visits several cells.
func rayThrough(n int) []geom.Vec3 {
	ray := make([]geom.Vec3, n)
	for i := range ray {
		frac := float64(i) / float64(n-1)
		ray[i] = geom.Vec3{6302 + 26*frac, 1.505 + 0.02*frac, 1.705 + 0.02*frac}
	}
	return ray
}

func TestComputeSensitivityMatrixVelocityMode(t *testing.T) {
	cells := []geom.Vec3{
		{6305, 1.505, 1.705},
		{6315, 1.515, 1.715},
		{6325, 1.525, 1.725},
	}
	// Distinct ray lengths per station, distinct residuals
	// per observation, so rows are identifiable regardless
	// of which worker assembled them.
	fields := stubFieldStore{}
	fields[FieldKey{Network: "XX", Station: "STA1", Phase: PhaseP}] = stubField{ray: rayThrough(7), step: 2}
	fields[FieldKey{Network: "XX", Station: "STA2", Phase: PhaseP}] = stubField{ray: rayThrough(5), step: 2}
	sampled := []Arrival{
		{Network: "XX", Station: "STA1", Phase: PhaseP, EventID: 1, Residual: 0.25},
		{Network: "XX", Station: "STA2", Phase: PhaseP, EventID: 1, Residual: -0.5},
		{Network: "XX", Station: "STA1", Phase: PhaseP, EventID: 2, Residual: 1.5},
	}

	loop := comm.NewLoop()
	size := 3
	iterators := make([]*Iterator, size)
	errs := make([]error, size)
	comm.SpawnGroup(loop, size, func(g *comm.Group) {
		it := New(g, Options{
			Oracles: Oracles{Fields: fields},
			Logger:  quietLogger(),
			Seed:    11,
		})
		iterators[g.Rank()] = it
		if g.IsRoot() {
			it.cfg = &Config{Algorithm: AlgorithmConfig{NVoronoi: len(cells)}}
			it.events = []Event{
				{ID: 1, Latitude: 46.1, Longitude: -122.2, Depth: 10},
				{ID: 2, Latitude: 46.2, Longitude: -122.3, Depth: 15},
			}
			it.sampled = sampled
			it.voronoiCells = cells
			it.pwaveModel = geom.NewModel(testGrid(), 6)
		}
		it.Synchronize(AttrConfig, AttrEvents, AttrSampled, AttrVoronoi, AttrPwaveModel)
		errs[g.Rank()] = it.ComputeSensitivityMatrix(PhaseP, ModeVelocity)
	})
	require.NoError(t, loop.Run())
	for rank, err := range errs {
		require.NoError(t, err, "rank %d", rank)
	}

	// One row per sampled observation, one column per cell,
	// residuals paired row for row.
	root := iterators[0]
	nrows, ncols := root.sensitivity.Dims()
	require.Equal(t, len(sampled), nrows)
	require.Equal(t, len(cells), ncols)
	require.Len(t, root.residuals, nrows)

	// Each row sums to its ray's traced length: point count
	// times the field's step size.
	lengths := map[float64]float64{0.25: 7 * 2.0, -0.5: 5 * 2.0, 1.5: 7 * 2.0}
	sums := root.sensitivity.RowSums()
	for i, residual := range root.residuals {
		require.InDelta(t, lengths[residual], sums[i], 1e-9)
	}

	// Every sampled residual landed in the vector.
	got := append([]float64(nil), root.residuals...)
	sort.Float64s(got)
	require.Equal(t, []float64{-0.5, 0.25, 1.5}, got)
}

func TestHypocenterSensitivity(t *testing.T) {
	grid := geom.Grid{
		Min:       geom.Vec3{6200, 1.4, 1.6},
		Intervals: geom.Vec3{50, 0.05, 0.05},
		Npts:      [3]int{5, 5, 5},
	}
	model := geom.NewModel(grid, 5)

	event := geom.Vec3{6301, 1.5, 1.7}
	// Purely radial final segment, so the derivative has no
	// angular components.
	ray := []geom.Vec3{
		{6250, 1.5, 1.7},
		{6300, 1.5, 1.7},
		{6301, 1.5, 1.7},
	}
	cols, vals := hypocenterSensitivity(2, event, ray, model)
	require.Equal(t, []int{8, 9, 10, 11}, cols)
	require.InDelta(t, 1.0/5, vals[0], 1e-12)
	require.InDelta(t, 0, vals[1], 1e-12)
	require.InDelta(t, 0, vals[2], 1e-12)
	require.Equal(t, -1.0, vals[3])
}

func TestHypocenterSensitivityShortRay(t *testing.T) {
	grid := geom.Grid{
		Min:       geom.Vec3{6200, 1.4, 1.6},
		Intervals: geom.Vec3{50, 0.05, 0.05},
		Npts:      [3]int{5, 5, 5},
	}
	model := geom.NewModel(grid, 5)
	require.Panics(t, func() {
		hypocenterSensitivity(0, geom.Vec3{6250, 1.5, 1.7}, []geom.Vec3{{6250, 1.5, 1.7}}, model)
	})
}
