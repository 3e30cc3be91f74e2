package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/rays"
	"github.com/seismon/vorotomo/tomo"
	"github.com/stretchr/testify/require"
)

func testModel() *geom.Model {
	grid := geom.Grid{
		Min:       geom.Vec3{6300, 1.5, 1.7},
		Intervals: geom.Vec3{10, 0.01, 0.01},
		Npts:      [3]int{4, 4, 4},
	}
	return geom.NewModel(grid, 6)
}

func TestFieldStoreRoundTrip(t *testing.T) {
	store, err := OpenFieldStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	model := testModel()
	src := geom.Vec3{6310, 1.51, 1.71}
	field, err := rays.Solver{Step: 1}.Solve(model, src)
	require.NoError(t, err)

	key := tomo.FieldKey{Network: "XX", Station: "STA1", Phase: tomo.PhaseP}
	require.NoError(t, store.Put(key, field))

	loaded, err := store.Get(key)
	require.NoError(t, err)

	p := geom.Vec3{6320, 1.52, 1.72}
	require.InDelta(t, field.Value(p), loaded.Value(p), 1e-12)
	require.Equal(t, field.StepSize(), loaded.StepSize())
}

func TestFieldStoreMissingKey(t *testing.T) {
	store, err := OpenFieldStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get(tomo.FieldKey{Network: "XX", Station: "NOPE", Phase: tomo.PhaseS})
	require.ErrorIs(t, err, tomo.ErrFieldNotFound)
}

func TestMemFieldStore(t *testing.T) {
	store := NewMemFieldStore()
	key := tomo.FieldKey{Network: "XX", Station: "STA1", Phase: tomo.PhaseP}
	_, err := store.Get(key)
	require.ErrorIs(t, err, tomo.ErrFieldNotFound)

	field, err := rays.Solver{}.Solve(testModel(), geom.Vec3{6310, 1.51, 1.71})
	require.NoError(t, err)
	require.NoError(t, store.Put(key, field))
	loaded, err := store.Get(key)
	require.NoError(t, err)
	require.Equal(t, field, loaded)
}

func TestDirWriterRoundTrip(t *testing.T) {
	writer, err := NewDirWriter(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)

	snap := &tomo.Snapshot{
		Iteration:     3,
		PwaveModel:    testModel(),
		SwaveModel:    testModel(),
		PwaveStack:    [][]float64{{1, 2}, {3, 4}},
		SwaveStack:    [][]float64{{5, 6}},
		PwaveVariance: []float64{0.1, 0.2},
		SwaveVariance: []float64{0.3, 0.4},
		Events:        []tomo.Event{{ID: 9, Latitude: 1}},
		Arrivals:      []tomo.Arrival{{Network: "XX", Station: "STA1", Phase: tomo.PhaseP}},
	}
	require.NoError(t, writer.WriteIteration(snap))

	// One iteration lands as four files: a model per phase,
	// the realization stacks, and the events/arrivals tables.
	for _, path := range []string{
		writer.ModelPath(3, tomo.PhaseP),
		writer.ModelPath(3, tomo.PhaseS),
		writer.RealizationsPath(3),
		writer.CatalogPath(3),
	} {
		_, err := os.Stat(path)
		require.NoError(t, err)
	}

	loaded, err := writer.ReadSnapshot(3)
	require.NoError(t, err)
	require.Equal(t, snap, loaded)

	// The P and S stacks stay distinct through persistence.
	require.NotEqual(t, loaded.PwaveStack, loaded.SwaveStack)

	// The realizations file carries the grid geometry.
	var real Realizations
	require.NoError(t, readGob(writer.RealizationsPath(3), &real))
	require.True(t, real.Grid.Equal(snap.PwaveModel.Grid))
	require.Equal(t, snap.PwaveVariance, real.PwaveVariance)

	// Saved model files use the starting-model encoding, so
	// a snapshot can seed the next run.
	source := CSVSource{
		PwavePath: writer.ModelPath(3, tomo.PhaseP),
		SwavePath: writer.ModelPath(3, tomo.PhaseS),
	}
	pwave, swave, err := source.VelocityModels()
	require.NoError(t, err)
	require.Equal(t, snap.PwaveModel, pwave)
	require.Equal(t, snap.SwaveModel, swave)
}

func TestCSVSource(t *testing.T) {
	dir := t.TempDir()
	write := func(name, contents string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
		return path
	}

	source := CSVSource{
		EventsPath: write("events.csv",
			"event_id,latitude,longitude,depth,time\n"+
				"1,46.1,-122.2,3.5,100.25\n"+
				"2,46.2,-122.1,8.0,230.75\n"),
		ArrivalsPath: write("arrivals.csv",
			"network,station,phase,event_id,time,residual\n"+
				"UW,STA1,P,1,104.5,0.1\n"+
				"UW,STA2,S,2,240.0,-0.2\n"),
		StationsPath: write("stations.csv",
			"station,network,latitude,longitude,depth\n"+
				"STA1,UW,46.0,-122.0,-1.2\n"),
		PwavePath: filepath.Join(dir, "pwave.gob"),
		SwavePath: filepath.Join(dir, "swave.gob"),
	}
	require.NoError(t, WriteModel(source.PwavePath, testModel()))
	require.NoError(t, WriteModel(source.SwavePath, testModel()))

	events, arrivals, err := source.EventData()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(2), events[1].ID)
	require.InDelta(t, 8.0, events[1].Depth, 1e-12)
	require.Len(t, arrivals, 2)
	require.Equal(t, tomo.PhaseS, arrivals[1].Phase)

	// Column order in stations.csv differs from the others;
	// by-name matching still applies.
	stations, err := source.NetworkGeometry()
	require.NoError(t, err)
	require.Len(t, stations, 1)
	require.Equal(t, "UW", stations[0].Network)
	require.Equal(t, "STA1", stations[0].Station)

	pwave, swave, err := source.VelocityModels()
	require.NoError(t, err)
	require.True(t, pwave.Grid.Equal(swave.Grid))
}

func TestCSVSourceMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("event_id,latitude\n1,46.1\n"), 0o644))
	source := CSVSource{EventsPath: path}
	_, _, err := source.EventData()
	require.Error(t, err)
}
