package tomo

import (
	"testing"

	"github.com/seismon/vorotomo/comm"
	"github.com/seismon/vorotomo/geom"
	"github.com/stretchr/testify/require"
)

func TestUpdateProjectionMatrix(t *testing.T) {
	grid := testGrid()
	cells := []geom.Vec3{
		{6300, 1.5, 1.7},
		{6330, 1.53, 1.73},
		{6315, 1.5, 1.73},
	}

	loop := comm.NewLoop()
	size := 2
	iterators := make([]*Iterator, size)
	comm.SpawnGroup(loop, size, func(g *comm.Group) {
		it := New(g, Options{Logger: quietLogger(), Seed: 1})
		iterators[g.Rank()] = it
		if g.IsRoot() {
			it.cfg = &Config{Algorithm: AlgorithmConfig{NVoronoi: len(cells)}}
			it.pwaveModel = geom.NewModel(grid, 6)
			it.voronoiCells = cells
		}
		it.Synchronize(AttrConfig, AttrPwaveModel, AttrVoronoi)
		if err := it.UpdateProjectionMatrix(); err != nil {
			t.Errorf("rank %d: %v", g.Rank(), err)
		}
	})
	require.NoError(t, loop.Run())

	for rank, it := range iterators {
		nrows, ncols := it.projection.Dims()
		require.Equal(t, grid.NumNodes(), nrows, "rank %d", rank)
		require.Equal(t, len(cells), ncols, "rank %d", rank)
		require.Equal(t, grid.NumNodes(), it.projection.NNZ(), "rank %d", rank)

		// Each node maps, with weight one, to exactly its
		// nearest cell.
		nodes := grid.Nodes()
		seen := make([]bool, nrows)
		for i := 0; i < it.projection.NNZ(); i++ {
			row, col, val := it.projection.Entry(i)
			require.False(t, seen[row], "rank %d node %d has multiple entries", rank, row)
			seen[row] = true
			require.Equal(t, 1.0, val, "rank %d node %d", rank, row)
			require.Equal(t, bruteNearest(cells, nodes[row]), col, "rank %d node %d", rank, row)
		}
	}
}
