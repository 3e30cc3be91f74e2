package tomo

import (
	"github.com/seismon/vorotomo/sparse"
)

// UpdateProjectionMatrix rebuilds the node-to-cell
// incidence matrix from the current Voronoi cells: row n
// has a single 1 in the column of the cell nearest grid
// node n. The nearest-neighbor query runs in the Cartesian
// frame. The matrix is part of the synchronized shared
// state even though only the root reads it.
func (it *Iterator) UpdateProjectionMatrix() error {
	if it.root {
		it.log.Debug("updating projection matrix")
		nvoronoi := it.cfg.Algorithm.NVoronoi
		tree := newCellTree(it.voronoiCells)
		grid := it.pwaveModel.Grid
		matrix := sparse.New(grid.NumNodes(), nvoronoi)
		for flat, node := range grid.Nodes() {
			matrix.Append(flat, nearestCell(tree, node), 1)
		}
		it.projection = matrix
	}
	it.Synchronize(AttrProjection)
	return nil
}
