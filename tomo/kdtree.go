package tomo

import (
	"github.com/seismon/vorotomo/geom"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// cellPoint is one Voronoi cell in the Cartesian frame,
// tagged with its column index.
type cellPoint struct {
	xyz   geom.Vec3
	index int
}

// Compare implements kdtree.Comparable.
func (p cellPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(cellPoint)
	return p.xyz[d] - q.xyz[d]
}

// Dims implements kdtree.Comparable.
func (p cellPoint) Dims() int { return 3 }

// Distance implements kdtree.Comparable using squared
// Euclidean distance.
func (p cellPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(cellPoint)
	d := p.xyz.Sub(q.xyz)
	return d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
}

// cellPoints satisfies kdtree.Interface.
type cellPoints []cellPoint

func (p cellPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p cellPoints) Len() int                              { return len(p) }
func (p cellPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p cellPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(cellPlane{cellPoints: p, Dim: d}, kdtree.MedianOfMedians(cellPlane{cellPoints: p, Dim: d}))
}

// cellPlane implements sort.Interface and kdtree.SortSlicer
// over one axis of a cellPoints collection.
type cellPlane struct {
	cellPoints
	kdtree.Dim
}

func (p cellPlane) Less(i, j int) bool {
	return p.cellPoints[i].xyz[p.Dim] < p.cellPoints[j].xyz[p.Dim]
}

func (p cellPlane) Slice(start, end int) kdtree.SortSlicer {
	return cellPlane{cellPoints: p.cellPoints[start:end], Dim: p.Dim}
}

func (p cellPlane) Swap(i, j int) {
	p.cellPoints[i], p.cellPoints[j] = p.cellPoints[j], p.cellPoints[i]
}

// newCellTree converts spherical cell coordinates to the
// Cartesian frame and indexes them for nearest-neighbor
// queries.
func newCellTree(cells []geom.Vec3) *kdtree.Tree {
	points := make(cellPoints, len(cells))
	for i, cell := range cells {
		points[i] = cellPoint{xyz: geom.SphToXYZ(cell), index: i}
	}
	return kdtree.New(points, true)
}

// nearestCell returns the index of the cell nearest a
// spherical-frame point.
func nearestCell(tree *kdtree.Tree, p geom.Vec3) int {
	got, _ := tree.Nearest(cellPoint{xyz: geom.SphToXYZ(p)})
	return got.(cellPoint).index
}
