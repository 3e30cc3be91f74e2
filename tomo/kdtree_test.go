package tomo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/seismon/vorotomo/geom"
	"github.com/stretchr/testify/require"
)

func randomSphPoint(rng *rand.Rand) geom.Vec3 {
	lat := -5 + 10*rng.Float64()
	lon := 100 + 10*rng.Float64()
	depth := 500 * rng.Float64()
	return geom.GeoToSph(lat, lon, depth)
}

func bruteNearest(cells []geom.Vec3, p geom.Vec3) int {
	q := geom.SphToXYZ(p)
	best := 0
	bestDist := math.Inf(1)
	for i, cell := range cells {
		d := geom.SphToXYZ(cell).Sub(q).Norm()
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func TestNearestCellMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	cells := make([]geom.Vec3, 50)
	for i := range cells {
		cells[i] = randomSphPoint(rng)
	}
	tree := newCellTree(cells)
	for trial := 0; trial < 200; trial++ {
		p := randomSphPoint(rng)
		require.Equal(t, bruteNearest(cells, p), nearestCell(tree, p))
	}
}

func TestProjectRayOntoCells(t *testing.T) {
	cells := []geom.Vec3{
		geom.GeoToSph(0, 100, 0),
		geom.GeoToSph(0, 105, 0),
		geom.GeoToSph(0, 110, 0),
	}
	tree := newCellTree(cells)

	// Three points hugging the first cell, one the third,
	// none the second.
	ray := []geom.Vec3{
		geom.GeoToSph(0.1, 100, 1),
		geom.GeoToSph(-0.1, 100, 2),
		geom.GeoToSph(0, 100.2, 0),
		geom.GeoToSph(0.1, 110, 5),
	}
	cols, counts := projectRayOntoCells(tree, ray)
	require.Equal(t, []int{0, 2}, cols)
	require.Equal(t, []int{3, 1}, counts)

	total := 0
	for _, c := range counts {
		total += c
	}
	require.Equal(t, len(ray), total)
}
