package geom

import (
	"fmt"
	"math"
)

// A Grid is a regular 3-D grid over a spherical coordinate
// domain. The geometry is fixed once loaded: the P and S
// models of an inversion share one Grid, and only model
// values ever change between iterations.
type Grid struct {
	// Min holds the minimum coordinate on each axis.
	Min Vec3

	// Intervals holds the node spacing on each axis.
	Intervals Vec3

	// Npts holds the node count on each axis.
	Npts [3]int
}

// Max returns the maximum coordinate on each axis.
func (g Grid) Max() Vec3 {
	var out Vec3
	for axis := 0; axis < 3; axis++ {
		out[axis] = g.Min[axis] + g.Intervals[axis]*float64(g.Npts[axis]-1)
	}
	return out
}

// NumNodes returns the total number of grid nodes.
func (g Grid) NumNodes() int {
	return g.Npts[0] * g.Npts[1] * g.Npts[2]
}

// FlatIndex returns the position of node (i, j, k) in a
// flattened value array, with the last axis varying fastest.
func (g Grid) FlatIndex(i, j, k int) int {
	return (i*g.Npts[1]+j)*g.Npts[2] + k
}

// Node returns the coordinates of node (i, j, k).
func (g Grid) Node(i, j, k int) Vec3 {
	return Vec3{
		g.Min[0] + g.Intervals[0]*float64(i),
		g.Min[1] + g.Intervals[1]*float64(j),
		g.Min[2] + g.Intervals[2]*float64(k),
	}
}

// Nodes returns the coordinates of every node in flat
// order.
func (g Grid) Nodes() []Vec3 {
	out := make([]Vec3, 0, g.NumNodes())
	for i := 0; i < g.Npts[0]; i++ {
		for j := 0; j < g.Npts[1]; j++ {
			for k := 0; k < g.Npts[2]; k++ {
				out = append(out, g.Node(i, j, k))
			}
		}
	}
	return out
}

// Equal reports whether two grids have identical geometry.
func (g Grid) Equal(other Grid) bool {
	return g.Min == other.Min && g.Intervals == other.Intervals && g.Npts == other.Npts
}

// A Model is a dense scalar field sampled on a Grid. The
// inversion engine uses it for wave velocities, one model
// per phase.
type Model struct {
	Grid   Grid
	Values []float64
}

// NewModel allocates a model with all values set to value.
func NewModel(grid Grid, value float64) *Model {
	values := make([]float64, grid.NumNodes())
	for i := range values {
		values[i] = value
	}
	return &Model{Grid: grid, Values: values}
}

// Validate checks that the value array matches the grid.
func (m *Model) Validate() error {
	if len(m.Values) != m.Grid.NumNodes() {
		return fmt.Errorf("model has %d values for %d grid nodes", len(m.Values), m.Grid.NumNodes())
	}
	return nil
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	values := make([]float64, len(m.Values))
	copy(values, m.Values)
	return &Model{Grid: m.Grid, Values: values}
}

// Interpolate evaluates the field at an arbitrary point by
// trilinear interpolation. Points outside the grid are
// clamped to its boundary.
func (m *Model) Interpolate(p Vec3) float64 {
	var idx [3]int
	var frac [3]float64
	for axis := 0; axis < 3; axis++ {
		t := (p[axis] - m.Grid.Min[axis]) / m.Grid.Intervals[axis]
		t = math.Max(0, math.Min(t, float64(m.Grid.Npts[axis]-1)))
		i := int(t)
		if i > m.Grid.Npts[axis]-2 {
			i = m.Grid.Npts[axis] - 2
		}
		if i < 0 {
			i = 0
		}
		idx[axis] = i
		frac[axis] = t - float64(i)
	}
	var value float64
	for di := 0; di < 2; di++ {
		for dj := 0; dj < 2; dj++ {
			for dk := 0; dk < 2; dk++ {
				w := weight(frac[0], di) * weight(frac[1], dj) * weight(frac[2], dk)
				if w == 0 {
					continue
				}
				flat := m.Grid.FlatIndex(idx[0]+di, idx[1]+dj, idx[2]+dk)
				value += w * m.Values[flat]
			}
		}
	}
	return value
}

func weight(frac float64, upper int) float64 {
	if upper == 1 {
		return frac
	}
	return 1 - frac
}
