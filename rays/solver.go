// Package rays provides a straight-ray traveltime engine
// and a grid-search hypocenter locator. Rays are chords in
// Cartesian space; travel times integrate the model's
// slowness along the chord. The engine trades accuracy for
// simplicity and serves as the default numerical backend
// and as the reference implementation in tests.
package rays

import (
	"encoding/gob"
	"math"

	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/tomo"
)

func init() {
	gob.Register(&Field{})
}

// DefaultStep is the ray discretization step in kilometers.
const DefaultStep = 5.0

// Solver computes straight-ray traveltime fields.
type Solver struct {
	// Step is the ray discretization step in kilometers.
	// Zero means DefaultStep.
	Step float64
}

// Solve snapshots the model and returns a field rooted at
// the given source, in spherical coordinates.
func (s Solver) Solve(model *geom.Model, src geom.Vec3) (tomo.Field, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	step := s.Step
	if step <= 0 {
		step = DefaultStep
	}
	return &Field{
		Model:  model.Clone(),
		Source: src,
		Step:   step,
	}, nil
}

// A Field is a straight-ray traveltime field for one
// source. Fields are gob-encodable so they can be persisted
// between rounds.
type Field struct {
	Model  *geom.Model
	Source geom.Vec3
	Step   float64
}

// StepSize returns the ray discretization step in
// kilometers.
func (f *Field) StepSize() float64 { return f.Step }

// chord returns evenly spaced Cartesian points from the
// source to p, spaced as close to Step as an integer point
// count allows.
func (f *Field) chord(p geom.Vec3) []geom.Vec3 {
	a := geom.SphToXYZ(f.Source)
	b := geom.SphToXYZ(p)
	dist := b.Sub(a).Norm()
	n := int(math.Ceil(dist/f.Step)) + 1
	if n < 2 {
		n = 2
	}
	points := make([]geom.Vec3, n)
	for i := range points {
		frac := float64(i) / float64(n-1)
		points[i] = a.Add(b.Sub(a).Scale(frac))
	}
	return points
}

// Value evaluates the travel time from the source to p by
// trapezoidal integration of slowness along the chord.
func (f *Field) Value(p geom.Vec3) float64 {
	points := f.chord(p)
	a := geom.SphToXYZ(f.Source)
	b := geom.SphToXYZ(p)
	dist := b.Sub(a).Norm()
	if dist == 0 {
		return 0
	}
	ds := dist / float64(len(points)-1)

	total := 0.0
	for i, point := range points {
		slowness := 1 / f.Model.Interpolate(geom.XYZToSph(point))
		if i == 0 || i == len(points)-1 {
			slowness /= 2
		}
		total += slowness
	}
	return total * ds
}

// TraceRay returns the ray from the source to p as an
// ordered sequence of spherical points starting at the
// source.
func (f *Field) TraceRay(p geom.Vec3) ([]geom.Vec3, error) {
	points := f.chord(p)
	ray := make([]geom.Vec3, len(points))
	for i, point := range points {
		ray[i] = geom.XYZToSph(point)
	}
	return ray, nil
}
