package tomo

import (
	"fmt"
	"math"
	"sort"

	"github.com/seismon/vorotomo/comm"
	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/sparse"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// InversionMode selects what the sensitivity matrix
// differentiates travel time with respect to.
type InversionMode int

const (
	// ModeVelocity relates travel time to cell-resolution
	// slowness perturbations. The iteration loop always
	// uses it.
	ModeVelocity InversionMode = iota

	// ModeHypocenter relates travel time to per-event
	// (lat, lon, depth, origin-time) perturbations.
	//
	// The Frechet-derivative formula follows the original
	// formulation but has not been validated against a
	// reference implementation; treat results with care.
	ModeHypocenter
)

// sensitivityPart is one worker's accumulated slice of the
// matrix: parallel arrays of column indices and values,
// the number of entries contributed by each observation,
// and each observation's residual.
type sensitivityPart struct {
	Cols      []int
	Vals      []float64
	Segments  []int
	Residuals []float64
}

// ComputeSensitivityMatrix assembles the sparse matrix
// relating the sampled observations to the model
// parameterization, together with the paired residual
// vector. Stations are dispatched as tasks; each worker
// traces every sampled ray recorded at its assigned
// stations and projects it onto the parameterization.
func (it *Iterator) ComputeSensitivityMatrix(phase Phase, mode InversionMode) error {
	it.log.Info("computing sensitivity matrix", "phase", phase)

	model, err := it.model(phase)
	if err != nil {
		return err
	}

	byStation := map[StationKey][]Arrival{}
	for _, a := range it.sampled {
		byStation[a.StationKey()] = append(byStation[a.StationKey()], a)
	}

	var tasks []StationKey
	if it.root {
		for key := range byStation {
			tasks = append(tasks, key)
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].less(tasks[j]) })
	}

	// Worker-local assembly state.
	var part sensitivityPart
	var tree *kdtree.Tree
	if mode == ModeVelocity && !it.root {
		tree = newCellTree(it.voronoiCells)
	}
	eventsByID := it.eventsByID()
	eventOrdinals := it.eventOrdinals()

	comm.RunTasks(it.group, tasks, func(key StationKey) {
		field := it.mustField(FieldKey{Network: key.Network, Station: key.Station, Phase: phase})
		for _, arrival := range byStation[key] {
			event, ok := eventsByID[arrival.EventID]
			if !ok {
				panic(fmt.Sprintf("sampled arrival references unknown event %d", arrival.EventID))
			}
			ray, err := field.TraceRay(event.SphCoords())
			if err != nil {
				panic(fmt.Sprintf("trace ray for event %d at %s: %v", event.ID, key.ID(), err))
			}
			switch mode {
			case ModeVelocity:
				cols, counts := projectRayOntoCells(tree, ray)
				for i, col := range cols {
					part.Cols = append(part.Cols, col)
					part.Vals = append(part.Vals, float64(counts[i])*field.StepSize())
				}
				part.Segments = append(part.Segments, len(cols))
			case ModeHypocenter:
				cols, vals := hypocenterSensitivity(eventOrdinals[event.ID], event.SphCoords(), ray, model)
				part.Cols = append(part.Cols, cols...)
				part.Vals = append(part.Vals, vals...)
				part.Segments = append(part.Segments, len(cols))
			}
			part.Residuals = append(part.Residuals, arrival.Residual)
		}
	})

	parts := comm.Gather(it.group, part, !it.root)
	if it.root {
		it.log.Debug("compiling sensitivity matrix")
		ncols := it.cfg.Algorithm.NVoronoi
		if mode == ModeHypocenter {
			ncols = 4 * len(it.events)
		}

		var cols []int
		var vals, residuals []float64
		var segments []int
		for _, p := range parts {
			cols = append(cols, p.Cols...)
			vals = append(vals, p.Vals...)
			segments = append(segments, p.Segments...)
			residuals = append(residuals, p.Residuals...)
		}

		// Expand per-observation entry counts into explicit
		// row indices: row i repeats segments[i] times.
		matrix := sparse.New(len(segments), ncols)
		entry := 0
		for row, nsegments := range segments {
			for s := 0; s < nsegments; s++ {
				matrix.Append(row, cols[entry], vals[entry])
				entry++
			}
		}
		if entry != len(cols) {
			return fmt.Errorf("tomo: gathered %d matrix entries but segment counts cover %d", len(cols), entry)
		}
		it.sensitivity = matrix
		it.residuals = residuals
	}
	it.group.Barrier()
	return nil
}

// eventOrdinals maps event IDs to their dense index in
// ID order, used for hypocenter-mode parameter blocks.
func (it *Iterator) eventOrdinals() map[int64]int {
	ids := make([]int64, 0, len(it.events))
	for _, e := range it.events {
		ids = append(ids, e.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make(map[int64]int, len(ids))
	for ordinal, id := range ids {
		out[id] = ordinal
	}
	return out
}

// projectRayOntoCells assigns every discretization point of
// a ray to its nearest Voronoi cell and returns, per
// distinct cell visited in ascending column order, the
// number of points inside it. Multiplying the counts by the
// ray step size yields per-cell path lengths.
func projectRayOntoCells(tree *kdtree.Tree, ray []geom.Vec3) (cols []int, counts []int) {
	hits := map[int]int{}
	for _, p := range ray {
		hits[nearestCell(tree, p)]++
	}
	cols = make([]int, 0, len(hits))
	for col := range hits {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	counts = make([]int, len(cols))
	for i, col := range cols {
		counts[i] = hits[col]
	}
	return cols, counts
}

// hypocenterSensitivity forms the four-component Frechet
// derivative of travel time with respect to the event's
// latitude, longitude, depth and origin time: the spatial
// components are the slowness at the hypocenter projected
// onto the ray's final (station-ward) unit direction, and
// the time component is -1.
func hypocenterSensitivity(ordinal int, eventCoords geom.Vec3, ray []geom.Vec3, model *geom.Model) (cols []int, vals []float64) {
	if len(ray) < 2 {
		panic(fmt.Sprintf("ray for event ordinal %d has %d points; need at least 2", ordinal, len(ray)))
	}
	last := ray[len(ray)-1]
	prev := ray[len(ray)-2]

	// Local metric deltas at the event end of the ray.
	dpos := [3]float64{
		last[0] - prev[0],
		last[0] * (last[1] - prev[1]),
		last[0] * (last[2] - prev[2]) * math.Cos(last[1]),
	}
	norm := math.Sqrt(dpos[0]*dpos[0] + dpos[1]*dpos[1] + dpos[2]*dpos[2])
	if norm == 0 {
		panic(fmt.Sprintf("degenerate final ray segment for event ordinal %d", ordinal))
	}

	velocity := model.Interpolate(eventCoords)

	cols = make([]int, 4)
	vals = make([]float64, 4)
	for i := 0; i < 3; i++ {
		cols[i] = 4*ordinal + i
		vals[i] = dpos[i] / norm / velocity
	}
	cols[3] = 4*ordinal + 3
	vals[3] = -1
	return cols, vals
}
