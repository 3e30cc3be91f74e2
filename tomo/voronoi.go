package tomo

import (
	"fmt"
	"sort"

	"github.com/seismon/vorotomo/comm"
	"github.com/seismon/vorotomo/geom"
)

// GenerateVoronoiCells regenerates the realization's
// spatial parameterization, either uniformly at random or
// adaptively along sampled ray paths, per configuration.
// The resulting cell set is synchronized before use.
func (it *Iterator) GenerateVoronoiCells(phase Phase) error {
	if it.cfg.Algorithm.AdaptiveVoronoi {
		return it.generateVoronoiCellsAdaptive(phase)
	}
	return it.generateVoronoiCellsRandom()
}

// generateVoronoiCellsRandom draws nvoronoi points
// uniformly at random inside the model bounding box.
func (it *Iterator) generateVoronoiCellsRandom() error {
	if it.root {
		min := it.pwaveModel.Grid.Min
		max := it.pwaveModel.Grid.Max()
		nvoronoi := it.cfg.Algorithm.NVoronoi
		cells := make([]geom.Vec3, nvoronoi)
		for i := range cells {
			for axis := 0; axis < 3; axis++ {
				cells[i][axis] = min[axis] + it.rng.Float64()*(max[axis]-min[axis])
			}
		}
		it.voronoiCells = cells
	}
	it.Synchronize(AttrVoronoi)
	return nil
}

// An adaptiveSeedTask asks a worker to seed one cell along
// the ray to each listed event, using the named station's
// traveltime field.
type adaptiveSeedTask struct {
	Key      StationKey
	EventIDs []int64
}

// generateVoronoiCellsAdaptive seeds cells along the ray
// paths of nvoronoi arrivals sampled from the current
// realization's sample, concentrating resolution where ray
// density is highest.
func (it *Iterator) generateVoronoiCellsAdaptive(phase Phase) error {
	nvoronoi := it.cfg.Algorithm.NVoronoi

	var tasks []adaptiveSeedTask
	if it.root {
		if len(it.sampled) < nvoronoi {
			return fmt.Errorf("%w: %d sampled arrivals for nvoronoi=%d",
				ErrCellCount, len(it.sampled), nvoronoi)
		}
		byStation := map[StationKey][]int64{}
		for _, idx := range it.rng.Perm(len(it.sampled))[:nvoronoi] {
			a := it.sampled[idx]
			byStation[a.StationKey()] = append(byStation[a.StationKey()], a.EventID)
		}
		for key, ids := range byStation {
			tasks = append(tasks, adaptiveSeedTask{Key: key, EventIDs: ids})
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Key.less(tasks[j].Key) })
	}

	eventsByID := it.eventsByID()
	var cells []geom.Vec3
	comm.RunTasks(it.group, tasks, func(task adaptiveSeedTask) {
		field := it.mustField(FieldKey{Network: task.Key.Network, Station: task.Key.Station, Phase: phase})
		for _, id := range task.EventIDs {
			event, ok := eventsByID[id]
			if !ok {
				panic(fmt.Sprintf("adaptive seeding references unknown event %d", id))
			}
			ray, err := field.TraceRay(event.SphCoords())
			if err != nil {
				panic(fmt.Sprintf("trace ray for event %d at %s: %v", id, task.Key.ID(), err))
			}
			cells = append(cells, ray[it.rng.Intn(len(ray))])
		}
	})

	gathered := comm.Gather(it.group, cells, !it.root && len(cells) > 0)
	if it.root {
		var all []geom.Vec3
		for _, part := range gathered {
			all = append(all, part...)
		}
		if len(all) != nvoronoi {
			return fmt.Errorf("%w: seeded %d cells, want %d", ErrCellCount, len(all), nvoronoi)
		}
		it.voronoiCells = all
	}
	it.Synchronize(AttrVoronoi)
	return nil
}

// eventsByID indexes the current event set.
func (it *Iterator) eventsByID() map[int64]Event {
	out := make(map[int64]Event, len(it.events))
	for _, e := range it.events {
		out[e.ID] = e
	}
	return out
}

// mustField loads a traveltime field or aborts the run. A
// missing field means the lookup-table round did not do its
// job, which invalidates the whole group's state.
func (it *Iterator) mustField(key FieldKey) Field {
	field, err := it.oracles.Fields.Get(key)
	if err != nil {
		panic(fmt.Sprintf("load traveltime field %s: %v", key, err))
	}
	return field
}
