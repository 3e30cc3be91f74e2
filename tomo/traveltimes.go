package tomo

import (
	"fmt"
	"sort"

	"github.com/seismon/vorotomo/comm"
)

// ComputeTraveltimeLookupTables solves the forward problem
// from every station for both phases against the current
// models and stores the resulting travel-time fields.
// Stations are dispatched as tasks so the solves run in
// parallel across workers.
func (it *Iterator) ComputeTraveltimeLookupTables() error {
	it.log.Info("computing travel-time lookup tables", "stations", len(it.stations))

	var tasks []StationKey
	if it.root {
		for _, station := range it.stations {
			tasks = append(tasks, station.Key())
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].less(tasks[j]) })
	}

	byKey := it.stationsByKey()
	comm.RunTasks(it.group, tasks, func(key StationKey) {
		station, ok := byKey[key]
		if !ok {
			panic(fmt.Sprintf("traveltime task references unknown station %s", key.ID()))
		}
		for _, phase := range Phases {
			model, err := it.model(phase)
			if err != nil {
				panic(err)
			}
			field, err := it.oracles.Solver.Solve(model, station.SphCoords())
			if err != nil {
				panic(fmt.Sprintf("solve %s %s: %v", key.ID(), phase, err))
			}
			fk := FieldKey{Network: key.Network, Station: key.Station, Phase: phase}
			if err := it.oracles.Fields.Put(fk, field); err != nil {
				panic(fmt.Sprintf("store field %s: %v", fk, err))
			}
		}
	})

	it.group.Barrier()
	return nil
}
