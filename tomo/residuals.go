package tomo

import (
	"fmt"
	"sort"

	"github.com/seismon/vorotomo/comm"
)

// UpdateArrivalResiduals recomputes every arrival's residual
// against the current travel-time fields and the relocated
// catalog. Distinct (station, phase) keys are dispatched as
// tasks; the refreshed arrival set replaces the previous one
// on every rank.
func (it *Iterator) UpdateArrivalResiduals() error {
	it.log.Info("updating arrival residuals", "arrivals", len(it.arrivals))

	byKey := map[ArrivalKey][]Arrival{}
	for _, a := range it.arrivals {
		byKey[a.Key()] = append(byKey[a.Key()], a)
	}

	var tasks []ArrivalKey
	if it.root {
		for key := range byKey {
			tasks = append(tasks, key)
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].less(tasks[j]) })
	}

	eventsByID := it.eventsByID()

	var updated []Arrival
	comm.RunTasks(it.group, tasks, func(key ArrivalKey) {
		field := it.mustField(FieldKey{Network: key.Network, Station: key.Station, Phase: key.Phase})
		for _, arrival := range byKey[key] {
			event, ok := eventsByID[arrival.EventID]
			if !ok {
				panic(fmt.Sprintf("arrival references unknown event %d", arrival.EventID))
			}
			predicted := event.Time + field.Value(event.SphCoords())
			arrival.Residual = arrival.Time - predicted
			updated = append(updated, arrival)
		}
	})

	parts := comm.Gather(it.group, updated, !it.root && len(updated) > 0)
	if it.root {
		var arrivals []Arrival
		for _, part := range parts {
			arrivals = append(arrivals, part...)
		}
		if len(arrivals) != len(it.arrivals) {
			return fmt.Errorf("tomo: refreshed %d of %d arrivals", len(arrivals), len(it.arrivals))
		}
		it.arrivals = arrivals
	}
	it.Synchronize(AttrArrivals)
	return nil
}
