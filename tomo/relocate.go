package tomo

import (
	"fmt"
	"sort"

	"github.com/seismon/vorotomo/comm"
	"github.com/seismon/vorotomo/geom"
)

// RelocateEvents re-estimates every event's hypocenter and
// origin time against the current travel-time fields. Event
// IDs are dispatched as tasks; each worker builds a locator
// over the full station geometry and locates its assigned
// events using all of their arrivals. The relocated catalog
// replaces the previous one on every rank.
func (it *Iterator) RelocateEvents() error {
	it.log.Info("relocating events", "events", len(it.events))

	var tasks []int64
	if it.root {
		for _, event := range it.events {
			tasks = append(tasks, event.ID)
		}
		sort.Slice(tasks, func(i, j int) bool { return tasks[i] < tasks[j] })
	}

	eventsByID := it.eventsByID()
	byEvent := map[int64]map[LocatorArrival]float64{}
	for _, a := range it.arrivals {
		m, ok := byEvent[a.EventID]
		if !ok {
			m = map[LocatorArrival]float64{}
			byEvent[a.EventID] = m
		}
		m[LocatorArrival{StationID: a.StationKey().ID(), Phase: a.Phase}] = a.Time
	}

	var locator Locator
	if !it.root {
		stations := make(map[string]geom.Vec3, len(it.stations))
		for _, station := range it.stations {
			stations[station.Key().ID()] = station.SphCoords()
		}
		var err error
		locator, err = it.oracles.NewLocator(it.pwaveModel.Grid, stations, it.oracles.Fields)
		if err != nil {
			return err
		}
	}

	var relocated []Event
	comm.RunTasks(it.group, tasks, func(id int64) {
		old, ok := eventsByID[id]
		if !ok {
			panic(fmt.Sprintf("relocation task references unknown event %d", id))
		}
		locator.ClearArrivals()
		locator.AddArrivals(byEvent[id])
		location, err := locator.Locate(it.cfg.Locate)
		if err != nil {
			panic(fmt.Sprintf("locate event %d: %v", id, err))
		}
		lat, lon, depth := geom.SphToGeo(location.Coords)
		relocated = append(relocated, Event{
			ID:        old.ID,
			Latitude:  lat,
			Longitude: lon,
			Depth:     depth,
			Time:      location.Time,
			Residual:  location.RMS,
		})
	})

	parts := comm.Gather(it.group, relocated, !it.root && len(relocated) > 0)
	if it.root {
		var events []Event
		for _, part := range parts {
			events = append(events, part...)
		}
		sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
		if len(events) != len(it.events) {
			return fmt.Errorf("tomo: relocated %d of %d events", len(events), len(it.events))
		}
		it.events = events
	}
	it.Synchronize(AttrEvents)
	return nil
}
