package rays

import (
	"errors"
	"fmt"
	"math"

	"github.com/seismon/vorotomo/geom"
	"github.com/seismon/vorotomo/tomo"
)

// ErrNoArrivals is returned by Locate when the locator has
// no observations to fit.
var ErrNoArrivals = errors.New("rays: locator has no arrivals")

// refinementRounds is the number of step-halving passes the
// local search runs after the coarse grid scan.
const refinementRounds = 4

// Locator performs a coarse scan over the model grid
// followed by a shrinking local search, fitting the origin
// time analytically at every candidate hypocenter.
type Locator struct {
	grid     geom.Grid
	stations map[string]geom.Vec3
	fields   tomo.FieldStore

	arrivals map[tomo.LocatorArrival]float64
	cache    map[tomo.LocatorArrival]tomo.Field
}

// NewLocator builds a Locator. It satisfies
// tomo.LocatorFactory.
func NewLocator(grid geom.Grid, stations map[string]geom.Vec3, fields tomo.FieldStore) (tomo.Locator, error) {
	return &Locator{
		grid:     grid,
		stations: stations,
		fields:   fields,
		arrivals: map[tomo.LocatorArrival]float64{},
		cache:    map[tomo.LocatorArrival]tomo.Field{},
	}, nil
}

// ClearArrivals drops the current observation set. Cached
// traveltime fields survive; they depend only on station
// and phase.
func (l *Locator) ClearArrivals() {
	l.arrivals = map[tomo.LocatorArrival]float64{}
}

// AddArrivals registers observed arrival times keyed by
// station and phase.
func (l *Locator) AddArrivals(arrivals map[tomo.LocatorArrival]float64) {
	for key, observed := range arrivals {
		l.arrivals[key] = observed
	}
}

func (l *Locator) field(key tomo.LocatorArrival) (tomo.Field, error) {
	if field, ok := l.cache[key]; ok {
		return field, nil
	}
	if _, ok := l.stations[key.StationID]; !ok {
		return nil, fmt.Errorf("rays: arrival references unknown station %q", key.StationID)
	}
	network, code, ok := splitStationID(key.StationID)
	if !ok {
		return nil, fmt.Errorf("rays: malformed station id %q", key.StationID)
	}
	field, err := l.fields.Get(tomo.FieldKey{Network: network, Station: code, Phase: key.Phase})
	if err != nil {
		return nil, err
	}
	l.cache[key] = field
	return field, nil
}

func splitStationID(id string) (network, station string, ok bool) {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return id[:i], id[i+1:], true
		}
	}
	return "", "", false
}

// evaluate fits the best origin time for a candidate
// hypocenter and returns it with the resulting RMS
// residual.
func (l *Locator) evaluate(p geom.Vec3) (time, rms float64, err error) {
	// The least-squares origin time is the mean of observed
	// minus predicted travel time.
	var sum float64
	traveltimes := make(map[tomo.LocatorArrival]float64, len(l.arrivals))
	for key, observed := range l.arrivals {
		field, err := l.field(key)
		if err != nil {
			return 0, 0, err
		}
		tt := field.Value(p)
		traveltimes[key] = tt
		sum += observed - tt
	}
	time = sum / float64(len(l.arrivals))

	var sq float64
	for key, observed := range l.arrivals {
		r := observed - (time + traveltimes[key])
		sq += r * r
	}
	return time, math.Sqrt(sq / float64(len(l.arrivals))), nil
}

// Locate searches for the hypocenter minimizing the RMS
// arrival-time residual. The search scans every grid node,
// then refines around the best node with the configured
// spatial steps, halving them each round. The origin time
// has a closed-form optimum at every candidate point, so
// the time step never enters the search.
func (l *Locator) Locate(steps tomo.LocateConfig) (tomo.Location, error) {
	if len(l.arrivals) == 0 {
		return tomo.Location{}, ErrNoArrivals
	}

	best := tomo.Location{RMS: math.Inf(1)}
	consider := func(p geom.Vec3) error {
		time, rms, err := l.evaluate(p)
		if err != nil {
			return err
		}
		if rms < best.RMS {
			best = tomo.Location{Coords: p, Time: time, RMS: rms}
		}
		return nil
	}

	for _, node := range l.grid.Nodes() {
		if err := consider(node); err != nil {
			return tomo.Location{}, err
		}
	}

	dlat, dlon, ddepth := steps.DLat, steps.DLon, steps.DDepth
	for round := 0; round < refinementRounds; round++ {
		lat, lon, depth := geom.SphToGeo(best.Coords)
		for _, dla := range []float64{-dlat, 0, dlat} {
			for _, dlo := range []float64{-dlon, 0, dlon} {
				for _, dde := range []float64{-ddepth, 0, ddepth} {
					if err := consider(geom.GeoToSph(lat+dla, lon+dlo, depth+dde)); err != nil {
						return tomo.Location{}, err
					}
				}
			}
		}
		dlat /= 2
		dlon /= 2
		ddepth /= 2
	}
	return best, nil
}
