package tomo

import (
	"fmt"

	"github.com/seismon/vorotomo/geom"
)

// Phase is a seismic wave type. Each phase has its own
// velocity model.
type Phase string

const (
	// PhaseP is the compressional wave phase.
	PhaseP Phase = "P"
	// PhaseS is the shear wave phase.
	PhaseS Phase = "S"
)

// Phases lists every phase the engine inverts for, in the
// order the iteration loop visits them.
var Phases = []Phase{PhaseP, PhaseS}

// ParsePhase validates a phase label.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseP, PhaseS:
		return Phase(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

// A StationKey identifies a station within its network.
type StationKey struct {
	Network string
	Station string
}

// ID returns the "NET.STA" form used by locators and
// traveltime stores.
func (k StationKey) ID() string {
	return k.Network + "." + k.Station
}

// less orders station keys lexicographically.
func (k StationKey) less(other StationKey) bool {
	if k.Network != other.Network {
		return k.Network < other.Network
	}
	return k.Station < other.Station
}

// An ArrivalKey identifies one (station, phase) group of
// arrivals, the task unit of the residual refresh round.
type ArrivalKey struct {
	Network string
	Station string
	Phase   Phase
}

func (k ArrivalKey) less(other ArrivalKey) bool {
	if k.Network != other.Network {
		return k.Network < other.Network
	}
	if k.Station != other.Station {
		return k.Station < other.Station
	}
	return k.Phase < other.Phase
}

// A Station is a fixed sensor location. Stations are
// static after sanitization.
type Station struct {
	Network   string
	Station   string
	Latitude  float64
	Longitude float64
	Depth     float64
}

// Key returns the station's identity.
func (s Station) Key() StationKey {
	return StationKey{Network: s.Network, Station: s.Station}
}

// SphCoords returns the station location in spherical
// coordinates.
func (s Station) SphCoords() geom.Vec3 {
	return geom.GeoToSph(s.Latitude, s.Longitude, s.Depth)
}

// An Event is a seismic source. It is relocated every
// iteration against the current models; Residual holds the
// RMS misfit of its most recent location.
type Event struct {
	ID        int64
	Latitude  float64
	Longitude float64
	Depth     float64
	Time      float64
	Residual  float64
}

// SphCoords returns the hypocenter in spherical
// coordinates.
func (e Event) SphCoords() geom.Vec3 {
	return geom.GeoToSph(e.Latitude, e.Longitude, e.Depth)
}

// An Arrival is one observed phase arrival at a station,
// tied to one event. Its identity never changes; the
// residual is recomputed every iteration.
type Arrival struct {
	Network string
	Station string
	Phase   Phase
	EventID int64
	Time    float64

	// Residual is the observed time minus the predicted
	// origin time plus travel time.
	Residual float64
}

// StationKey returns the arrival's station identity.
func (a Arrival) StationKey() StationKey {
	return StationKey{Network: a.Network, Station: a.Station}
}

// Key returns the arrival's (station, phase) group
// identity.
func (a Arrival) Key() ArrivalKey {
	return ArrivalKey{Network: a.Network, Station: a.Station, Phase: a.Phase}
}
