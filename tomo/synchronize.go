package tomo

import (
	"slices"

	"github.com/seismon/vorotomo/comm"
)

// An Attr names one piece of shared state that Synchronize
// can broadcast from the root.
type Attr string

const (
	AttrArrivals   Attr = "arrivals"
	AttrConfig     Attr = "cfg"
	AttrEvents     Attr = "events"
	AttrProjection Attr = "projection_matrix"
	AttrPwaveModel Attr = "pwave_model"
	AttrSwaveModel Attr = "swave_model"
	AttrSampled    Attr = "sampled_arrivals"
	AttrStations   Attr = "stations"
	AttrVoronoi    Attr = "voronoi_cells"
)

// AllAttrs is the complete default synchronization set,
// covering every cross-process shared attribute.
var AllAttrs = []Attr{
	AttrArrivals,
	AttrConfig,
	AttrEvents,
	AttrProjection,
	AttrPwaveModel,
	AttrSwaveModel,
	AttrSampled,
	AttrStations,
	AttrVoronoi,
}

// Synchronize broadcasts the named attributes from the
// root to every worker, which overwrite their local
// copies, and ends with a full-group barrier. It is the
// only legal way workers observe root-computed state.
//
// Calling Synchronize with no attributes synchronizes
// AllAttrs.
func (it *Iterator) Synchronize(attrs ...Attr) {
	if len(attrs) == 0 {
		attrs = AllAttrs
	}
	for _, attr := range attrs {
		switch attr {
		case AttrArrivals:
			value := comm.Bcast(it.group, it.arrivals)
			if !it.root {
				it.arrivals = slices.Clone(value)
			}
		case AttrConfig:
			// The configuration is immutable after load, so
			// sharing the broadcast value is safe.
			it.cfg = comm.Bcast(it.group, it.cfg)
		case AttrEvents:
			value := comm.Bcast(it.group, it.events)
			if !it.root {
				it.events = slices.Clone(value)
			}
		case AttrProjection:
			value := comm.Bcast(it.group, it.projection)
			if !it.root && value != nil {
				it.projection = value.Clone()
			}
		case AttrPwaveModel:
			value := comm.Bcast(it.group, it.pwaveModel)
			if !it.root && value != nil {
				it.pwaveModel = value.Clone()
			}
		case AttrSwaveModel:
			value := comm.Bcast(it.group, it.swaveModel)
			if !it.root && value != nil {
				it.swaveModel = value.Clone()
			}
		case AttrSampled:
			value := comm.Bcast(it.group, it.sampled)
			if !it.root {
				it.sampled = slices.Clone(value)
			}
		case AttrStations:
			value := comm.Bcast(it.group, it.stations)
			if !it.root {
				it.stations = slices.Clone(value)
			}
		case AttrVoronoi:
			value := comm.Bcast(it.group, it.voronoiCells)
			if !it.root {
				it.voronoiCells = slices.Clone(value)
			}
		default:
			panic("unknown synchronization attribute: " + string(attr))
		}
	}
	it.group.Barrier()
}
