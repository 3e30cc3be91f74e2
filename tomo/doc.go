// Package tomo implements an iterative, stochastic seismic
// traveltime inversion. A group of simulated processes runs
// the same program: the root owns the authoritative data
// and coordinates, workers trace rays, solve traveltime
// fields and locate events on demand.
//
// One iteration draws several random realizations per
// phase. Each realization samples a subset of arrivals,
// parameterizes the model volume with random Voronoi cells,
// assembles a sparse path-length matrix and solves a damped
// least-squares system for a slowness perturbation. The
// realizations are averaged into the next model, after
// which traveltime tables are recomputed, events relocated
// and residuals refreshed.
//
// The numerical collaborators (traveltime solver, field
// store, event locator) and the input data sources are
// injected through the interfaces in oracle.go.
package tomo
