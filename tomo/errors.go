package tomo

import "errors"

var (
	// ErrUnknownPhase reports a phase label other than P or S.
	ErrUnknownPhase = errors.New("tomo: unrecognized phase label")

	// ErrInsufficientArrivals reports that fewer arrivals
	// survived outlier filtering than the configured sample
	// size. This is a configuration error, not a retryable
	// condition.
	ErrInsufficientArrivals = errors.New("tomo: not enough arrivals to draw the configured sample")

	// ErrCellCount reports that adaptive parameterization
	// produced a number of Voronoi cells different from the
	// configured nvoronoi.
	ErrCellCount = errors.New("tomo: adaptive parameterization produced the wrong cell count")

	// ErrGridMismatch reports that the P and S models do
	// not share grid geometry.
	ErrGridMismatch = errors.New("tomo: P and S models must share grid geometry")

	// ErrModeMismatch reports an attempt to apply a
	// hypocenter-mode sensitivity matrix as a velocity
	// model update.
	ErrModeMismatch = errors.New("tomo: sensitivity matrix does not map onto the Voronoi parameterization")

	// ErrFieldNotFound reports a missing traveltime field.
	// Field stores return it from Get so callers can tell a
	// missing key from a storage failure.
	ErrFieldNotFound = errors.New("tomo: traveltime field not found")
)
