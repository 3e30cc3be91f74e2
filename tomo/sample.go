package tomo

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TukeyFence returns the [Q1 - k*IQR, Q3 + k*IQR] bounds
// of the given residual set.
func TukeyFence(residuals []float64, k float64) (lo, hi float64) {
	sorted := make([]float64, len(residuals))
	copy(sorted, residuals)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr
}

// FilterOutliers keeps the arrivals whose residuals lie
// strictly inside the Tukey fence of the input set's own
// residual distribution.
//
// The fence is recomputed from whatever set is passed in,
// so re-filtering an already-filtered set can in principle
// remove further points; in practice the surviving set's
// own fence contains it and re-filtering is a no-op.
func FilterOutliers(arrivals []Arrival, k float64) []Arrival {
	if len(arrivals) == 0 {
		return nil
	}
	residuals := make([]float64, len(arrivals))
	for i, a := range arrivals {
		residuals[i] = a.Residual
	}
	lo, hi := TukeyFence(residuals, k)
	kept := make([]Arrival, 0, len(arrivals))
	for _, a := range arrivals {
		if a.Residual > lo && a.Residual < hi {
			kept = append(kept, a)
		}
	}
	return kept
}

// SampleArrivals draws the realization's random sample of
// outlier-filtered arrivals for one phase and synchronizes
// it.
func (it *Iterator) SampleArrivals(phase Phase) error {
	if it.root {
		if _, err := ParsePhase(string(phase)); err != nil {
			return err
		}
		narrival := it.cfg.Algorithm.NArrival
		k := it.cfg.Algorithm.OutlierRemovalFactor

		var pool []Arrival
		for _, a := range it.arrivals {
			if a.Phase == phase {
				pool = append(pool, a)
			}
		}
		pool = FilterOutliers(pool, k)
		if len(pool) < narrival {
			return fmt.Errorf("%w: %d %s arrivals after outlier removal, narrival=%d",
				ErrInsufficientArrivals, len(pool), phase, narrival)
		}

		sampled := make([]Arrival, 0, narrival)
		for _, idx := range it.rng.Perm(len(pool))[:narrival] {
			sampled = append(sampled, pool[idx])
		}
		it.sampled = sampled
	}
	it.Synchronize(AttrSampled)
	return nil
}
