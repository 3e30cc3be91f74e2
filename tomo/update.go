package tomo

import (
	"fmt"

	"github.com/seismon/vorotomo/sparse"
)

// ComputeModelUpdate inverts the current sensitivity system
// with damped LSMR, maps the cell-space solution back onto
// grid nodes through the projection matrix, applies it as a
// slowness perturbation, and appends the resulting velocity
// field to the phase's realization stack. Root-only; workers
// return immediately.
func (it *Iterator) ComputeModelUpdate(phase Phase) error {
	if !it.root {
		return nil
	}
	it.log.Info("computing model update", "phase", phase)

	model, err := it.model(phase)
	if err != nil {
		return err
	}
	_, ncols := it.sensitivity.Dims()
	_, ncells := it.projection.Dims()
	if ncols != ncells {
		return fmt.Errorf("%w: sensitivity has %d columns, projection maps %d cells",
			ErrModeMismatch, ncols, ncells)
	}

	alg := it.cfg.Algorithm
	result := sparse.LSMR(it.sensitivity, it.residuals,
		alg.Damp, alg.ATol, alg.BTol, alg.ConLim, alg.MaxIter)
	if !result.Converged() {
		it.log.Warn("lsmr hit iteration cap; accepting current iterate",
			"phase", phase, "iters", result.Iters, "normr", result.NormR)
	} else {
		it.log.Debug("lsmr converged",
			"phase", phase, "istop", result.IStop, "iters", result.Iters)
	}

	delta := it.projection.MulVec(result.X)
	values := make([]float64, len(model.Values))
	for i, v := range model.Values {
		values[i] = 1 / (1/v + delta[i])
	}

	switch phase {
	case PhaseP:
		it.pwaveStack = append(it.pwaveStack, values)
	case PhaseS:
		it.swaveStack = append(it.swaveStack, values)
	}
	return nil
}

// clearStack discards a phase's accumulated realizations at
// the start of an iteration.
func (it *Iterator) clearStack(phase Phase) {
	switch phase {
	case PhaseP:
		it.pwaveStack = nil
	case PhaseS:
		it.swaveStack = nil
	}
}
