package tomo

// UpdateModels replaces each phase's working model with the
// mean of its realization stack and records the per-node
// population variance across realizations. The updated
// models are then synchronized to every rank.
func (it *Iterator) UpdateModels() error {
	if it.root {
		it.log.Info("averaging realization stacks",
			"pwave", len(it.pwaveStack), "swave", len(it.swaveStack))
		mean, variance := stackStatistics(it.pwaveStack)
		it.pwaveModel.Values = mean
		it.pwaveVariance = variance
		mean, variance = stackStatistics(it.swaveStack)
		it.swaveModel.Values = mean
		it.swaveVariance = variance
	}
	it.Synchronize(AttrPwaveModel, AttrSwaveModel)
	return nil
}

// stackStatistics computes the node-wise mean and population
// variance of a stack of equal-length realizations.
func stackStatistics(stack [][]float64) (mean, variance []float64) {
	if len(stack) == 0 {
		return nil, nil
	}
	n := len(stack[0])
	mean = make([]float64, n)
	variance = make([]float64, n)
	for _, realization := range stack {
		for i, v := range realization {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(len(stack))
	}
	for _, realization := range stack {
		for i, v := range realization {
			d := v - mean[i]
			variance[i] += d * d
		}
	}
	for i := range variance {
		variance[i] /= float64(len(stack))
	}
	return mean, variance
}
