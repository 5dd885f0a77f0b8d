// Package opt provides black-box minimisers used to search matcher parameters.
package opt

// Optimizer minimises an objective over a box-bounded parameter space.
type Optimizer interface {
	// Run minimises eval over [lower[i], upper[i]] for each of dim dimensions
	// and returns the best position found together with its cost.
	Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}

// Exhaustive evaluates a regular lattice of Steps points per dimension.
// It suits small discrete searches where every candidate can be afforded.
type Exhaustive struct {
	Steps int
}

// NewExhaustive returns a lattice optimizer with the given number of steps.
func NewExhaustive(steps int) Optimizer {
	if steps < 2 {
		steps = 2
	}
	return &Exhaustive{Steps: steps}
}

// Run walks the lattice in row-major order. Ties keep the earliest point.
func (e *Exhaustive) Run(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	idx := make([]int, dim)
	pos := make([]float64, dim)
	var best []float64
	bestCost := 0.0

	for {
		for i := range pos {
			pos[i] = lower[i] + (upper[i]-lower[i])*float64(idx[i])/float64(e.Steps-1)
		}
		if cost := eval(pos); best == nil || cost < bestCost {
			best = append(best[:0], pos...)
			bestCost = cost
		}

		i := 0
		for ; i < dim; i++ {
			idx[i]++
			if idx[i] < e.Steps {
				break
			}
			idx[i] = 0
		}
		if i == dim {
			return best, bestCost
		}
	}
}
