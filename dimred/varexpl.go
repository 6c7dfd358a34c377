package dimred

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// RSquared is the coefficient of determination of the simple regression of
// y on x. Degenerate inputs (fewer than two pairs, or zero variance in x)
// come back NaN so callers can drop them.
func RSquared(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return math.NaN()
	}

	estimates := make([]float64, len(x))
	for i, xv := range x {
		estimates[i] = alpha + beta*xv
	}

	return stat.RSquaredFrom(estimates, y, nil)
}

// ExplainedByCovariate computes, for every feature row of expr, how much of
// its expression the covariate explains. Samples whose covariate is NaN are
// dropped pairwise.
func ExplainedByCovariate(expr [][]float64, covariate []float64) ([]float64, error) {
	out := make([]float64, len(expr))
	for i, row := range expr {
		if len(row) != len(covariate) {
			return nil, fmt.Errorf("feature %d has %d samples but the covariate has %d values", i, len(row), len(covariate))
		}

		xs := make([]float64, 0, len(row))
		ys := make([]float64, 0, len(row))
		for j, v := range covariate {
			if math.IsNaN(v) {
				continue
			}
			xs = append(xs, v)
			ys = append(ys, row[j])
		}

		out[i] = RSquared(xs, ys)
	}

	return out, nil
}

// PCCorrelations computes R-squared between a covariate and each of the
// first k principal components' scores.
func PCCorrelations(p *PCA, covariate []float64, k int) ([]float64, error) {
	if len(p.Scores) != len(covariate) {
		return nil, fmt.Errorf("have %d samples of scores but %d covariate values", len(p.Scores), len(covariate))
	}
	if k > p.NComponents() {
		k = p.NComponents()
	}

	out := make([]float64, k)
	for c := 0; c < k; c++ {
		scores := p.Component(c)

		xs := make([]float64, 0, len(scores))
		ys := make([]float64, 0, len(scores))
		for j, v := range covariate {
			if math.IsNaN(v) {
				continue
			}
			xs = append(xs, scores[j])
			ys = append(ys, v)
		}

		out[c] = RSquared(xs, ys)
	}

	return out, nil
}
