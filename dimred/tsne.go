package dimred

import (
	"fmt"
	"math/rand"

	"github.com/danaugrs/go-tsne/tsne"
	"gonum.org/v1/gonum/mat"
)

const (
	tsneLearningRate = 300
	tsneMaxIter      = 300
)

// PerplexityFor picks a perplexity the sample count can support; the
// conventional 30 needs on the order of a hundred samples.
func PerplexityFor(nSamples int) float64 {
	p := float64(nSamples-1) / 3
	if p > 30 {
		p = 30
	}
	if p < 2 {
		p = 2
	}

	return p
}

// ComputeTSNE embeds the samples (the columns of x) in two dimensions.
// The optimization is seeded for reproducibility; progress, when non-nil,
// is invoked as the optimization iterates with a snapshot of the current
// embedding (one [x y] row per sample), which is how the convergence
// animation collects its frames.
func ComputeTSNE(x [][]float64, seed int64, progress func(iter int, divergence float64, snapshot [][]float64)) ([][]float64, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no features to embed")
	}
	nFeatures := len(x)
	nSamples := len(x[0])
	if nSamples < 4 {
		return nil, fmt.Errorf("t-SNE needs at least four samples, have %d", nSamples)
	}

	data := make([]float64, nSamples*nFeatures)
	for i, row := range x {
		for j, v := range row {
			data[j*nFeatures+i] = v
		}
	}
	m := mat.NewDense(nSamples, nFeatures, data)

	// The embedding's random initialization draws from the global source.
	rand.Seed(seed)

	t := tsne.NewTSNE(2, PerplexityFor(nSamples), tsneLearningRate, tsneMaxIter, false)
	embedding := t.EmbedData(m, func(iter int, divergence float64, current mat.Matrix) bool {
		if progress != nil {
			progress(iter, divergence, snapshotRows(current, nSamples))
		}
		return false
	})

	out := make([][]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		out[i] = []float64{embedding.At(i, 0), embedding.At(i, 1)}
	}

	return out, nil
}

func snapshotRows(m mat.Matrix, nSamples int) [][]float64 {
	if m == nil {
		return nil
	}

	out := make([][]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		out[i] = []float64{m.At(i, 0), m.At(i, 1)}
	}

	return out
}
