// Package dimred prepares expression matrices for low-dimensional embedding
// and computes the embeddings themselves (PCA, t-SNE).
package dimred

import (
	"math"

	"github.com/carbocation/scqc/qc"
)

// LogCPM rescales each sample's counts to counts-per-million and returns
// log2(cpm+1). Samples with no counts at all come back as zero columns.
func LogCPM(counts [][]float64) [][]float64 {
	if len(counts) == 0 {
		return nil
	}

	nSamples := len(counts[0])
	colSums := make([]float64, nSamples)
	for _, row := range counts {
		for j, v := range row {
			colSums[j] += v
		}
	}

	out := make([][]float64, len(counts))
	for i, row := range counts {
		o := make([]float64, nSamples)
		for j, v := range row {
			if colSums[j] > 0 {
				o[j] = math.Log2(1e6*v/colSums[j] + 1)
			}
		}
		out[i] = o
	}

	return out
}

// Log1p applies log2(v+1) entrywise.
func Log1p(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		o := make([]float64, len(row))
		for j, v := range row {
			o[j] = math.Log2(v + 1)
		}
		out[i] = o
	}

	return out
}

// EmbeddingInput builds the expression matrix the embeddings consume:
// log-abundance when an abundance matrix rode along with the counts,
// log-CPM of the counts otherwise. The result is always a fresh matrix that
// the jitter step may mutate freely.
func EmbeddingInput(primary qc.Primary) [][]float64 {
	if primary.HasAbundance() {
		return Log1p(primary.Abundance.Values)
	}

	return LogCPM(primary.Counts.Values)
}
