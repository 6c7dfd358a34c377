package dimred

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PCA holds per-sample principal component scores and the fraction of
// variance each component explains. Scores rows follow the sample order of
// the input's columns.
type PCA struct {
	Scores       [][]float64
	VarExplained []float64
}

// ComputePCA embeds the samples (the columns of x) into their first k
// principal components. Fewer components come back when the data cannot
// support k.
func ComputePCA(x [][]float64, k int) (*PCA, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no features to decompose")
	}
	nFeatures := len(x)
	nSamples := len(x[0])
	if nSamples < 2 {
		return nil, fmt.Errorf("principal components need at least two samples, have %d", nSamples)
	}

	// Samples are the observations, features the variables.
	data := make([]float64, nSamples*nFeatures)
	for i, row := range x {
		for j, v := range row {
			data[j*nFeatures+i] = v
		}
	}
	m := mat.NewDense(nSamples, nFeatures, data)

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, fmt.Errorf("principal component decomposition failed")
	}

	var vec mat.Dense
	pc.VectorsTo(&vec)
	vars := pc.VarsTo(nil)

	if k > len(vars) {
		k = len(vars)
	}
	if k < 1 {
		return nil, fmt.Errorf("no principal components available")
	}

	// Scores are the centered observations projected onto the leading
	// component directions.
	centered := mat.DenseCopyOf(m)
	col := make([]float64, nSamples)
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, m)
		mean := stat.Mean(col, nil)
		for i := 0; i < nSamples; i++ {
			centered.Set(i, j, col[i]-mean)
		}
	}

	var proj mat.Dense
	proj.Mul(centered, vec.Slice(0, nFeatures, 0, k))

	out := &PCA{
		Scores:       make([][]float64, nSamples),
		VarExplained: make([]float64, k),
	}

	total := 0.0
	for _, v := range vars {
		total += v
	}
	for c := 0; c < k; c++ {
		if total > 0 {
			out.VarExplained[c] = vars[c] / total
		}
	}

	for i := 0; i < nSamples; i++ {
		row := make([]float64, k)
		for c := 0; c < k; c++ {
			row[c] = proj.At(i, c)
		}
		out.Scores[i] = row
	}

	return out, nil
}

// Component returns one component's score per sample.
func (p *PCA) Component(c int) []float64 {
	out := make([]float64, len(p.Scores))
	for i, row := range p.Scores {
		out[i] = row[c]
	}

	return out
}

// NComponents returns how many components were computed.
func (p *PCA) NComponents() int {
	return len(p.VarExplained)
}
