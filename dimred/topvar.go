package dimred

import (
	"sort"

	"github.com/carbocation/runningvariance"
)

// DefaultTopVariable is how many of the most variable features feed the
// embeddings. Features that never vary carry no structure, only noise.
const DefaultTopVariable = 500

// TopVariable keeps the n rows of x with the largest standard deviation,
// most variable first, along with their feature names. When x has n rows or
// fewer, everything is kept.
func TopVariable(x [][]float64, features []string, n int) ([][]float64, []string) {
	type ranked struct {
		row int
		sd  float64
	}

	sds := make([]ranked, len(x))
	for i, row := range x {
		rs := runningvariance.NewRunningStat()
		for _, v := range row {
			rs.Push(v)
		}
		sds[i] = ranked{row: i, sd: rs.StandardDeviation()}
	}

	sort.SliceStable(sds, func(i, j int) bool {
		return sds[i].sd > sds[j].sd
	})

	if n > len(sds) {
		n = len(sds)
	}

	outX := make([][]float64, n)
	outF := make([]string, n)
	for k := 0; k < n; k++ {
		outX[k] = x[sds[k].row]
		outF[k] = features[sds[k].row]
	}

	return outX, outF
}
