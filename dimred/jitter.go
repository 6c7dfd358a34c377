package dimred

import (
	"fmt"
	"sort"

	"github.com/theodesp/unionfind"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// JitterSigma is the standard deviation of the deduplication noise.
	JitterSigma = 1e-3

	// JitterBound caps any single entry's displacement.
	JitterBound = 1e-2

	jitterAttempts = 10
)

// JitterInfo records what the deduplication guard saw and did.
type JitterInfo struct {
	Applied      bool
	DupRowGroups [][]int
	DupColGroups [][]int
	Attempts     int
}

// DuplicateRowGroups returns the groups of identical rows (each group holds
// the row indices, ascending; singletons are omitted).
func DuplicateRowGroups(x [][]float64) [][]int {
	n := len(x)
	if n < 2 {
		return nil
	}

	uf := unionfind.NewThreadSafeUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if equalRows(x[i], x[j]) {
				uf.Union(i, j)
			}
		}
	}

	roots := make([]int, n)
	for i := 0; i < n; i++ {
		roots[i] = uf.Root(i)
		if roots[i] < 0 {
			roots[i] = i
		}
	}

	return groupByRoot(roots)
}

// DuplicateColumnGroups is DuplicateRowGroups over the columns.
func DuplicateColumnGroups(x [][]float64) [][]int {
	if len(x) == 0 || len(x[0]) < 2 {
		return nil
	}
	n := len(x[0])

	uf := unionfind.NewThreadSafeUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if equalColumns(x, i, j) {
				uf.Union(i, j)
			}
		}
	}

	roots := make([]int, n)
	for i := 0; i < n; i++ {
		roots[i] = uf.Root(i)
		if roots[i] < 0 {
			roots[i] = i
		}
	}

	return groupByRoot(roots)
}

// DedupJitter applies the deduplication guard: if x has any duplicate rows
// or columns, every entry of a fresh copy gets small zero-mean normal noise
// (clamped to JitterBound) and the copy is re-drawn, up to a few attempts,
// until no duplicates remain. With no duplicates present, x itself is
// returned untouched. Embeddings degenerate on exactly duplicated points;
// nothing else may ever see the jittered copy.
func DedupJitter(x [][]float64, seed uint64) ([][]float64, JitterInfo, error) {
	info := JitterInfo{
		DupRowGroups: DuplicateRowGroups(x),
		DupColGroups: DuplicateColumnGroups(x),
	}

	if len(info.DupRowGroups) == 0 && len(info.DupColGroups) == 0 {
		return x, info, nil
	}

	noise := distuv.Normal{Mu: 0, Sigma: JitterSigma, Src: rand.NewSource(seed)}

	for attempt := 1; attempt <= jitterAttempts; attempt++ {
		info.Attempts = attempt

		jittered := make([][]float64, len(x))
		for i, row := range x {
			jrow := make([]float64, len(row))
			for j, v := range row {
				d := noise.Rand()
				if d > JitterBound {
					d = JitterBound
				} else if d < -JitterBound {
					d = -JitterBound
				}
				jrow[j] = v + d
			}
			jittered[i] = jrow
		}

		if len(DuplicateRowGroups(jittered)) == 0 && len(DuplicateColumnGroups(jittered)) == 0 {
			info.Applied = true
			return jittered, info, nil
		}
	}

	return nil, info, fmt.Errorf("duplicates survived %d jitter attempts", jitterAttempts)
}

func equalRows(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func equalColumns(x [][]float64, i, j int) bool {
	for _, row := range x {
		if row[i] != row[j] {
			return false
		}
	}

	return true
}

func groupByRoot(roots []int) [][]int {
	byRoot := make(map[int][]int)
	for i, root := range roots {
		byRoot[root] = append(byRoot[root], i)
	}

	var groups [][]int
	for _, members := range byRoot {
		if len(members) > 1 {
			groups = append(groups, members)
		}
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })

	return groups
}
