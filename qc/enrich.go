package qc

import (
	"fmt"
	"sort"

	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/tokenme/probab/dst"
)

// GroupEnrichment reports how one grouping-key value's samples fared
// against the QC flags, with a two-sided Fisher exact p-value for that
// group against the rest of the cohort.
type GroupEnrichment struct {
	Group   string
	Flagged int
	Total   int
	P       float64
}

// FlagEnrichment tests each group for an excess (or deficit) of flagged
// samples. keys and flags are parallel, one entry per sample. A batch whose
// samples are flagged out of proportion usually means the batch failed, not
// the cells.
func FlagEnrichment(keys []string, flags []OutlierFlags) ([]GroupEnrichment, error) {
	if len(keys) != len(flags) {
		return nil, fmt.Errorf("%d grouping keys for %d samples", len(keys), len(flags))
	}

	type tally struct {
		flagged int
		total   int
	}

	tallies := make(map[string]*tally)
	grandFlagged, grandTotal := 0, 0
	for i, key := range keys {
		t := tallies[key]
		if t == nil {
			t = &tally{}
			tallies[key] = t
		}
		t.total++
		grandTotal++
		if flags[i].Flagged() {
			t.flagged++
			grandFlagged++
		}
	}

	groups := make([]string, 0, len(tallies))
	for g := range tallies {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	out := make([]GroupEnrichment, 0, len(groups))
	for _, g := range groups {
		t := tallies[g]

		n11 := t.flagged
		n12 := t.total - t.flagged
		n21 := grandFlagged - t.flagged
		n22 := (grandTotal - t.total) - n21

		_, _, _, twop := fet.FisherExactTest(n11, n12, n21, n22)

		out = append(out, GroupEnrichment{
			Group:   g,
			Flagged: t.flagged,
			Total:   t.total,
			P:       twop,
		})
	}

	return out, nil
}

// FlagChiSquare is the overall heterogeneity test across every group at
// once: the p-value for the observed flagged/unflagged split departing from
// a single cohort-wide flag rate. Degenerate inputs (one group, nobody or
// everybody flagged) report 1.
func FlagChiSquare(groups []GroupEnrichment) (p float64) {
	p = 1

	defer func() { recover() }()

	grandFlagged, grandTotal := 0, 0
	for _, g := range groups {
		grandFlagged += g.Flagged
		grandTotal += g.Total
	}

	df := len(groups) - 1
	if df < 1 || grandFlagged == 0 || grandFlagged == grandTotal {
		return
	}

	rate := float64(grandFlagged) / float64(grandTotal)

	x := 0.0
	for _, g := range groups {
		expFlagged := float64(g.Total) * rate
		expUnflagged := float64(g.Total) * (1 - rate)

		dFlagged := float64(g.Flagged) - expFlagged
		dUnflagged := float64(g.Total-g.Flagged) - expUnflagged

		x += dFlagged * dFlagged / expFlagged
		x += dUnflagged * dUnflagged / expUnflagged
	}

	p = 1.0 - dst.ChiSquareCDF(float64(df))(x)

	return
}
