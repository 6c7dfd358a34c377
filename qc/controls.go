package qc

import (
	"strings"
)

// DefaultControlPrefix matches the ERCC synthetic spike-in naming
// convention.
const DefaultControlPrefix = "ERCC"

// Controls describes the candidate spike-in control features of a counts
// matrix and whether they are usable as a statistical control set.
type Controls struct {
	Prefix     string
	Features   []string
	Qualifying []string
	Eligible   bool
}

// SmallestGroup returns the size of the smallest group induced by the
// grouping keys, or 0 when there are no keys.
func SmallestGroup(keys []string) int {
	counts := make(map[string]int)
	for _, k := range keys {
		counts[k]++
	}

	min := 0
	for _, n := range counts {
		if min == 0 || n < min {
			min = n
		}
	}

	return min
}

// FindControls locates candidate control features by identifier prefix and
// grades them against the cohort's group structure. A candidate qualifies
// when it is detected (nonzero) in strictly more samples than the smallest
// group holds; the control set as a whole is eligible only when more than
// one candidate qualifies. Sparse controls would otherwise produce control
// percentages dominated by noise.
func FindControls(features []string, counts [][]float64, prefix string, minGroupSize int) Controls {
	c := Controls{Prefix: prefix}

	for i, feature := range features {
		if !strings.HasPrefix(feature, prefix) {
			continue
		}
		c.Features = append(c.Features, feature)

		detected := 0
		for _, v := range counts[i] {
			if v != 0 {
				detected++
			}
		}
		if detected > minGroupSize {
			c.Qualifying = append(c.Qualifying, feature)
		}
	}

	c.Eligible = len(c.Qualifying) > 1

	return c
}
