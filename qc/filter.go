package qc

import (
	"fmt"

	"github.com/carbocation/scqc/expset"
)

// DefaultMinDetected is the sample filter's detected-feature floor. A
// sample survives only with strictly more detected features than this.
const DefaultMinDetected = 5

// EmptyResultError reports that filtering removed every feature or every
// sample, which would send degenerate data into every downstream step.
type EmptyResultError struct {
	Stage string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("filtering removed every %s", e.Stage)
}

// Filter applies the two-stage QC filter to the named counts level:
// features must be nonzero in at least one sample, and samples must detect
// strictly more than minDetected features. Detected-feature counts are
// recomputed after the feature stage, and the two stages repeat until
// neither removes anything, so filtering an already-filtered set returns it
// unchanged. Every level, the annotation, and the sources shrink
// consistently.
func Filter(set *expset.Set, countsLevel string, minDetected int) (*expset.Set, error) {
	if _, ok := set.Level(countsLevel); !ok {
		return nil, fmt.Errorf("the set has no %q level", countsLevel)
	}

	cur := set
	for {
		level, _ := cur.Level(countsLevel)

		keepFeatures := make([]string, 0, cur.NFeatures())
		for i, row := range level.Values {
			for _, v := range row {
				if v != 0 {
					keepFeatures = append(keepFeatures, cur.Features[i])
					break
				}
			}
		}
		if len(keepFeatures) == 0 {
			return nil, &EmptyResultError{Stage: "feature"}
		}

		next := cur
		if len(keepFeatures) < cur.NFeatures() {
			next = cur.KeepFeatures(keepFeatures)
		}

		level, _ = next.Level(countsLevel)
		keepSamples := make([]string, 0, next.NSamples())
		for j, sample := range next.Samples {
			detected := 0
			for i := range level.Values {
				if level.Values[i][j] != 0 {
					detected++
				}
			}
			if detected > minDetected {
				keepSamples = append(keepSamples, sample)
			}
		}
		if len(keepSamples) == 0 {
			return nil, &EmptyResultError{Stage: "sample"}
		}

		if len(keepSamples) < next.NSamples() {
			next = next.KeepSamples(keepSamples)
		}

		// Removing samples can zero out a feature, so repeat until a full
		// pass removes nothing.
		if next == cur {
			return cur, nil
		}
		cur = next
	}
}
