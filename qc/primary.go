// Package qc derives per-sample and per-feature quality metrics from an
// expression set, applies the two-stage count filter, and flags samples
// whose metrics sit far outside the cohort.
package qc

import (
	"fmt"

	"github.com/carbocation/scqc/expset"
)

// Primary is the pipeline's working choice of matrices. When the set
// carries both scaled counts and TPM abundances, the scaled counts serve as
// the count matrix and the abundances ride along; otherwise the plain count
// matrix serves alone and Abundance is nil. Downstream steps branch on
// HasAbundance rather than guessing from level names.
type Primary struct {
	Counts    *expset.Level
	Abundance *expset.Level
	Source    string
}

// HasAbundance reports whether an abundance matrix accompanies the counts.
func (p Primary) HasAbundance() bool {
	return p.Abundance != nil
}

// SelectPrimary chooses the working matrices from the levels present.
// Preference is the count_lstpm/TPM pair; the fallback is the plain count
// matrix with no abundance. A set carrying neither is an error.
func SelectPrimary(set *expset.Set) (Primary, error) {
	if lstpm, ok := set.Level(expset.LevelCountLSTPM); ok {
		if tpm, ok := set.Level(expset.LevelTPM); ok {
			return Primary{Counts: lstpm, Abundance: tpm, Source: expset.LevelCountLSTPM}, nil
		}
	}

	if counts, ok := set.Level(expset.LevelCount); ok {
		return Primary{Counts: counts, Source: expset.LevelCount}, nil
	}

	return Primary{}, fmt.Errorf("no usable expression level among %v: need %s, or %s with %s",
		set.LevelNames(), expset.LevelCount, expset.LevelCountLSTPM, expset.LevelTPM)
}
