package qc

import (
	"sort"

	"github.com/carbocation/scqc/expset"
)

// TopK is the number of most-expressed features whose share of each
// sample's counts is reported.
const TopK = 200

// A SampleMetric summarizes one sample's counts. Control and PctControl are
// only populated when the control set was eligible.
type SampleMetric struct {
	Sample     string
	Total      float64
	Detected   int
	PctTopK    float64
	Control    float64
	PctControl float64
}

// A FeatureMetric summarizes one feature across all samples.
type FeatureMetric struct {
	Feature  string
	Mean     float64
	Detected int
	PctTotal float64
}

// Metrics is the QC table: per-sample and per-feature summaries of one
// counts matrix, tagged with the level the counts came from. It is computed
// once and read-only afterward.
type Metrics struct {
	Source   string
	K        int
	Controls Controls
	Samples  []SampleMetric
	Features []FeatureMetric
}

// HasControls reports whether control-derived metrics are populated.
func (m *Metrics) HasControls() bool {
	return m.Controls.Eligible
}

// Sample fetches one sample's metrics by identifier.
func (m *Metrics) Sample(name string) (SampleMetric, bool) {
	for _, sm := range m.Samples {
		if sm.Sample == name {
			return sm, true
		}
	}

	return SampleMetric{}, false
}

// TopFeatures returns the n features holding the largest share of the
// summed counts, most expressed first.
func (m *Metrics) TopFeatures(n int) []FeatureMetric {
	sorted := make([]FeatureMetric, len(m.Features))
	copy(sorted, m.Features)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PctTotal > sorted[j].PctTotal
	})

	if n > len(sorted) {
		n = len(sorted)
	}

	return sorted[:n]
}

// Compute builds the QC table from the primary counts matrix. Samples and
// Features follow the set's ordering. k is the top-expression window; pass
// TopK unless a test needs a smaller one.
func Compute(set *expset.Set, primary Primary, controls Controls, k int) *Metrics {
	counts := primary.Counts.Values
	nSamples := set.NSamples()
	nFeatures := set.NFeatures()

	m := &Metrics{
		Source:   primary.Source,
		K:        k,
		Controls: controls,
		Samples:  make([]SampleMetric, nSamples),
		Features: make([]FeatureMetric, nFeatures),
	}

	isControl := make(map[int]struct{}, len(controls.Features))
	if controls.Eligible {
		inSet := make(map[string]struct{}, len(controls.Features))
		for _, f := range controls.Features {
			inSet[f] = struct{}{}
		}
		for i, f := range set.Features {
			if _, ok := inSet[f]; ok {
				isControl[i] = struct{}{}
			}
		}
	}

	col := make([]float64, nFeatures)
	for j := 0; j < nSamples; j++ {
		sm := SampleMetric{Sample: set.Samples[j]}

		for i := 0; i < nFeatures; i++ {
			v := counts[i][j]
			col[i] = v
			sm.Total += v
			if v != 0 {
				sm.Detected++
			}
			if _, ok := isControl[i]; ok {
				sm.Control += v
			}
		}

		if sm.Total > 0 {
			topSum := 0.0
			sorted := make([]float64, nFeatures)
			copy(sorted, col)
			sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
			top := k
			if top > nFeatures {
				top = nFeatures
			}
			for _, v := range sorted[:top] {
				topSum += v
			}
			sm.PctTopK = 100 * topSum / sm.Total
			sm.PctControl = 100 * sm.Control / sm.Total
		}

		m.Samples[j] = sm
	}

	grandTotal := 0.0
	for _, sm := range m.Samples {
		grandTotal += sm.Total
	}

	for i := 0; i < nFeatures; i++ {
		fm := FeatureMetric{Feature: set.Features[i]}

		sum := 0.0
		for j := 0; j < nSamples; j++ {
			v := counts[i][j]
			sum += v
			if v != 0 {
				fm.Detected++
			}
		}
		if nSamples > 0 {
			fm.Mean = sum / float64(nSamples)
		}
		if grandTotal > 0 {
			fm.PctTotal = 100 * sum / grandTotal
		}

		m.Features[i] = fm
	}

	return m
}
