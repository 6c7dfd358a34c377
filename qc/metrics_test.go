package qc

import (
	"math"
	"reflect"
	"testing"

	"github.com/carbocation/scqc/expset"
)

func TestSelectPrimary(t *testing.T) {
	paired := expset.New([]string{"G1"}, []string{"s1"})
	_ = paired.AddLevel(expset.LevelCount, [][]float64{{1}})
	_ = paired.AddLevel(expset.LevelCountLSTPM, [][]float64{{2}})
	_ = paired.AddLevel(expset.LevelTPM, [][]float64{{3}})

	p, err := SelectPrimary(paired)
	if err != nil {
		t.Fatal(err)
	}
	if p.Source != expset.LevelCountLSTPM {
		t.Errorf("got source %q, expected %q", p.Source, expset.LevelCountLSTPM)
	}
	if !p.HasAbundance() {
		t.Error("expected an abundance matrix")
	}
	if p.Counts.Values[0][0] != 2 || p.Abundance.Values[0][0] != 3 {
		t.Error("picked the wrong matrices")
	}

	// Scaled counts without TPM fall back to plain counts.
	unpaired := expset.New([]string{"G1"}, []string{"s1"})
	_ = unpaired.AddLevel(expset.LevelCount, [][]float64{{1}})
	_ = unpaired.AddLevel(expset.LevelCountLSTPM, [][]float64{{2}})

	p, err = SelectPrimary(unpaired)
	if err != nil {
		t.Fatal(err)
	}
	if p.Source != expset.LevelCount {
		t.Errorf("got source %q, expected %q", p.Source, expset.LevelCount)
	}
	if p.HasAbundance() {
		t.Error("expected no abundance matrix")
	}

	empty := expset.New([]string{"G1"}, []string{"s1"})
	if _, err := SelectPrimary(empty); err == nil {
		t.Error("expected an error when no usable level exists")
	}
}

func TestSmallestGroup(t *testing.T) {
	tests := []struct {
		keys     []string
		expected int
	}{
		{[]string{"A.x", "A.x", "B.y"}, 1},
		{[]string{"A", "A", "B", "B"}, 2},
		{[]string{"A"}, 1},
		{nil, 0},
	}

	for _, test := range tests {
		if got := SmallestGroup(test.keys); got != test.expected {
			t.Errorf("SmallestGroup(%v): got %d, expected %d", test.keys, got, test.expected)
		}
	}
}

func TestFindControls(t *testing.T) {
	nSamples := 16

	// ERCC-1 is detected in 12 samples, ERCC-2 in 15, G1 everywhere.
	row := func(detected int) []float64 {
		r := make([]float64, nSamples)
		for i := 0; i < detected; i++ {
			r[i] = float64(i + 1)
		}
		return r
	}

	features := []string{"ERCC-1", "ERCC-2", "G1"}
	counts := [][]float64{row(12), row(15), row(nSamples)}

	c := FindControls(features, counts, DefaultControlPrefix, 10)
	if !reflect.DeepEqual(c.Features, []string{"ERCC-1", "ERCC-2"}) {
		t.Errorf("got candidates %v", c.Features)
	}
	if !reflect.DeepEqual(c.Qualifying, []string{"ERCC-1", "ERCC-2"}) {
		t.Errorf("got qualifying %v", c.Qualifying)
	}
	if !c.Eligible {
		t.Error("expected two qualifying controls to be eligible")
	}

	// With only one control clear of the smallest group, the set is not
	// usable.
	counts = [][]float64{row(12), row(9), row(nSamples)}
	c = FindControls(features, counts, DefaultControlPrefix, 10)
	if !reflect.DeepEqual(c.Qualifying, []string{"ERCC-1"}) {
		t.Errorf("got qualifying %v", c.Qualifying)
	}
	if c.Eligible {
		t.Error("expected a single qualifying control to be ineligible")
	}
}

func TestCompute(t *testing.T) {
	features := []string{"ERCC-1", "ERCC-2", "G1", "G2"}
	samples := []string{"s1", "s2"}
	counts := [][]float64{
		{10, 0},
		{10, 5},
		{60, 90},
		{20, 5},
	}

	set := buildSet(t, features, samples, counts)
	primary, err := SelectPrimary(set)
	if err != nil {
		t.Fatal(err)
	}

	controls := Controls{
		Prefix:   DefaultControlPrefix,
		Features: []string{"ERCC-1", "ERCC-2"},
		Eligible: true,
	}

	m := Compute(set, primary, controls, 2)

	s1 := m.Samples[0]
	if s1.Total != 100 {
		t.Errorf("got total %v, expected 100", s1.Total)
	}
	if s1.Detected != 4 {
		t.Errorf("got detected %v, expected 4", s1.Detected)
	}
	// Top two features of s1 hold 60+20 of 100 counts.
	if s1.PctTopK != 80 {
		t.Errorf("got PctTopK %v, expected 80", s1.PctTopK)
	}
	if s1.Control != 20 || s1.PctControl != 20 {
		t.Errorf("got control %v (%v%%), expected 20 (20%%)", s1.Control, s1.PctControl)
	}

	s2 := m.Samples[1]
	if s2.Detected != 3 {
		t.Errorf("got detected %v, expected 3", s2.Detected)
	}
	if s2.PctControl != 5 {
		t.Errorf("got PctControl %v, expected 5", s2.PctControl)
	}

	// G1 holds 150 of the 200 summed counts.
	top := m.TopFeatures(1)
	if len(top) != 1 || top[0].Feature != "G1" {
		t.Fatalf("got top features %v", top)
	}
	if top[0].PctTotal != 75 {
		t.Errorf("got PctTotal %v, expected 75", top[0].PctTotal)
	}
	if top[0].Mean != 75 {
		t.Errorf("got mean %v, expected 75", top[0].Mean)
	}
	if top[0].Detected != 2 {
		t.Errorf("got detected %v, expected 2", top[0].Detected)
	}
}

func TestComputeWithoutControls(t *testing.T) {
	set := buildSet(t,
		[]string{"G1", "G2"},
		[]string{"s1"},
		[][]float64{
			{3},
			{0},
		})

	primary, err := SelectPrimary(set)
	if err != nil {
		t.Fatal(err)
	}

	m := Compute(set, primary, Controls{}, TopK)
	if m.HasControls() {
		t.Error("expected no control metrics")
	}
	if m.Samples[0].Control != 0 || m.Samples[0].PctControl != 0 {
		t.Errorf("got control metrics %+v on an ineligible set", m.Samples[0])
	}

	// The top-K window is wider than the feature list; the share is all of
	// the counts.
	if m.Samples[0].PctTopK != 100 {
		t.Errorf("got PctTopK %v, expected 100", m.Samples[0].PctTopK)
	}
}

func TestComputeZeroSample(t *testing.T) {
	set := buildSet(t,
		[]string{"G1"},
		[]string{"s1"},
		[][]float64{{0}})

	primary, err := SelectPrimary(set)
	if err != nil {
		t.Fatal(err)
	}

	m := Compute(set, primary, Controls{}, TopK)
	sm := m.Samples[0]
	if sm.Total != 0 || sm.Detected != 0 {
		t.Errorf("got %+v", sm)
	}
	if math.IsNaN(sm.PctTopK) || sm.PctTopK != 0 {
		t.Errorf("got PctTopK %v for an empty sample, expected 0", sm.PctTopK)
	}
}
