package dimred

import (
	"math"
	"testing"
)

func TestComputePCA(t *testing.T) {
	// All the variance lies along the first feature.
	x := [][]float64{
		{-3, -1, 1, 3},
		{0, 0, 0, 0},
	}

	pca, err := ComputePCA(x, 2)
	if err != nil {
		t.Fatal(err)
	}

	if pca.NComponents() < 1 {
		t.Fatal("expected at least one component")
	}
	if pca.VarExplained[0] < 0.99 {
		t.Errorf("got %v variance on PC1, expected nearly all of it", pca.VarExplained[0])
	}

	// The scores recover the centered first feature, up to sign.
	pc1 := pca.Component(0)
	expected := []float64{-3, -1, 1, 3}
	sign := 1.0
	if pc1[0] > 0 {
		sign = -1.0
	}
	for i := range expected {
		if got := sign * pc1[i]; math.Abs(got-expected[i]) > 1e-9 {
			t.Errorf("sample %d: got %v, expected %v", i, got, expected[i])
			break
		}
	}
}

func TestComputePCATooFewSamples(t *testing.T) {
	if _, err := ComputePCA([][]float64{{1}}, 2); err == nil {
		t.Error("expected an error for a single sample")
	}
	if _, err := ComputePCA(nil, 2); err == nil {
		t.Error("expected an error for an empty matrix")
	}
}

func TestPerplexityFor(t *testing.T) {
	tests := []struct {
		n        int
		expected float64
	}{
		{100, 30},
		{1000, 30},
		{10, 3},
		{7, 2},
		{4, 2},
	}

	for _, test := range tests {
		if got := PerplexityFor(test.n); got != test.expected {
			t.Errorf("PerplexityFor(%d): got %v, expected %v", test.n, got, test.expected)
		}
	}
}

func TestComputeTSNE(t *testing.T) {
	// Two well-separated clouds of four samples each.
	x := [][]float64{
		{0, 0.1, 0.2, 0.3, 10, 10.1, 10.2, 10.3},
		{0, 0.2, 0.1, 0.3, 10, 10.2, 10.1, 10.3},
		{0.3, 0, 0.1, 0.2, 10.3, 10, 10.1, 10.2},
	}

	calls := 0
	snapshots := 0
	embedding, err := ComputeTSNE(x, 1, func(iter int, divergence float64, snapshot [][]float64) {
		calls++
		if len(snapshot) == 8 && len(snapshot[0]) == 2 {
			snapshots++
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(embedding) != 8 {
		t.Fatalf("got %d embedded samples, expected 8", len(embedding))
	}
	for i, point := range embedding {
		if len(point) != 2 {
			t.Fatalf("sample %d: got %d dimensions, expected 2", i, len(point))
		}
		if math.IsNaN(point[0]) || math.IsNaN(point[1]) || math.IsInf(point[0], 0) || math.IsInf(point[1], 0) {
			t.Errorf("sample %d: degenerate coordinates %v", i, point)
		}
	}

	if calls == 0 {
		t.Error("expected the progress callback to be invoked")
	}
	if snapshots == 0 {
		t.Error("expected at least one embedding snapshot")
	}
}

func TestComputeTSNETooFewSamples(t *testing.T) {
	x := [][]float64{
		{1, 2, 3},
	}

	if _, err := ComputeTSNE(x, 1, nil); err == nil {
		t.Error("expected an error for three samples")
	}
}
