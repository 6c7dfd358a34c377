package qcplot

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestParseLegendPos(t *testing.T) {
	for _, valid := range []string{"top", "bottom", "left", "right", "none", "Bottom"} {
		pos, err := ParseLegendPos(valid)
		if err != nil {
			t.Errorf("%s: unexpected error %v", valid, err)
		}
		if pos == "" {
			t.Errorf("%s: got an empty position", valid)
		}
	}

	if _, err := ParseLegendPos("middle"); err == nil {
		t.Error("expected an error for an unknown position")
	}
}

func TestParsePalette(t *testing.T) {
	pal, err := ParsePalette([]string{"#ff0000", "#00ff00"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pal) != 2 {
		t.Fatalf("got %d colors, expected 2", len(pal))
	}

	r, g, b, _ := pal[0].RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("got (%d,%d,%d), expected pure red", r>>8, g>>8, b>>8)
	}

	if _, err := ParsePalette([]string{"not-a-color"}); err == nil {
		t.Error("expected an error for a malformed color")
	}
}

func TestGroupColors(t *testing.T) {
	pal := DefaultPalette()

	colors := groupColors([]string{"b", "a", "b"}, pal)
	if len(colors) != 2 {
		t.Fatalf("got %d colors, expected 2", len(colors))
	}
	if colors["a"] != pal[0] || colors["b"] != pal[1] {
		t.Error("expected colors assigned in sorted group order")
	}

	// Eleven groups against ten colors wraps around.
	var groups []string
	for i := 0; i < 11; i++ {
		groups = append(groups, fmt.Sprintf("g%02d", i))
	}
	colors = groupColors(groups, pal)
	if colors["g10"] != pal[0] {
		t.Error("expected the palette to cycle once exhausted")
	}
}

func TestCumulativeTop(t *testing.T) {
	tests := []struct {
		counts   []float64
		n        int
		expected []float64
	}{
		{[]float64{5, 3, 2}, 2, []float64{0.5, 0.8}},
		{[]float64{4}, 3, []float64{1}},
		{[]float64{0, 0}, 2, []float64{0, 0}},
	}

	for i, test := range tests {
		got := CumulativeTop(test.counts, test.n)
		if len(got) != len(test.expected) {
			t.Errorf("%d: got %v, expected %v", i, got, test.expected)
			continue
		}
		for j := range got {
			if math.Abs(got[j]-test.expected[j]) > 1e-12 {
				t.Errorf("%d: Mismatch at %d: got %v, expected %v", i, j, got[j], test.expected[j])
			}
		}
	}
}

func TestDensitySeries(t *testing.T) {
	byName := map[string][]float64{
		"total":    {0.1, 0.4, 0.6, 0.45},
		"detected": {0.2, 0.85},
	}

	series, err := DensitySeries(byName, 8)
	if err != nil {
		t.Fatal(err)
	}

	if len(series) != 2 {
		t.Fatalf("got %d series, expected 2", len(series))
	}
	if series[0].Name != "detected" || series[1].Name != "total" {
		t.Errorf("got order %s, %s, expected sorted names", series[0].Name, series[1].Name)
	}

	for _, s := range series {
		if len(s.X) != 8 || len(s.Y) != 8 {
			t.Errorf("%s: got %d x %d bins, expected 8", s.Name, len(s.X), len(s.Y))
		}

		sum := 0.0
		for _, y := range s.Y {
			if y < 0 {
				t.Errorf("%s: negative density %v", s.Name, y)
			}
			sum += y
		}
		if sum <= 0 || sum > 1+1e-12 {
			t.Errorf("%s: densities sum to %v", s.Name, sum)
		}
	}

	if _, err := DensitySeries(map[string][]float64{}, 8); err == nil {
		t.Error("expected an error with no values")
	}
}

func TestLegendPanelAndAttach(t *testing.T) {
	entries := []LegendEntry{
		{Label: "g1", Color: color.RGBA{R: 255, A: 255}},
		{Label: "g2", Color: color.RGBA{G: 255, A: 255}},
		{Label: "g3", Color: color.RGBA{B: 255, A: 255}},
	}

	plot := image.NewNRGBA(image.Rect(0, 0, 100, 50))

	bottom := AttachLegend(plot, entries, LegendBottom, 1)
	if got := bottom.Bounds(); got.Dy() <= 50 {
		t.Errorf("got height %d, expected the panel to add height below the plot", got.Dy())
	}

	right := AttachLegend(plot, entries, LegendRight, 3)
	if got := right.Bounds(); got.Dx() <= 100 {
		t.Errorf("got width %d, expected the panel to add width beside the plot", got.Dx())
	}

	if same := AttachLegend(plot, entries, LegendNone, 1); same != image.Image(plot) {
		t.Error("expected position none to return the plot untouched")
	}
	if same := AttachLegend(plot, nil, LegendBottom, 1); same != image.Image(plot) {
		t.Error("expected an empty legend to return the plot untouched")
	}

	// Two rows over three entries makes a 2x2 grid.
	panel := legendPanel(entries, 2)
	expected := 2*legendPad + 2*legendRowH
	if got := panel.Bounds().Dy(); got != expected {
		t.Errorf("got panel height %d, expected %d", got, expected)
	}
}
