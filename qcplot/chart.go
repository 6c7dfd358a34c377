// Package qcplot renders the diagnostic figures for the QC report. Every
// renderer returns an in-memory image for the caller to place; none of them
// write files, and a renderer failure never takes down the run on its own.
package qcplot

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"

	"github.com/carbocation/pfx"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Point is one sample positioned on a two-dimensional plot, carrying the
// grouping-key value that decides its color.
type Point struct {
	X, Y  float64
	Group string
}

// Options carries the sizing and legend knobs shared by every renderer.
type Options struct {
	Width      int
	Height     int
	Palette    []color.Color
	LegendPos  LegendPos
	LegendRows int
}

// DefaultOptions sizes plots for an HTML report body with a one-row legend
// underneath.
func DefaultOptions() Options {
	return Options{
		Width:      640,
		Height:     480,
		Palette:    DefaultPalette(),
		LegendPos:  LegendBottom,
		LegendRows: 1,
	}
}

func (o Options) palette() []color.Color {
	if len(o.Palette) == 0 {
		return DefaultPalette()
	}
	return o.Palette
}

type pngRenderer interface {
	Render(chart.RendererProvider, io.Writer) error
}

// renderToImage renders a chart to a PNG byte buffer and decodes it back,
// so legend panels can be composited onto it afterward.
func renderToImage(graph pngRenderer) (image.Image, error) {
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, pfx.Err(err)
	}

	img, err := png.Decode(buffer)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return img, nil
}

// paddedRange widens the observed span so the chart never sees a zero-width
// domain, which it refuses to render.
func paddedRange(min, max float64) *chart.ContinuousRange {
	if min > max {
		min, max = max, min
	}
	if min == max {
		return &chart.ContinuousRange{Min: min - 1, Max: max + 1}
	}

	pad := 0.05 * (max - min)

	return &chart.ContinuousRange{Min: min - pad, Max: max + pad}
}

// pointStyle renders dots only, no connecting line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		DotWidth:    4,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 1.5,
		StrokeColor: col,
	}
}

// chartColor converts a palette color into the chart library's color type.
func chartColor(c color.Color) drawing.Color {
	r, g, b, a := c.RGBA()

	return drawing.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

// groupColors assigns palette colors to the sorted distinct group labels,
// cycling when the palette runs short. Sorting makes the assignment stable
// across plots within one report.
func groupColors(groups []string, palette []color.Color) map[string]color.Color {
	if len(palette) == 0 {
		palette = DefaultPalette()
	}

	distinct := make([]string, 0, len(groups))
	seen := make(map[string]struct{})
	for _, g := range groups {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		distinct = append(distinct, g)
	}
	sort.Strings(distinct)

	out := make(map[string]color.Color, len(distinct))
	for i, g := range distinct {
		out[g] = palette[i%len(palette)]
	}

	return out
}

func sortedGroups(colors map[string]color.Color) []string {
	out := make([]string, 0, len(colors))
	for g := range colors {
		out = append(out, g)
	}
	sort.Strings(out)

	return out
}

func legendEntries(colors map[string]color.Color) []LegendEntry {
	out := make([]LegendEntry, 0, len(colors))
	for _, g := range sortedGroups(colors) {
		out = append(out, LegendEntry{Label: g, Color: colors[g]})
	}

	return out
}
