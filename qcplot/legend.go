package qcplot

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LegendEntry pairs a group label with its plot color.
type LegendEntry struct {
	Label string
	Color color.Color
}

const (
	legendSwatch = 10
	legendRowH   = 18
	legendPad    = 8
	legendGap    = 6
)

// legendPanel draws the entries as swatch+label cells arranged into the
// requested number of rows, reading left to right within a row.
func legendPanel(entries []LegendEntry, rows int) image.Image {
	if rows < 1 {
		rows = 1
	}
	if rows > len(entries) {
		rows = len(entries)
	}
	cols := (len(entries) + rows - 1) / rows

	face := basicfont.Face7x13
	measure := &font.Drawer{Face: face}

	cellW := 0
	for _, e := range entries {
		if w := measure.MeasureString(e.Label).Ceil(); w > cellW {
			cellW = w
		}
	}
	cellW += legendSwatch + 2*legendGap

	panel := image.NewNRGBA(image.Rect(0, 0, 2*legendPad+cols*cellW, 2*legendPad+rows*legendRowH))
	draw.Draw(panel, panel.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for i, e := range entries {
		x := legendPad + (i%cols)*cellW
		y := legendPad + (i/cols)*legendRowH

		swatch := image.Rect(x, y+(legendRowH-legendSwatch)/2, x+legendSwatch, y+(legendRowH+legendSwatch)/2)
		draw.Draw(panel, swatch, image.NewUniform(e.Color), image.Point{}, draw.Src)

		dr := &font.Drawer{
			Dst:  panel,
			Src:  image.NewUniform(color.Black),
			Face: face,
			Dot: fixed.Point26_6{
				X: fixed.I(x + legendSwatch + legendGap),
				Y: fixed.I(y + (legendRowH+face.Metrics().Ascent.Ceil())/2),
			},
		}
		dr.DrawString(e.Label)
	}

	return panel
}

// AttachLegend composites a legend panel onto one side of a rendered plot.
// Position none, or an empty entry list, returns the plot untouched.
func AttachLegend(plot image.Image, entries []LegendEntry, pos LegendPos, rows int) image.Image {
	if pos == LegendNone || len(entries) == 0 {
		return plot
	}

	panel := legendPanel(entries, rows)

	pb := plot.Bounds()
	lb := panel.Bounds()

	var w, h int
	var plotAt, panelAt image.Point
	switch pos {
	case LegendTop:
		w = maxInt(pb.Dx(), lb.Dx())
		h = pb.Dy() + lb.Dy()
		panelAt = image.Pt((w-lb.Dx())/2, 0)
		plotAt = image.Pt((w-pb.Dx())/2, lb.Dy())
	case LegendLeft:
		w = pb.Dx() + lb.Dx()
		h = maxInt(pb.Dy(), lb.Dy())
		panelAt = image.Pt(0, (h-lb.Dy())/2)
		plotAt = image.Pt(lb.Dx(), (h-pb.Dy())/2)
	case LegendRight:
		w = pb.Dx() + lb.Dx()
		h = maxInt(pb.Dy(), lb.Dy())
		plotAt = image.Pt(0, (h-pb.Dy())/2)
		panelAt = image.Pt(pb.Dx(), (h-lb.Dy())/2)
	default:
		w = maxInt(pb.Dx(), lb.Dx())
		h = pb.Dy() + lb.Dy()
		plotAt = image.Pt((w-pb.Dx())/2, 0)
		panelAt = image.Pt((w-lb.Dx())/2, pb.Dy())
	}

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, image.Rectangle{Min: plotAt, Max: plotAt.Add(pb.Size())}, plot, pb.Min, draw.Over)
	draw.Draw(out, image.Rectangle{Min: panelAt, Max: panelAt.Add(lb.Size())}, panel, lb.Min, draw.Over)

	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
