package qcplot

import (
	"errors"
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

// FeatureShare is one feature's average share of a library, in percent.
type FeatureShare struct {
	Feature string
	Pct     float64
}

const (
	highExprRowH   = 16
	highExprMargin = 10
	highExprLabelW = 180
)

// HighestExpression draws horizontal bars for the features that dominate
// the libraries, in the order given (most expressed first).
func HighestExpression(shares []FeatureShare, opt Options) (image.Image, error) {
	if len(shares) == 0 {
		return nil, errors.New("no features to plot")
	}

	maxPct := shares[0].Pct
	for _, s := range shares[1:] {
		if s.Pct > maxPct {
			maxPct = s.Pct
		}
	}
	if maxPct <= 0 {
		maxPct = 1
	}

	width := opt.Width
	if width < highExprLabelW+120 {
		width = highExprLabelW + 120
	}
	height := 2*highExprMargin + len(shares)*highExprRowH

	ctx := gg.NewContext(width, height)
	ctx.SetFontFace(basicfont.Face7x13)

	ctx.SetRGB(1, 1, 1)
	ctx.Clear()

	barColor := opt.palette()[0]

	// Reserve room to the right of the longest bar for its value label.
	barSpan := float64(width - highExprLabelW - 2*highExprMargin - 60)

	for i, s := range shares {
		y := float64(highExprMargin + i*highExprRowH)
		barLen := barSpan * s.Pct / maxPct

		ctx.SetColor(barColor)
		ctx.DrawRectangle(highExprLabelW, y+3, barLen, highExprRowH-6)
		ctx.Fill()

		label := s.Feature
		if len(label) > 23 {
			label = label[:20] + "..."
		}

		ctx.SetRGB(0, 0, 0)
		ctx.DrawString(label, highExprMargin, y+11)
		ctx.DrawString(fmt.Sprintf("%.2f%%", s.Pct), highExprLabelW+barLen+4, y+11)
	}

	return ctx.Image(), nil
}
