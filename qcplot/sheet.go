package qcplot

import (
	"errors"
	"image"
	"math"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

// OverviewSheet lays the report's rendered images out on one grid sheet,
// sized in millimeters like a print figure, and rasterizes it.
func OverviewSheet(images []image.Image, widthMM, heightMM float64) (image.Image, error) {
	if len(images) == 0 {
		return nil, errors.New("no images for the sheet")
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(images)))))
	rows := (len(images) + cols - 1) / cols

	cellW := widthMM / float64(cols)
	cellH := heightMM / float64(rows)

	c := canvas.New(widthMM, heightMM)

	for i, img := range images {
		bounds := img.Bounds()
		if bounds.Dx() == 0 || bounds.Dy() == 0 {
			continue
		}

		// Fit the image inside its grid cell, preserving aspect
		scale := cellW / float64(bounds.Dx())
		if s := cellH / float64(bounds.Dy()); s < scale {
			scale = s
		}

		x := float64(i%cols) * cellW
		y := float64(i/cols) * cellH

		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV)
		ctx.Scale(scale, scale)
		ctx.DrawImage(x/scale, y/scale, img, 1)
	}

	return rasterizer.Draw(c, canvas.Resolution(1.9), canvas.DefaultColorSpace), nil
}
