package qcplot

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"

	"github.com/carbocation/go-quantize/quantize"
	"github.com/disintegration/imaging"
)

// EmbeddingFrame rasterizes one intermediate embedding as a plain dot
// field with the same group colors as the final scatter. It carries no
// axes; it exists to be an animation frame.
func EmbeddingFrame(pts []Point, size int, opt Options) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	if len(pts) == 0 {
		return img
	}

	groups := make([]string, 0, len(pts))
	xMin, xMax := pts[0].X, pts[0].X
	yMin, yMax := pts[0].Y, pts[0].Y
	for _, p := range pts {
		groups = append(groups, p.Group)
		if p.X < xMin {
			xMin = p.X
		}
		if p.X > xMax {
			xMax = p.X
		}
		if p.Y < yMin {
			yMin = p.Y
		}
		if p.Y > yMax {
			yMax = p.Y
		}
	}
	if xMax == xMin {
		xMax = xMin + 1
	}
	if yMax == yMin {
		yMax = yMin + 1
	}

	colors := groupColors(groups, opt.palette())

	span := float64(size - 8)
	for _, p := range pts {
		px := 4 + int(span*(p.X-xMin)/(xMax-xMin))
		py := 4 + int(span*(p.Y-yMin)/(yMax-yMin))

		col := colors[p.Group]
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				img.Set(px+dx, py+dy, col)
			}
		}
	}

	return img
}

// ConvergenceGIF assembles animation frames into a gif. The quantized
// palette is built from all frames and shared across them; every frame is
// resized to the requested width first so the frames agree on bounds.
func ConvergenceGIF(frames []image.Image, width int, delay int) (*gif.GIF, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to animate")
	}

	resized := make([]image.Image, 0, len(frames))
	for _, frame := range frames {
		resized = append(resized, imaging.Resize(frame, width, 0, imaging.NearestNeighbor))
	}

	quantizer := quantize.MedianCutQuantizer{
		Aggregation:    quantize.Mean,
		Weighting:      nil,
		AddTransparent: false,
	}

	pal := quantizer.QuantizeMultiple(make([]color.Color, 0, 256), resized)

	outGif := &gif.GIF{}
	for _, frame := range resized {
		palettedImage := image.NewPaletted(frame.Bounds(), pal)
		draw.Draw(palettedImage, frame.Bounds(), frame, image.Point{}, draw.Over)

		outGif.Image = append(outGif.Image, palettedImage)
		outGif.Delay = append(outGif.Delay, delay)
	}

	return outGif, nil
}
