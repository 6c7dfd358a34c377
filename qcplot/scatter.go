package qcplot

import (
	"errors"
	"image"

	chart "github.com/wcharczuk/go-chart/v2"
)

// GroupedScatter plots one dot per sample, one colored series per distinct
// group value, with the legend attached per the options. It backs the
// embedding plots and the phenotype metric-vs-metric plots.
func GroupedScatter(title, xLabel, yLabel string, pts []Point, opt Options) (image.Image, error) {
	if len(pts) == 0 {
		return nil, errors.New("no points to plot")
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

	colors := groupColors(groups, opt.palette())

	series := make([]chart.Series, 0, len(colors))
	for _, g := range sortedGroups(colors) {
		xs := make([]float64, 0, len(pts))
		ys := make([]float64, 0, len(pts))
		for _, p := range pts {
			if p.Group != g {
				continue
			}
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}

		series = append(series, chart.ContinuousSeries{
			Name:    g,
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(chartColor(colors[g])),
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  opt.Width,
		Height: opt.Height,
		XAxis: chart.XAxis{
			Name:  xLabel,
			Range: paddedRange(xMin, xMax),
		},
		YAxis: chart.YAxis{
			Name:  yLabel,
			Range: paddedRange(yMin, yMax),
		},
		Series: series,
	}

	img, err := renderToImage(graph)
	if err != nil {
		return nil, err
	}

	return AttachLegend(img, legendEntries(colors), opt.LegendPos, opt.LegendRows), nil
}
