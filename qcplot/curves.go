package qcplot

import (
	"errors"
	"image"
	"sort"

	"github.com/carbocation/pfx"
	hist2 "github.com/grd/histogram"
	chart "github.com/wcharczuk/go-chart/v2"
)

// Series is one named polyline. Name carries the legend label; series that
// share a Name share a color and one legend entry, which is how the per
// sample composition curves get colored by group.
type Series struct {
	Name string
	X, Y []float64
}

// Curves renders the series as colored polylines over shared axes.
func Curves(title, xLabel, yLabel string, curves []Series, opt Options) (image.Image, error) {
	if len(curves) == 0 {
		return nil, errors.New("no curves to plot")
	}

	names := make([]string, 0, len(curves))
	var xMin, xMax, yMin, yMax float64
	first := true
	for _, curve := range curves {
		if len(curve.X) != len(curve.Y) {
			return nil, errors.New("curve X and Y lengths differ")
		}

		names = append(names, curve.Name)
		for i, x := range curve.X {
			y := curve.Y[i]
			if first {
				xMin, xMax, yMin, yMax = x, x, y, y
				first = false
				continue
			}
			if x < xMin {
				xMin = x
			}
			if x > xMax {
				xMax = x
			}
			if y < yMin {
				yMin = y
			}
			if y > yMax {
				yMax = y
			}
		}
	}
	if first {
		return nil, errors.New("no values to plot")
	}

	colors := groupColors(names, opt.palette())

	series := make([]chart.Series, 0, len(curves))
	for _, curve := range curves {
		if len(curve.X) == 0 {
			continue
		}

		series = append(series, chart.ContinuousSeries{
			Name:    curve.Name,
			XValues: curve.X,
			YValues: curve.Y,
			Style:   lineStyle(chartColor(colors[curve.Name])),
		})
	}
	if len(series) == 0 {
		return nil, errors.New("no values to plot")
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

// CumulativeTop returns the running share of a library held by its most
// expressed features: element k is the proportion captured by the k+1
// highest counts.
func CumulativeTop(counts []float64, n int) []float64 {
	sorted := append([]float64(nil), counts...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	total := 0.0
	for _, v := range sorted {
		total += v
	}

	if n > len(sorted) {
		n = len(sorted)
	}

	out := make([]float64, 0, n)
	running := 0.0
	for i := 0; i < n; i++ {
		running += sorted[i]
		if total > 0 {
			out = append(out, running/total)
		} else {
			out = append(out, 0)
		}
	}

	return out
}

// CompositionCurves builds one cumulative-proportion curve per sample over
// its top n features, colored by the sample's group.
func CompositionCurves(title string, counts [][]float64, groups []string, n int, opt Options) (image.Image, error) {
	if len(counts) != len(groups) {
		return nil, errors.New("sample count and group label count differ")
	}

	curves := make([]Series, 0, len(counts))
	for i := range counts {
		y := CumulativeTop(counts[i], n)
		curves = append(curves, Series{Name: groups[i], X: rankSeq(len(y)), Y: y})
	}

	return Curves(title, "Feature rank", "Cumulative proportion of library", curves, opt)
}

func rankSeq(n int) []float64 {
	out := make([]float64, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, float64(i))
	}

	return out
}

// DensitySeries bins each named value set over a shared range and converts
// bin counts to fractions, yielding one comparable density polyline per
// name, sorted by name.
func DensitySeries(byName map[string][]float64, nBins int) ([]Series, error) {
	if nBins < 1 {
		return nil, errors.New("need at least one bin")
	}

	names := make([]string, 0, len(byName))
	min, max := 0.0, 0.0
	first := true
	for name, vals := range byName {
		names = append(names, name)
		for _, v := range vals {
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if first {
		return nil, errors.New("no values to bin")
	}
	if min == max {
		max = min + 1
	}
	sort.Strings(names)

	width := (max - min) / float64(nBins)

	out := make([]Series, 0, len(names))
	for _, name := range names {
		vals := byName[name]
		if len(vals) == 0 {
			continue
		}

		hg, err := hist2.NewHistogram(hist2.Range(min, uint(nBins), width))
		if err != nil {
			return nil, pfx.Err(err)
		}
		for _, v := range vals {
			hg.Add(v)
		}

		x := make([]float64, 0, nBins)
		y := make([]float64, 0, nBins)
		for k := 0; k < nBins; k++ {
			x = append(x, min+(float64(k)+0.5)*width)
			y = append(y, float64(hg.Get(k))/float64(len(vals)))
		}

		out = append(out, Series{Name: name, X: x, Y: y})
	}

	return out, nil
}
