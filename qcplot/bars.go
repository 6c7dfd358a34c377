package qcplot

import (
	"errors"
	"image"

	chart "github.com/wcharczuk/go-chart/v2"
)

// BarValue labels a single bar.
type BarValue struct {
	Label string
	Value float64
}

// CorrelationBars charts R-squared values on a fixed 0..1 scale, one bar
// per principal component.
func CorrelationBars(title string, bars []BarValue, opt Options) (image.Image, error) {
	if len(bars) == 0 {
		return nil, errors.New("no bars to plot")
	}

	values := make([]chart.Value, 0, len(bars))
	for _, b := range bars {
		values = append(values, chart.Value{Label: b.Label, Value: b.Value})
	}

	// Size bars and gaps to fit the requested width no matter how many
	// components are charted.
	barWidth := (opt.Width - 100) / (2 * len(bars))
	if barWidth < 4 {
		barWidth = 4
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      opt.Width,
		Height:     opt.Height,
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Bars: values,
	}

	return renderToImage(graph)
}
