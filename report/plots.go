package report

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"github.com/carbocation/scqc/dimred"
	"github.com/carbocation/scqc/qc"
	"github.com/carbocation/scqc/qcplot"
)

const (
	// compositionRanks is how deep the cumulative composition curves go.
	compositionRanks = 500

	// highestExprN is how many features the highest-expression figure shows.
	highestExprN = 50

	// densityBins is the bin count for the per-feature R-squared densities.
	densityBins = 40
)

// A PlotResult is one figure slot of the report: either a rendered image or
// a note explaining why the figure is absent. A failure inside a renderer
// never aborts the run; it becomes the note.
type PlotResult struct {
	Name       string
	Title      string
	Img        image.Image
	OmitReason string
}

// Omitted reports whether the slot carries a note instead of an image.
func (p PlotResult) Omitted() bool {
	return p.Img == nil
}

// renderPlot runs one renderer, converting an error or a panic into an
// omission note. Recovery happens only here, at the plot boundary, so a
// panic anywhere else in the pipeline still fails the run.
func renderPlot(name, title string, render func() (image.Image, error)) (out PlotResult) {
	out = PlotResult{Name: name, Title: title}

	defer func() {
		if r := recover(); r != nil {
			out.Img = nil
			out.OmitReason = fmt.Sprintf("plot unavailable: %v", r)
		}
	}()

	img, err := render()
	if err != nil {
		out.OmitReason = fmt.Sprintf("plot unavailable: %v", err)
		return out
	}

	out.Img = img

	return out
}

// omittedPlot fills a figure slot with a note and no renderer at all, for
// figures whose inputs were never produced.
func omittedPlot(name, title, reason string) PlotResult {
	return PlotResult{Name: name, Title: title, OmitReason: "plot unavailable: " + reason}
}

// plots renders every figure of the report in its fixed order: composition,
// expression distributions, highest expression, component correlations,
// explanatory variables, the per-sample scatters, then the embeddings.
// Control-dependent figures appear only when the control set was eligible.
func (e *Embedded) plots() []PlotResult {
	opt := e.cfg.plotOptions()

	out := []PlotResult{
		renderPlot("composition", "Cumulative share of counts in the top-expressed features", func() (image.Image, error) {
			return qcplot.CompositionCurves("Cumulative count share", sampleColumns(e.primary.Counts.Values), e.keys, compositionRanks, opt)
		}),
		renderPlot("expression_strip", "Per-sample expression distributions", func() (image.Image, error) {
			return qcplot.DistributionStrip(sampleColumns(dimred.EmbeddingInput(e.primary)))
		}),
		renderPlot("highest_expression", "Highest-expressing features", func() (image.Image, error) {
			return qcplot.HighestExpression(topFeatureShares(e.metrics, highestExprN), opt)
		}),
	}

	vars := e.explanatoryVariables()
	out = append(out, e.componentCorrelationPlots(vars, opt)...)
	out = append(out, renderPlot("explanatory_r2", "Density of per-feature variance explained", func() (image.Image, error) {
		return e.explanatoryDensity(vars, opt)
	}))

	out = append(out, e.metricScatters(opt)...)
	out = append(out, e.embeddingPlots(opt)...)

	return out
}

// componentCorrelationPlots builds one bar figure per explanatory variable,
// showing the variance each principal component shares with it.
func (e *Embedded) componentCorrelationPlots(vars []namedVector, opt qcplot.Options) []PlotResult {
	out := make([]PlotResult, 0, len(vars))

	for _, v := range vars {
		v := v
		name := "pc_corr_" + slug(v.name)
		title := fmt.Sprintf("Principal components vs %s", v.name)

		if e.pcaErr != nil {
			out = append(out, omittedPlot(name, title, e.pcaErr.Error()))
			continue
		}

		out = append(out, renderPlot(name, title, func() (image.Image, error) {
			r2, err := dimred.PCCorrelations(e.pca, v.values, e.cfg.Components)
			if err != nil {
				return nil, err
			}

			bars := make([]qcplot.BarValue, 0, len(r2))
			for i, r := range r2 {
				if math.IsNaN(r) {
					continue
				}
				bars = append(bars, qcplot.BarValue{Label: fmt.Sprintf("PC%d", i+1), Value: r})
			}
			if len(bars) == 0 {
				return nil, fmt.Errorf("no component had a usable fit against %s", v.name)
			}

			return qcplot.CorrelationBars(fmt.Sprintf("R-squared with %s", v.name), bars, opt)
		}))
	}

	return out
}

// explanatoryDensity overlays, per explanatory variable, the density of
// per-feature R-squared values against that variable.
func (e *Embedded) explanatoryDensity(vars []namedVector, opt qcplot.Options) (image.Image, error) {
	expr := dimred.EmbeddingInput(e.primary)

	byName := make(map[string][]float64, len(vars))
	for _, v := range vars {
		r2, err := dimred.ExplainedByCovariate(expr, v.values)
		if err != nil {
			return nil, err
		}

		kept := make([]float64, 0, len(r2))
		for _, r := range r2 {
			if math.IsNaN(r) {
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) > 0 {
			byName[v.name] = kept
		}
	}
	if len(byName) == 0 {
		return nil, fmt.Errorf("no explanatory variable had a usable fit")
	}

	series, err := qcplot.DensitySeries(byName, densityBins)
	if err != nil {
		return nil, err
	}

	return qcplot.Curves("Per-feature R-squared density", "R-squared", "Density", series, opt)
}

// metricScatters builds the per-sample metric scatters, colored by the
// grouping key, plus the spike-in figures when the controls are eligible.
func (e *Embedded) metricScatters(opt qcplot.Options) []PlotResult {
	out := []PlotResult{
		renderPlot("scatter_detected_total", "Detected features vs library size", func() (image.Image, error) {
			pts := make([]qcplot.Point, len(e.metrics.Samples))
			for i, sm := range e.metrics.Samples {
				pts[i] = qcplot.Point{X: math.Log10(sm.Total + 1), Y: float64(sm.Detected), Group: e.keys[i]}
			}
			return qcplot.GroupedScatter("Detected features", "log10 total counts", "Detected features", pts, opt)
		}),
		renderPlot("scatter_top_total", fmt.Sprintf("Share of counts in the top %d features vs library size", e.cfg.TopK), func() (image.Image, error) {
			pts := make([]qcplot.Point, len(e.metrics.Samples))
			for i, sm := range e.metrics.Samples {
				pts[i] = qcplot.Point{X: math.Log10(sm.Total + 1), Y: sm.PctTopK, Group: e.keys[i]}
			}
			return qcplot.GroupedScatter(fmt.Sprintf("%% counts in top %d features", e.cfg.TopK), "log10 total counts", "% of total counts", pts, opt)
		}),
	}

	if e.metrics.HasControls() {
		out = append(out, renderPlot("scatter_control_total", "Spike-in share vs library size", func() (image.Image, error) {
			pts := make([]qcplot.Point, len(e.metrics.Samples))
			for i, sm := range e.metrics.Samples {
				pts[i] = qcplot.Point{X: math.Log10(sm.Total + 1), Y: sm.PctControl, Group: e.keys[i]}
			}
			return qcplot.GroupedScatter("% spike-in counts", "log10 total counts", "% of total counts", pts, opt)
		}))

		if len(e.cfg.Concentrations) > 0 {
			out = append(out, renderPlot("spike_dose_response", "Spike-in dose-response fit per sample", func() (image.Image, error) {
				fits := qc.SpikeDoseResponse(e.set, e.primary, e.cfg.Concentrations)

				pts := make([]qcplot.Point, 0, len(fits))
				for i, fit := range fits {
					if !fit.Ok {
						continue
					}
					pts = append(pts, qcplot.Point{X: math.Log10(e.metrics.Samples[i].Total + 1), Y: fit.R2, Group: e.keys[i]})
				}
				if len(pts) == 0 {
					return nil, fmt.Errorf("no sample had enough spike-ins for a fit")
				}

				return qcplot.GroupedScatter("Dose-response R-squared", "log10 total counts", "R-squared", pts, opt)
			}))
		}
	}

	return out
}

// embeddingPlots builds one PCA and one t-SNE scatter per grouping column,
// colored by that column's values.
func (e *Embedded) embeddingPlots(opt qcplot.Options) []PlotResult {
	out := make([]PlotResult, 0, 2*len(e.cfg.PhenoID))

	for _, col := range e.cfg.PhenoID {
		col := col
		name := "pca_" + slug(col)
		title := fmt.Sprintf("PCA colored by %s", col)

		if e.pcaErr != nil {
			out = append(out, omittedPlot(name, title, e.pcaErr.Error()))
			continue
		}

		out = append(out, renderPlot(name, title, func() (image.Image, error) {
			if e.pca.NComponents() < 2 {
				return nil, fmt.Errorf("only %d principal component(s) were recoverable", e.pca.NComponents())
			}

			groups := e.columnValues(col)
			x := e.pca.Component(0)
			y := e.pca.Component(1)

			pts := make([]qcplot.Point, len(x))
			for i := range x {
				pts[i] = qcplot.Point{X: x[i], Y: y[i], Group: groups[i]}
			}

			xl := fmt.Sprintf("PC1 (%.1f%%)", 100*e.pca.VarExplained[0])
			yl := fmt.Sprintf("PC2 (%.1f%%)", 100*e.pca.VarExplained[1])

			return qcplot.GroupedScatter(title, xl, yl, pts, opt)
		}))
	}

	for _, col := range e.cfg.PhenoID {
		col := col
		name := "tsne_" + slug(col)
		title := fmt.Sprintf("t-SNE colored by %s", col)

		if e.tsneErr != nil {
			out = append(out, omittedPlot(name, title, e.tsneErr.Error()))
			continue
		}

		out = append(out, renderPlot(name, title, func() (image.Image, error) {
			groups := e.columnValues(col)

			pts := make([]qcplot.Point, len(e.tsne))
			for i, xy := range e.tsne {
				pts[i] = qcplot.Point{X: xy[0], Y: xy[1], Group: groups[i]}
			}

			return qcplot.GroupedScatter(title, "t-SNE 1", "t-SNE 2", pts, opt)
		}))
	}

	return out
}

// A namedVector is one explanatory covariate over the samples, NaN where a
// sample has no usable value.
type namedVector struct {
	name   string
	values []float64
}

// explanatoryVariables builds the covariates the report examines: each
// grouping column (numeric columns as-is, date columns as days since the
// earliest date, anything else coded by sorted rank), the base QC metrics,
// and the control share when the control set is eligible.
func (e *Embedded) explanatoryVariables() []namedVector {
	vars := make([]namedVector, 0, len(e.cfg.PhenoID)+4)

	for _, col := range e.cfg.PhenoID {
		if vals, ok := e.set.Pheno.Numeric(col, e.set.Samples); ok {
			vars = append(vars, namedVector{name: col, values: vals})
			continue
		}
		if vals, err := e.set.Pheno.DaysSince(col, e.set.Samples); err == nil {
			vars = append(vars, namedVector{name: col + " (days)", values: vals})
			continue
		}
		vars = append(vars, namedVector{name: col, values: categoricalCodes(e.columnValues(col))})
	}

	n := len(e.metrics.Samples)
	totals := make([]float64, n)
	detected := make([]float64, n)
	topShare := make([]float64, n)
	for i, sm := range e.metrics.Samples {
		totals[i] = math.Log10(sm.Total + 1)
		detected[i] = float64(sm.Detected)
		topShare[i] = sm.PctTopK
	}

	vars = append(vars,
		namedVector{name: "log10 total counts", values: totals},
		namedVector{name: "detected features", values: detected},
		namedVector{name: fmt.Sprintf("pct counts in top %d", e.cfg.TopK), values: topShare},
	)

	if e.metrics.HasControls() {
		ctl := make([]float64, n)
		for i, sm := range e.metrics.Samples {
			ctl[i] = sm.PctControl
		}
		vars = append(vars, namedVector{name: "pct spike-in counts", values: ctl})
	}

	return vars
}

// columnValues reads one annotation column across the set's samples, with
// "NA" standing in for missing cells.
func (e *Embedded) columnValues(col string) []string {
	out := make([]string, len(e.set.Samples))
	for i, sample := range e.set.Samples {
		v := e.set.Pheno.Value(sample, col)
		if !v.Valid {
			out[i] = "NA"
			continue
		}
		out[i] = v.String
	}

	return out
}

// categoricalCodes maps each distinct value to its rank in sorted order, so
// a categorical column can enter a regression. "NA" cells come back as NaN
// and drop out pairwise.
func categoricalCodes(values []string) []float64 {
	distinct := make(map[string]struct{})
	for _, v := range values {
		if v == "NA" {
			continue
		}
		distinct[v] = struct{}{}
	}

	levels := make([]string, 0, len(distinct))
	for v := range distinct {
		levels = append(levels, v)
	}
	sort.Strings(levels)

	code := make(map[string]float64, len(levels))
	for i, v := range levels {
		code[v] = float64(i)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if c, ok := code[v]; ok {
			out[i] = c
			continue
		}
		out[i] = math.NaN()
	}

	return out
}

// topFeatureShares adapts the feature table's top entries for the
// highest-expression figure.
func topFeatureShares(m *qc.Metrics, n int) []qcplot.FeatureShare {
	top := m.TopFeatures(n)

	out := make([]qcplot.FeatureShare, len(top))
	for i, fm := range top {
		out[i] = qcplot.FeatureShare{Feature: fm.Feature, Pct: fm.PctTotal}
	}

	return out
}

// sampleColumns transposes a feature-by-sample matrix into one slice per
// sample.
func sampleColumns(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}

	out := make([][]float64, len(x[0]))
	for j := range out {
		col := make([]float64, len(x))
		for i := range x {
			col[i] = x[i][j]
		}
		out[j] = col
	}

	return out
}

// slug turns a human-readable label into a file- and anchor-safe name.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return strings.Trim(b.String(), "_")
}
