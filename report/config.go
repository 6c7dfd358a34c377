// Package report drives the full QC run: it stages the pipeline from a raw
// expression set through metrics, filtering, and embeddings, renders the
// figures, and assembles the final HTML document plus its tabular exports.
package report

import (
	"fmt"
	"image/color"

	"github.com/carbocation/scqc/dimred"
	"github.com/carbocation/scqc/qc"
	"github.com/carbocation/scqc/qcplot"
)

// DefaultComponents is how many principal components are computed when the
// configuration does not say otherwise.
const DefaultComponents = 10

// Config controls one report run. ID names the run in the document title and
// the export tables; PhenoID names the annotation columns whose joined
// values group the samples. Zero values fall back to the package defaults.
type Config struct {
	ID         string
	PhenoID    []string
	LegendRows int
	LegendPos  qcplot.LegendPos

	ControlPrefix string
	MinDetected   int
	TopK          int
	TopVariable   int
	Components    int
	Seed          int64

	Palette []color.Color

	// Concentrations, when non-nil, is the known spike-in input mix
	// (feature name to concentration) and turns on the dose-response
	// figure. AnimateTSNE turns on frame capture for the convergence
	// animation.
	Concentrations map[string]float64
	AnimateTSNE    bool
}

func (c Config) withDefaults() Config {
	if c.LegendRows < 1 {
		c.LegendRows = 1
	}
	if c.LegendPos == "" {
		c.LegendPos = qcplot.LegendBottom
	}
	if c.ControlPrefix == "" {
		c.ControlPrefix = qc.DefaultControlPrefix
	}
	if c.MinDetected <= 0 {
		c.MinDetected = qc.DefaultMinDetected
	}
	if c.TopK <= 0 {
		c.TopK = qc.TopK
	}
	if c.TopVariable <= 0 {
		c.TopVariable = dimred.DefaultTopVariable
	}
	if c.Components <= 0 {
		c.Components = DefaultComponents
	}
	if len(c.Palette) == 0 {
		c.Palette = qcplot.DefaultPalette()
	}

	return c
}

func (c Config) validate() error {
	if c.ID == "" {
		return &ConfigurationError{Err: fmt.Errorf("a report id is required")}
	}
	if len(c.PhenoID) == 0 {
		return &ConfigurationError{Err: fmt.Errorf("at least one grouping column is required")}
	}
	if _, err := qcplot.ParseLegendPos(string(c.LegendPos)); err != nil {
		return &ConfigurationError{Err: err}
	}

	return nil
}

func (c Config) plotOptions() qcplot.Options {
	opt := qcplot.DefaultOptions()
	opt.Palette = c.Palette
	opt.LegendPos = c.LegendPos
	opt.LegendRows = c.LegendRows

	return opt
}
