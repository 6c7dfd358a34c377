package qc

import (
	"github.com/carbocation/pfx"
	"github.com/gonum/stat"
	"github.com/montanaflynn/stats"
)

// DefaultNMADs is how many median-absolute-deviations from the cohort
// median a metric may sit before its sample is flagged.
const DefaultNMADs = 3.0

// OutlierFlags marks how one sample's metrics deviate from the cohort.
// Library size and detected features flag on the low tail; control share
// flags on the high tail, since dying cells lose endogenous transcripts and
// the spike-in fraction balloons.
type OutlierFlags struct {
	Sample      string
	LowTotal    bool
	LowDetected bool
	HighControl bool
}

// Flagged reports whether any metric flagged the sample.
func (f OutlierFlags) Flagged() bool {
	return f.LowTotal || f.LowDetected || f.HighControl
}

// FlagOutliers grades every sample in the metrics table against
// median +/- nmads*MAD fences. The control fence is only applied when the
// control set was eligible.
func FlagOutliers(m *Metrics, nmads float64) ([]OutlierFlags, error) {
	n := len(m.Samples)
	totals := make([]float64, n)
	detected := make([]float64, n)
	control := make([]float64, n)
	for i, sm := range m.Samples {
		totals[i] = sm.Total
		detected[i] = float64(sm.Detected)
		control[i] = sm.PctControl
	}

	lowTotal, _, err := fences(totals, nmads)
	if err != nil {
		return nil, err
	}
	lowDetected, _, err := fences(detected, nmads)
	if err != nil {
		return nil, err
	}

	var highControl float64
	if m.HasControls() {
		_, highControl, err = fences(control, nmads)
		if err != nil {
			return nil, err
		}
	}

	flags := make([]OutlierFlags, n)
	for i, sm := range m.Samples {
		flags[i] = OutlierFlags{
			Sample:      sm.Sample,
			LowTotal:    sm.Total < lowTotal,
			LowDetected: float64(sm.Detected) < lowDetected,
			HighControl: m.HasControls() && sm.PctControl > highControl,
		}
	}

	return flags, nil
}

func fences(vals []float64, nmads float64) (lo, hi float64, err error) {
	med, err := stats.Median(vals)
	if err != nil {
		return 0, 0, pfx.Err(err)
	}

	mad, err := stats.MedianAbsoluteDeviation(vals)
	if err != nil {
		return 0, 0, pfx.Err(err)
	}

	return med - nmads*mad, med + nmads*mad, nil
}

// FlagOutliersSD is the mean +/- N-standard-deviation variant of
// FlagOutliers. Unlike the MAD fences it is sensitive to the outliers it is
// hunting, so it is offered as an option rather than the default.
func FlagOutliersSD(m *Metrics, nStandardDeviations float64) []OutlierFlags {
	n := len(m.Samples)
	totals := make([]float64, n)
	detected := make([]float64, n)
	control := make([]float64, n)
	for i, sm := range m.Samples {
		totals[i] = sm.Total
		detected[i] = float64(sm.Detected)
		control[i] = sm.PctControl
	}

	totalMean, totalSD := stat.MeanStdDev(totals, nil)
	detectedMean, detectedSD := stat.MeanStdDev(detected, nil)

	var controlMean, controlSD float64
	if m.HasControls() {
		controlMean, controlSD = stat.MeanStdDev(control, nil)
	}

	flags := make([]OutlierFlags, n)
	for i, sm := range m.Samples {
		flags[i] = OutlierFlags{
			Sample:      sm.Sample,
			LowTotal:    sm.Total < totalMean-nStandardDeviations*totalSD,
			LowDetected: float64(sm.Detected) < detectedMean-nStandardDeviations*detectedSD,
			HighControl: m.HasControls() && sm.PctControl > controlMean+nStandardDeviations*controlSD,
		}
	}

	return flags
}
