package qc

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/carbocation/scqc"
	"github.com/carbocation/scqc/expset"
	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// A SpikeConcentration row pairs one spike-in feature with its known input
// concentration (attomoles/ul in the mix).
type SpikeConcentration struct {
	Feature       string  `csv:"feature"`
	Concentration float64 `csv:"concentration"`
}

// DoseResponse is one sample's linear fit of observed spike-in expression
// (log2 count+1) against known log2 input concentration. Ok is false when
// fewer than three spike-ins were usable.
type DoseResponse struct {
	Sample string
	N      int
	R2     float64
	Ok     bool
}

// LoadSpikeConcentrations reads a delimited file with feature and
// concentration columns. Rows with nonpositive concentrations are dropped,
// since they cannot enter a log-log fit.
func LoadSpikeConcentrations(path string) (map[string]float64, error) {
	f, err := scqc.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = '\t'
		r.LazyQuotes = true
		return r
	})

	var rows []*SpikeConcentration
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		if row.Concentration <= 0 {
			continue
		}
		out[row.Feature] = row.Concentration
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no usable spike-in concentrations", path)
	}

	return out, nil
}

// SpikeDoseResponse fits each sample's observed spike-in counts against the
// known concentrations. A clean library recovers input concentration well;
// a low R2 flags inefficient capture in that sample.
func SpikeDoseResponse(set *expset.Set, primary Primary, concentrations map[string]float64) []DoseResponse {
	counts := primary.Counts.Values

	spikeRows := make([]int, 0, len(concentrations))
	logConc := make([]float64, 0, len(concentrations))
	for i, feature := range set.Features {
		conc, ok := concentrations[feature]
		if !ok {
			continue
		}
		spikeRows = append(spikeRows, i)
		logConc = append(logConc, math.Log2(conc))
	}

	out := make([]DoseResponse, set.NSamples())
	for j, sample := range set.Samples {
		dr := DoseResponse{Sample: sample, N: len(spikeRows)}

		if dr.N >= 3 {
			obs := make([]float64, len(spikeRows))
			for k, i := range spikeRows {
				obs[k] = math.Log2(counts[i][j] + 1)
			}

			alpha, beta := stat.LinearRegression(logConc, obs, nil, false)
			est := make([]float64, len(logConc))
			for k, x := range logConc {
				est[k] = alpha + beta*x
			}

			dr.R2 = stat.RSquaredFrom(est, obs, nil)
			dr.Ok = !math.IsNaN(dr.R2)
		}

		out[j] = dr
	}

	return out
}
