package qcplot

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/carbocation/pfx"
	hist2 "github.com/grd/histogram"
	"github.com/montanaflynn/stats"
)

const (
	stripBins      = 100
	stripColWidth  = 6
	stripBinHeight = 4
)

// DistributionStrip rasterizes one histogram ribbon per sample: each column
// is a sample in the given order, each row a log-expression bin, and
// brightness the log-scaled share of features in the bin. The blue tick
// marks the sample's median. Samples from the same group should be passed
// adjacent so batch structure shows up as vertical banding.
func DistributionStrip(values [][]float64) (image.Image, error) {
	if len(values) == 0 {
		return nil, errors.New("no samples to plot")
	}

	min := math.MaxFloat64
	max := -math.MaxFloat64
	for _, sample := range values {
		for _, v := range sample {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if min > max {
		return nil, errors.New("no values to plot")
	}
	if min == max {
		max = min + 1
	}

	outImg := image.NewNRGBA(image.Rect(0, 0, stripColWidth*len(values), stripBinHeight*stripBins))
	for y := 0; y < stripBinHeight*stripBins; y++ {
		for x := 0; x < stripColWidth*len(values); x++ {
			outImg.Set(x, y, color.NRGBA{R: 0, G: 0, B: 0, A: 255})
		}
	}

	for x, sample := range values {
		hg, err := hist2.NewHistogram(hist2.Range(min, uint(stripBins), (max-min)/float64(stripBins)))
		if err != nil {
			return nil, pfx.Err(err)
		}

		for _, v := range sample {
			hg.Add(v)
		}

		maxCount := 0
		for y := 0; y < stripBins; y++ {
			if v := hg.Get(y); v > maxCount {
				maxCount = v
			}
		}
		if maxCount == 0 {
			continue
		}

		logCount := math.Log1p(float64(maxCount))

		for y := 0; y < stripBins; y++ {
			logRatio := math.Log1p(float64(hg.Get(y))) / logCount

			val := uint8(math.Floor(255 * logRatio))
			if val == 0 {
				continue
			}

			for ymul := 0; ymul < stripBinHeight; ymul++ {
				for xmul := 0; xmul < stripColWidth; xmul++ {
					outImg.Set(x*stripColWidth+xmul, y*stripBinHeight+ymul, color.NRGBA{R: val, G: val, B: val, A: 255})
				}
			}
		}

		// Mark the median expression bin
		med, err := stats.Median(sample)
		if err != nil {
			continue
		}
		binWithMedian, err := hg.Find(med)
		if err != nil {
			continue
		}
		for ymul := 0; ymul < stripBinHeight; ymul++ {
			for xmul := 0; xmul < stripColWidth; xmul++ {
				outImg.Set(x*stripColWidth+xmul, binWithMedian*stripBinHeight+ymul, color.NRGBA{R: 0, G: 0, B: 255, A: 255})
			}
		}
	}

	return outImg, nil
}
