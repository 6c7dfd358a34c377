package quant

import (
	"fmt"
	"strconv"
)

var defaultParseRow = func(layout *Layout, row []string) (Abundance, error) {
	widest := layout.ColFeature
	for _, col := range []int{layout.ColLength, layout.ColEffLength, layout.ColTPM, layout.ColCount} {
		if col > widest {
			widest = col
		}
	}
	if len(row) <= widest {
		return Abundance{}, fmt.Errorf("row has %d fields; the layout needs at least %d", len(row), widest+1)
	}

	a := Abundance{}
	a.Feature = row[layout.ColFeature]

	if length, err := strconv.ParseFloat(row[layout.ColLength], 64); err != nil {
		return a, err
	} else {
		a.Length = length
	}

	if effLength, err := strconv.ParseFloat(row[layout.ColEffLength], 64); err != nil {
		return a, err
	} else {
		a.EffectiveLength = effLength
	}

	if tpm, err := strconv.ParseFloat(row[layout.ColTPM], 64); err != nil {
		return a, err
	} else {
		a.TPM = tpm
	}

	if count, err := strconv.ParseFloat(row[layout.ColCount], 64); err != nil {
		return a, err
	} else {
		a.Count = count
	}

	return a, nil
}
