package quant

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"github.com/carbocation/scqc"
	"github.com/carbocation/scqc/expset"
)

// A SampleFile names one sample and the abundance file that quantified it.
type SampleFile struct {
	Sample string
	Path   string
}

// ReadAbundances parses one quantification output with the given parser. A
// header row is permitted and skipped.
func ReadAbundances(r io.Reader, parser *Parser) ([]Abundance, error) {
	reader := csv.NewReader(r)
	reader.Comma = parser.CSVReaderSettings.Comma
	reader.Comment = parser.CSVReaderSettings.Comment
	reader.TrimLeadingSpace = parser.CSVReaderSettings.TrimLeadingSpace

	var out []Abundance
	for i := 0; ; i++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		val, err := parser.ParseRow(row)
		if err != nil && i == 0 {
			// Permit a header and skip it
			continue
		} else if err != nil {
			return nil, pfx.Err(err)
		}

		out = append(out, val)
	}

	return out, nil
}

// LoadAbundances opens path, removing any compression layer, and parses it
// with ReadAbundances.
func LoadAbundances(path string, parser *Parser) ([]Abundance, error) {
	r, err := scqc.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := ReadAbundances(r, parser)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return out, nil
}

// LoadSet assembles per-sample quantification outputs into an expression set
// with "count" and "TPM" levels. The first file fixes the feature order;
// every later file must quantify exactly the same features, though its row
// order may differ. Each input's raw bytes are fingerprinted and recorded in
// the set's Sources.
func LoadSet(files []SampleFile, layout string) (*expset.Set, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no abundance files were named")
	}

	parser, err := New(layout)
	if err != nil {
		return nil, err
	}

	samples := make([]string, 0, len(files))
	seen := make(map[string]struct{}, len(files))
	for _, sf := range files {
		if _, ok := seen[sf.Sample]; ok {
			return nil, fmt.Errorf("duplicate sample identifier %q", sf.Sample)
		}
		seen[sf.Sample] = struct{}{}
		samples = append(samples, sf.Sample)
	}

	var features []string
	var featureIdx map[string]int
	var counts, tpms [][]float64
	var sources []expset.Source

	for j, sf := range files {
		abundances, err := LoadAbundances(sf.Path, parser)
		if err != nil {
			return nil, err
		}

		if features == nil {
			features = make([]string, 0, len(abundances))
			featureIdx = make(map[string]int, len(abundances))
			for _, a := range abundances {
				if _, ok := featureIdx[a.Feature]; ok {
					return nil, fmt.Errorf("%s: duplicate feature %q", sf.Path, a.Feature)
				}
				featureIdx[a.Feature] = len(features)
				features = append(features, a.Feature)
			}

			counts = make([][]float64, len(features))
			tpms = make([][]float64, len(features))
			for i := range features {
				counts[i] = make([]float64, len(files))
				tpms[i] = make([]float64, len(files))
			}
		} else if len(abundances) != len(features) {
			return nil, fmt.Errorf("%s: quantified %d features but %s quantified %d",
				sf.Path, len(abundances), files[0].Path, len(features))
		}

		filled := make(map[string]struct{}, len(abundances))
		for _, a := range abundances {
			i, ok := featureIdx[a.Feature]
			if !ok {
				return nil, fmt.Errorf("%s: feature %q is absent from %s", sf.Path, a.Feature, files[0].Path)
			}
			if _, dup := filled[a.Feature]; dup {
				return nil, fmt.Errorf("%s: duplicate feature %q", sf.Path, a.Feature)
			}
			filled[a.Feature] = struct{}{}

			counts[i][j] = a.Count
			tpms[i][j] = a.TPM
		}

		fp, err := scqc.Fingerprint(sf.Path)
		if err != nil {
			return nil, err
		}
		sources = append(sources, expset.Source{Path: sf.Path, Fingerprint: fp})
	}

	set := expset.New(features, samples)
	if err := set.AddLevel(expset.LevelCount, counts); err != nil {
		return nil, err
	}
	if err := set.AddLevel(expset.LevelTPM, tpms); err != nil {
		return nil, err
	}
	set.Sources = sources

	return set, nil
}
