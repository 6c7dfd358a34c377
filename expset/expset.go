// Package expset models a single-cell expression experiment: one or more
// expression matrices over a shared feature-by-sample grid, plus an optional
// sample annotation table. All downstream QC and plotting consumes this type.
package expset

import (
	"fmt"
	"strings"
)

// Conventional level names. Loaders and the QC pipeline agree on these, but
// nothing prevents attaching levels under other names.
const (
	LevelCount      = "count"
	LevelCountLSTPM = "count_lstpm"
	LevelTPM        = "TPM"
)

// A Level is one expression matrix, named for the unit its values are in
// (for example "count", "TPM", or "count_lstpm"). Rows follow Set.Features
// and columns follow Set.Samples.
type Level struct {
	Name   string
	Values [][]float64
}

// A Source records one input file and the fingerprint of its raw bytes.
type Source struct {
	Path        string
	Fingerprint string
}

// Metadata carries the free-form experiment descriptors that ride along
// with the expression data. Summaries holds raw upstream summary tables
// (for example salmon or rapmap run statistics) keyed by tool name; each
// table's first row is its header.
type Metadata struct {
	Organism  string
	Genome    string
	Summaries map[string][][]string
}

// A Set holds every expression level of an experiment on a single shared
// grid. Levels always agree on dimensions and ordering with Features and
// Samples; AddLevel enforces this.
type Set struct {
	Features []string
	Samples  []string
	Levels   []Level
	Pheno    *Annotation
	Sources  []Source
	Meta     Metadata
}

// New creates an empty Set over the given grid.
func New(features, samples []string) *Set {
	return &Set{
		Features: features,
		Samples:  samples,
	}
}

// NFeatures returns the number of features (rows).
func (s *Set) NFeatures() int {
	return len(s.Features)
}

// NSamples returns the number of samples (columns).
func (s *Set) NSamples() int {
	return len(s.Samples)
}

// AddLevel attaches a named expression matrix to the Set. The matrix must be
// exactly NFeatures x NSamples and the name must not already be present.
func (s *Set) AddLevel(name string, values [][]float64) error {
	if _, ok := s.Level(name); ok {
		return fmt.Errorf("expression level %q is already present", name)
	}

	if len(values) != s.NFeatures() {
		return fmt.Errorf("level %q has %d rows but the set has %d features", name, len(values), s.NFeatures())
	}
	for i, row := range values {
		if len(row) != s.NSamples() {
			return fmt.Errorf("level %q row %d has %d columns but the set has %d samples", name, i, len(row), s.NSamples())
		}
	}

	s.Levels = append(s.Levels, Level{Name: name, Values: values})

	return nil
}

// Level returns the named expression matrix, if present.
func (s *Set) Level(name string) (*Level, bool) {
	for i := range s.Levels {
		if s.Levels[i].Name == name {
			return &s.Levels[i], true
		}
	}

	return nil, false
}

// LevelNames lists the attached expression levels in the order they were
// added.
func (s *Set) LevelNames() []string {
	names := make([]string, 0, len(s.Levels))
	for _, l := range s.Levels {
		names = append(names, l.Name)
	}

	return names
}

// GroupingKeys builds one key per sample (in Samples order) by joining the
// sample's values in the named annotation columns with a "." separator.
// Missing (null) values contribute the literal string "NA". It is an error
// to ask for a column the annotation does not have, or to ask for keys when
// the Set carries no annotation at all.
func (s *Set) GroupingKeys(cols []string) ([]string, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("no annotation columns were named")
	}
	if s.Pheno == nil {
		return nil, fmt.Errorf("the set has no sample annotation")
	}

	for _, col := range cols {
		if !s.Pheno.HasColumn(col) {
			return nil, &MissingColumnError{Column: col, Available: s.Pheno.Columns}
		}
	}

	keys := make([]string, len(s.Samples))
	parts := make([]string, len(cols))
	for i, sample := range s.Samples {
		for j, col := range cols {
			v := s.Pheno.Value(sample, col)
			if !v.Valid {
				parts[j] = "NA"
			} else {
				parts[j] = v.String
			}
		}
		keys[i] = strings.Join(parts, ".")
	}

	return keys, nil
}
