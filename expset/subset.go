package expset

// KeepFeatures builds a new Set restricted to the named features, preserving
// the Set's original feature order. Names that are not present are ignored.
// Every expression level is carried over; the annotation, sources, and
// metadata are shared unchanged since they do not describe features.
func (s *Set) KeepFeatures(names []string) *Set {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}

	rows := make([]int, 0, len(names))
	features := make([]string, 0, len(names))
	for i, f := range s.Features {
		if _, ok := keep[f]; !ok {
			continue
		}
		rows = append(rows, i)
		features = append(features, f)
	}

	out := New(features, s.Samples)
	out.Pheno = s.Pheno
	out.Sources = s.Sources
	out.Meta = s.Meta

	for _, level := range s.Levels {
		values := make([][]float64, len(rows))
		for j, i := range rows {
			row := make([]float64, len(level.Values[i]))
			copy(row, level.Values[i])
			values[j] = row
		}
		out.Levels = append(out.Levels, Level{Name: level.Name, Values: values})
	}

	return out
}

// KeepSamples builds a new Set restricted to the named samples, preserving
// the Set's original sample order. Names that are not present are ignored.
// The annotation is subset to the surviving samples.
func (s *Set) KeepSamples(names []string) *Set {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[n] = struct{}{}
	}

	cols := make([]int, 0, len(names))
	samples := make([]string, 0, len(names))
	for j, name := range s.Samples {
		if _, ok := keep[name]; !ok {
			continue
		}
		cols = append(cols, j)
		samples = append(samples, name)
	}

	out := New(s.Features, samples)
	out.Sources = s.Sources
	out.Meta = s.Meta
	if s.Pheno != nil {
		out.Pheno = s.Pheno.Subset(samples)
	}

	for _, level := range s.Levels {
		values := make([][]float64, len(level.Values))
		for i, row := range level.Values {
			sub := make([]float64, len(cols))
			for jj, j := range cols {
				sub[jj] = row[j]
			}
			values[i] = sub
		}
		out.Levels = append(out.Levels, Level{Name: level.Name, Values: values})
	}

	return out
}
