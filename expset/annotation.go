package expset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"
)

var nan = math.NaN()

// Timestamps exported from LIMS systems sometimes use this layout, which
// dateparse does not recognize.
const fallbackTimeLayout = "02-Jan-2006 15:04:05"

// MissingColumnError reports a request for an annotation column that does not
// exist, along with the columns that do.
type MissingColumnError struct {
	Column    string
	Available []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("annotation has no column %q (has: %s)", e.Column, strings.Join(e.Available, ", "))
}

// An Annotation is a per-sample phenotype table with string-typed cells.
// Cells may be null, which is distinct from an empty string that was
// genuinely present in the source.
type Annotation struct {
	IDColumn string
	Columns  []string
	rows     map[string]map[string]null.String
}

// NewAnnotation creates an empty annotation table whose sample identifiers
// came from the named column.
func NewAnnotation(idColumn string, columns []string) *Annotation {
	return &Annotation{
		IDColumn: idColumn,
		Columns:  columns,
		rows:     make(map[string]map[string]null.String),
	}
}

// AddSample ensures a row exists for the sample, even if no cells are ever
// set on it.
func (a *Annotation) AddSample(sample string) {
	if _, ok := a.rows[sample]; !ok {
		a.rows[sample] = make(map[string]null.String)
	}
}

// SetValue stores one cell.
func (a *Annotation) SetValue(sample, column string, v null.String) {
	a.AddSample(sample)
	a.rows[sample][column] = v
}

// Value fetches one cell. Samples or columns the table has never seen yield
// a null value.
func (a *Annotation) Value(sample, column string) null.String {
	return a.rows[sample][column]
}

// HasColumn reports whether the table carries the named column.
func (a *Annotation) HasColumn(column string) bool {
	for _, c := range a.Columns {
		if c == column {
			return true
		}
	}

	return false
}

// HasSample reports whether the table carries a row for the sample.
func (a *Annotation) HasSample(sample string) bool {
	_, ok := a.rows[sample]

	return ok
}

// NSamples returns the number of annotated samples.
func (a *Annotation) NSamples() int {
	return len(a.rows)
}

// Subset builds a new table restricted to the given samples. Samples absent
// from the original are silently skipped.
func (a *Annotation) Subset(samples []string) *Annotation {
	out := NewAnnotation(a.IDColumn, a.Columns)
	for _, sample := range samples {
		row, ok := a.rows[sample]
		if !ok {
			continue
		}
		out.AddSample(sample)
		for col, v := range row {
			out.SetValue(sample, col, v)
		}
	}

	return out
}

// NumericColumn parses the column as float64 for each given sample, in
// order. Null cells and unparseable values come back as ok=false in the
// parallel slice. The second return value counts the parses that succeeded.
func (a *Annotation) NumericColumn(column string, samples []string) ([]float64, int) {
	vals := make([]float64, len(samples))
	parsed := 0
	for i, sample := range samples {
		vals[i] = nan
		v := a.Value(sample, column)
		if !v.Valid {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
		if err != nil {
			continue
		}
		vals[i] = f
		parsed++
	}

	return vals, parsed
}

// Numeric reports whether every non-null cell of the column parses as a
// float for the given samples, and returns the parsed values if so. A column
// with no non-null cells is not numeric.
func (a *Annotation) Numeric(column string, samples []string) ([]float64, bool) {
	vals := make([]float64, len(samples))
	seen := 0
	for i, sample := range samples {
		vals[i] = nan
		v := a.Value(sample, column)
		if !v.Valid {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.String), 64)
		if err != nil {
			return nil, false
		}
		vals[i] = f
		seen++
	}
	if seen == 0 {
		return nil, false
	}

	return vals, true
}

// DistinctValues lists the distinct non-null values of the column across the
// given samples, sorted.
func (a *Annotation) DistinctValues(column string, samples []string) []string {
	seen := make(map[string]struct{})
	for _, sample := range samples {
		v := a.Value(sample, column)
		if !v.Valid {
			continue
		}
		seen[v.String] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)

	return out
}

// DaysSince converts a date-valued column into days elapsed since the
// earliest date in the column, one value per given sample. The conversion
// fails if any non-null cell cannot be parsed as a date.
func (a *Annotation) DaysSince(column string, samples []string) ([]float64, error) {
	times := make([]time.Time, len(samples))
	valid := make([]bool, len(samples))
	var earliest time.Time

	for i, sample := range samples {
		v := a.Value(sample, column)
		if !v.Valid {
			continue
		}

		t, err := dateparse.ParseAny(v.String)
		if err != nil {
			t, err = time.Parse(fallbackTimeLayout, v.String)
		}
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("column %q sample %q: %v", column, sample, err))
		}

		times[i] = t
		valid[i] = true
		if earliest.IsZero() || t.Before(earliest) {
			earliest = t
		}
	}

	out := make([]float64, len(samples))
	for i := range samples {
		if !valid[i] {
			out[i] = nan
			continue
		}
		out[i] = times[i].Sub(earliest).Hours() / 24.0
	}

	return out, nil
}
