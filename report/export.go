package report

import (
	"encoding/csv"
	"io"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

// A SampleRow flattens one sample's QC metrics with its grouping key and
// outlier flags, for the tabular exports.
type SampleRow struct {
	Sample      string  `csv:"sample" db:"sample"`
	Group       string  `csv:"group" db:"grp"`
	Total       float64 `csv:"total" db:"total"`
	Detected    int     `csv:"detected" db:"detected"`
	PctTopK     float64 `csv:"pct_top" db:"pct_top"`
	Control     float64 `csv:"control_counts" db:"control_counts"`
	PctControl  float64 `csv:"pct_control" db:"pct_control"`
	LowTotal    bool    `csv:"low_total" db:"low_total"`
	LowDetected bool    `csv:"low_detected" db:"low_detected"`
	HighControl bool    `csv:"high_control" db:"high_control"`
}

// A FeatureRow is one feature's QC metrics for the tabular exports.
type FeatureRow struct {
	Feature  string  `csv:"feature" db:"feature"`
	Mean     float64 `csv:"mean" db:"mean"`
	Detected int     `csv:"detected" db:"detected"`
	PctTotal float64 `csv:"pct_total" db:"pct_total"`
}

// SampleRows lists the per-sample export rows in set order. The flag
// columns stay false when outlier flagging was unavailable for this run.
func (d *Document) SampleRows() []SampleRow {
	out := make([]SampleRow, len(d.metrics.Samples))
	for i, sm := range d.metrics.Samples {
		row := SampleRow{
			Sample:     sm.Sample,
			Group:      d.keys[i],
			Total:      sm.Total,
			Detected:   sm.Detected,
			PctTopK:    sm.PctTopK,
			Control:    sm.Control,
			PctControl: sm.PctControl,
		}

		if i < len(d.Outliers) {
			row.LowTotal = d.Outliers[i].LowTotal
			row.LowDetected = d.Outliers[i].LowDetected
			row.HighControl = d.Outliers[i].HighControl
		}

		out[i] = row
	}

	return out
}

// FeatureRows lists the per-feature export rows in set order.
func (d *Document) FeatureRows() []FeatureRow {
	out := make([]FeatureRow, len(d.metrics.Features))
	for i, fm := range d.metrics.Features {
		out[i] = FeatureRow{
			Feature:  fm.Feature,
			Mean:     fm.Mean,
			Detected: fm.Detected,
			PctTotal: fm.PctTotal,
		}
	}

	return out
}

// useTabWriter tells gocsv to use tab as the delimiter.
func useTabWriter() {
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})
}

// WriteSampleTSV writes the per-sample table as tab-delimited text.
func (d *Document) WriteSampleTSV(w io.Writer) error {
	useTabWriter()

	rows := d.SampleRows()
	return pfx.Err(gocsv.Marshal(&rows, w))
}

// WriteFeatureTSV writes the per-feature table as tab-delimited text.
func (d *Document) WriteFeatureTSV(w io.Writer) error {
	useTabWriter()

	rows := d.FeatureRows()
	return pfx.Err(gocsv.Marshal(&rows, w))
}

const exportSchema = `
CREATE TABLE IF NOT EXISTS qc_samples (
	sample TEXT PRIMARY KEY,
	grp TEXT,
	total REAL,
	detected INTEGER,
	pct_top REAL,
	control_counts REAL,
	pct_control REAL,
	low_total INTEGER,
	low_detected INTEGER,
	high_control INTEGER
);
CREATE TABLE IF NOT EXISTS qc_features (
	feature TEXT PRIMARY KEY,
	mean REAL,
	detected INTEGER,
	pct_total REAL
);
`

// ExportSQLite writes both QC tables into a SQLite database at path,
// creating it if needed. Rows for a sample or feature already present are
// replaced, so re-running a report refreshes its database in place.
func (d *Document) ExportSQLite(path string) error {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return pfx.Err(err)
	}
	defer db.Close()

	if _, err := db.Exec(exportSchema); err != nil {
		return pfx.Err(err)
	}

	tx, err := db.Beginx()
	if err != nil {
		return pfx.Err(err)
	}

	for _, row := range d.SampleRows() {
		if _, err := tx.NamedExec(`INSERT OR REPLACE INTO qc_samples
			(sample, grp, total, detected, pct_top, control_counts, pct_control, low_total, low_detected, high_control)
			VALUES (:sample, :grp, :total, :detected, :pct_top, :control_counts, :pct_control, :low_total, :low_detected, :high_control)`, row); err != nil {
			tx.Rollback()
			return pfx.Err(err)
		}
	}

	for _, row := range d.FeatureRows() {
		if _, err := tx.NamedExec(`INSERT OR REPLACE INTO qc_features
			(feature, mean, detected, pct_total)
			VALUES (:feature, :mean, :detected, :pct_total)`, row); err != nil {
			tx.Rollback()
			return pfx.Err(err)
		}
	}

	return pfx.Err(tx.Commit())
}
