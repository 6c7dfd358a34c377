package expset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/scqc"
	"github.com/extrame/xls"
	"golang.org/x/net/html/charset"
	"gopkg.in/guregu/null.v3"
)

// A MatrixFile names one expression matrix on disk (or in Google Storage)
// and the level name it should be attached under.
type MatrixFile struct {
	Path  string
	Level string
}

// ReadMatrix parses a delimited expression matrix: a header row of sample
// identifiers followed by one row per feature, each beginning with the
// feature identifier. The delimiter is sniffed from the content. Headers
// written with or without a label over the feature-identifier column are
// both accepted.
func ReadMatrix(r io.Reader) (features, samples []string, values [][]float64, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, nil, pfx.Err(err)
	}

	delim := scqc.DetectDelimiter(bytes.NewReader(data))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, nil, pfx.Err(err)
	}
	if len(records) < 2 {
		return nil, nil, nil, fmt.Errorf("matrix has %d rows; expected a header row and at least one feature row", len(records))
	}

	header, rows := records[0], records[1:]
	width := len(rows[0])
	switch len(header) {
	case width - 1:
		// R's write.table leaves the feature-identifier column unlabeled.
		samples = header
	case width:
		samples = header[1:]
	default:
		return nil, nil, nil, fmt.Errorf("header has %d fields but the first data row has %d", len(header), width)
	}

	seenSample := make(map[string]struct{}, len(samples))
	for i := range samples {
		samples[i] = strings.TrimSpace(samples[i])
		if _, ok := seenSample[samples[i]]; ok {
			return nil, nil, nil, fmt.Errorf("duplicate sample identifier %q", samples[i])
		}
		seenSample[samples[i]] = struct{}{}
	}

	features = make([]string, 0, len(rows))
	values = make([][]float64, 0, len(rows))
	seenFeature := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		if len(row) != width {
			return nil, nil, nil, fmt.Errorf("row %d has %d fields; expected %d", i+2, len(row), width)
		}

		name := strings.TrimSpace(row[0])
		if _, ok := seenFeature[name]; ok {
			return nil, nil, nil, fmt.Errorf("duplicate feature identifier %q", name)
		}
		seenFeature[name] = struct{}{}

		vals := make([]float64, len(samples))
		for j, field := range row[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("feature %q, sample %q: %v", name, samples[j], err)
			}
			vals[j] = v
		}

		features = append(features, name)
		values = append(values, vals)
	}

	return features, samples, values, nil
}

// LoadMatrix opens path, removing any compression layer, and parses it with
// ReadMatrix.
func LoadMatrix(path string) (features, samples []string, values [][]float64, err error) {
	r, err := scqc.OpenInput(path)
	if err != nil {
		return nil, nil, nil, err
	}
	defer r.Close()

	features, samples, values, err = ReadMatrix(r)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return features, samples, values, nil
}

// ReadAnnotation parses a delimited sample annotation table whose header
// contains idColumn. Cells that are empty or the literal string NA load as
// null.
func ReadAnnotation(r io.Reader, idColumn string) (*Annotation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := scqc.DetectDelimiter(bytes.NewReader(data))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("annotation is empty")
	}

	return annotationFromRecords(records, idColumn)
}

// LoadAnnotation opens path, removing any compression layer, and parses it
// with ReadAnnotation. Files with the .xls extension are parsed as legacy
// Excel workbooks instead. A non-empty charsetLabel recodes the input from
// the named character set before parsing.
func LoadAnnotation(path, idColumn, charsetLabel string) (*Annotation, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xls") {
		return LoadAnnotationXLS(path, idColumn, charsetLabel)
	}

	rc, err := scqc.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if charsetLabel != "" {
		r, err = charset.NewReaderLabel(charsetLabel, rc)
		if err != nil {
			return nil, pfx.Err(err)
		}
	}

	ann, err := ReadAnnotation(r, idColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ann, nil
}

// LoadAnnotationXLS parses the first sheet of a legacy Excel workbook as a
// sample annotation table. An empty charsetLabel is treated as utf-8.
func LoadAnnotationXLS(path, idColumn, charsetLabel string) (*Annotation, error) {
	if charsetLabel == "" {
		charsetLabel = "utf-8"
	}

	expanded, err := scqc.ExpandHome(path)
	if err != nil {
		return nil, err
	}

	workbook, err := xls.Open(expanded, charsetLabel)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if workbook.NumSheets() < 1 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("%s: sheet 0 was nil", path)
	}

	records := make([][]string, 0, int(sheet.MaxRow)+1)
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			continue
		}

		record := make([]string, 0, row.LastCol())
		for colID := 0; colID < row.LastCol(); colID++ {
			record = append(record, row.Col(colID))
		}
		records = append(records, record)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: annotation is empty", path)
	}

	// Rows drop their trailing blank cells, so pad each record to the
	// header's width before parsing.
	for i, record := range records[1:] {
		for len(record) < len(records[0]) {
			record = append(record, "")
		}
		records[i+1] = record
	}

	ann, err := annotationFromRecords(records, idColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return ann, nil
}

// LoadSummary reads a delimited upstream summary table (salmon or rapmap
// run statistics) whole, header row first, for carriage into the report.
func LoadSummary(path string) ([][]string, error) {
	rc, err := scqc.OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(err)
	}

	delim := scqc.DetectDelimiter(bytes.NewReader(data))

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: summary is empty", path)
	}

	return records, nil
}

func annotationFromRecords(records [][]string, idColumn string) (*Annotation, error) {
	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	idIdx := -1
	for i, col := range header {
		if col == idColumn {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, &MissingColumnError{Column: idColumn, Available: header}
	}

	columns := make([]string, 0, len(header)-1)
	for i, col := range header {
		if i == idIdx {
			continue
		}
		columns = append(columns, col)
	}

	ann := NewAnnotation(idColumn, columns)
	for rowNum, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields; expected %d", rowNum+2, len(record), len(header))
		}

		sample := strings.TrimSpace(record[idIdx])
		if ann.HasSample(sample) {
			return nil, fmt.Errorf("duplicate sample identifier %q", sample)
		}
		ann.AddSample(sample)

		for i, field := range record {
			if i == idIdx {
				continue
			}
			field = strings.TrimSpace(field)
			if field == "" || field == "NA" {
				ann.SetValue(sample, header[i], null.NewString("", false))
				continue
			}
			ann.SetValue(sample, header[i], null.StringFrom(field))
		}
	}

	return ann, nil
}

// AttachAnnotation sets the Set's sample annotation after verifying it
// covers every sample in the Set.
func (s *Set) AttachAnnotation(a *Annotation) error {
	var missing []string
	for _, sample := range s.Samples {
		if !a.HasSample(sample) {
			missing = append(missing, sample)
		}
	}
	if len(missing) > 0 {
		if len(missing) > 5 {
			missing = append(missing[:5], "...")
		}
		return fmt.Errorf("annotation is missing %s", strings.Join(missing, ", "))
	}

	s.Pheno = a

	return nil
}

// LoadSet loads one or more expression matrices onto a shared grid and
// optionally attaches a sample annotation table. Every matrix after the
// first must agree exactly with the first on feature and sample identifiers
// and their order. Each input's raw bytes are fingerprinted and recorded in
// Sources.
func LoadSet(matrices []MatrixFile, annotationPath, annotationIDColumn, charsetLabel string) (*Set, error) {
	if len(matrices) == 0 {
		return nil, fmt.Errorf("no expression matrices were named")
	}

	var set *Set
	for _, mf := range matrices {
		features, samples, values, err := LoadMatrix(mf.Path)
		if err != nil {
			return nil, err
		}

		if set == nil {
			set = New(features, samples)
		} else {
			if err := sameGrid(set, features, samples); err != nil {
				return nil, fmt.Errorf("%s: %w", mf.Path, err)
			}
		}

		if err := set.AddLevel(mf.Level, values); err != nil {
			return nil, fmt.Errorf("%s: %w", mf.Path, err)
		}

		fp, err := scqc.Fingerprint(mf.Path)
		if err != nil {
			return nil, err
		}
		set.Sources = append(set.Sources, Source{Path: mf.Path, Fingerprint: fp})
	}

	if annotationPath != "" {
		ann, err := LoadAnnotation(annotationPath, annotationIDColumn, charsetLabel)
		if err != nil {
			return nil, err
		}
		if err := set.AttachAnnotation(ann); err != nil {
			return nil, fmt.Errorf("%s: %w", annotationPath, err)
		}

		fp, err := scqc.Fingerprint(annotationPath)
		if err != nil {
			return nil, err
		}
		set.Sources = append(set.Sources, Source{Path: annotationPath, Fingerprint: fp})
	}

	return set, nil
}

func sameGrid(s *Set, features, samples []string) error {
	if len(features) != s.NFeatures() || len(samples) != s.NSamples() {
		return fmt.Errorf("matrix is %dx%d but the first matrix was %dx%d",
			len(features), len(samples), s.NFeatures(), s.NSamples())
	}
	for i := range features {
		if features[i] != s.Features[i] {
			return fmt.Errorf("feature %d is %q but the first matrix had %q", i, features[i], s.Features[i])
		}
	}
	for j := range samples {
		if samples[j] != s.Samples[j] {
			return fmt.Errorf("sample %d is %q but the first matrix had %q", j, samples[j], s.Samples[j])
		}
	}

	return nil
}
