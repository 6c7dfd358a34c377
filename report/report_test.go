package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/carbocation/scqc/expset"
	"gopkg.in/guregu/null.v3"
)

// reportSet builds a 10-sample set with two annotation columns, one dead
// feature, and one sample that detects almost nothing. With spikes, three
// ERCC features are present and detected widely enough to be eligible.
func reportSet(withSpikes bool) *expset.Set {
	features := []string{"G1", "G2", "G3", "G4", "G5", "G6", "G7", "G8"}
	if withSpikes {
		features = append(features, "ERCC-001", "ERCC-002", "ERCC-003")
	}
	features = append(features, "GDEAD")

	samples := make([]string, 10)
	for j := range samples {
		samples[j] = fmt.Sprintf("s%02d", j+1)
	}

	counts := make([][]float64, len(features))
	for i, feature := range features {
		row := make([]float64, len(samples))
		for j := range row {
			switch {
			case feature == "GDEAD":
				// stays zero everywhere
			case j == 9 && i > 1:
				// the last sample detects only the first two features
			case strings.HasPrefix(feature, "ERCC"):
				row[j] = float64(1 + (2*i+j)%5)
			default:
				row[j] = float64(1 + (i*3+j*5)%7)
			}
		}
		counts[i] = row
	}

	set := expset.New(features, samples)
	if err := set.AddLevel(expset.LevelCount, counts); err != nil {
		panic(err)
	}

	ann := expset.NewAnnotation("sample", []string{"group", "batch"})
	for j, sample := range samples {
		g := "A"
		if j >= 5 {
			g = "B"
		}
		b := "b1"
		if j%2 == 1 {
			b = "b2"
		}
		ann.SetValue(sample, "group", null.StringFrom(g))
		ann.SetValue(sample, "batch", null.StringFrom(b))
	}
	set.Pheno = ann

	set.Meta = expset.Metadata{
		Organism: "Mus musculus",
		Genome:   "GRCm38",
		Summaries: map[string][][]string{
			"salmon": {{"sample", "num_processed"}, {"s01", "100000"}},
		},
	}

	return set
}

func TestNewRunValidation(t *testing.T) {
	set := reportSet(true)

	if _, err := NewRun(Config{PhenoID: []string{"group"}}, set); err == nil {
		t.Error("expected an error for a missing report id")
	}
	if _, err := NewRun(Config{ID: "r"}, set); err == nil {
		t.Error("expected an error for missing grouping columns")
	}
	if _, err := NewRun(Config{ID: "r", PhenoID: []string{"group"}, LegendPos: "middle"}, set); err == nil {
		t.Error("expected an error for a bad legend position")
	}
	if _, err := NewRun(Config{ID: "r", PhenoID: []string{"group"}}, nil); err == nil {
		t.Error("expected an error for a nil set")
	}

	var cfgErr *ConfigurationError
	_, err := NewRun(Config{ID: "r"}, set)
	if !errors.As(err, &cfgErr) {
		t.Errorf("got %T, expected a *ConfigurationError", err)
	}
}

func TestRunMissingGroupingColumn(t *testing.T) {
	set := reportSet(true)

	_, err := Run(Config{ID: "r", PhenoID: []string{"nonesuch"}, Seed: 1}, set)
	if err == nil {
		t.Fatal("expected an error for a grouping column the annotation lacks")
	}

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %T, expected a *ConfigurationError", err)
	}

	var missing *expset.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatal("expected the missing-column cause to be recoverable from the error chain")
	}
	if missing.Column != "nonesuch" {
		t.Errorf("got column %q, expected %q", missing.Column, "nonesuch")
	}
}

func TestStagesRecomputeAfterFilter(t *testing.T) {
	set := reportSet(true)

	raw, err := NewRun(Config{ID: "stages", PhenoID: []string{"group"}, MinDetected: 2, Seed: 3}, set)
	if err != nil {
		t.Fatal(err)
	}
	prep, err := raw.Prepare()
	if err != nil {
		t.Fatal(err)
	}

	meas := prep.Measure()
	if !meas.controls.Eligible {
		t.Fatal("expected the spike-in controls to be eligible")
	}
	if len(meas.metrics.Samples) != 10 {
		t.Errorf("got %d pre-filter samples, expected 10", len(meas.metrics.Samples))
	}

	filt, err := meas.Filter()
	if err != nil {
		t.Fatal(err)
	}

	// The dead feature and the nearly-empty sample are gone, and the QC
	// table reflects the filtered set rather than the raw one.
	if filt.set.NFeatures() != 11 {
		t.Errorf("got %d features after filtering, expected 11", filt.set.NFeatures())
	}
	if filt.set.NSamples() != 9 {
		t.Errorf("got %d samples after filtering, expected 9", filt.set.NSamples())
	}
	if len(filt.metrics.Samples) != 9 {
		t.Errorf("got %d metric rows, expected 9", len(filt.metrics.Samples))
	}
	if len(filt.keys) != 9 {
		t.Errorf("got %d grouping keys, expected 9", len(filt.keys))
	}
	if !filt.controls.Eligible {
		t.Error("the eligibility decision must survive filtering")
	}
	if filt.rawFeatures != 12 || filt.rawSamples != 10 {
		t.Errorf("got raw dims %dx%d, expected 12x10", filt.rawFeatures, filt.rawSamples)
	}
}

// plotIndex maps plot names to their positions, failing the test on a
// duplicate name.
func plotIndex(t *testing.T, plots []PlotResult) map[string]int {
	t.Helper()

	idx := make(map[string]int, len(plots))
	for i, p := range plots {
		if _, ok := idx[p.Name]; ok {
			t.Fatalf("plot name %q appears twice", p.Name)
		}
		idx[p.Name] = i
	}

	return idx
}

func TestRunEndToEnd(t *testing.T) {
	set := reportSet(true)

	cfg := Config{
		ID:          "e2e",
		PhenoID:     []string{"group", "batch"},
		MinDetected: 2,
		Components:  3,
		Seed:        7,
		AnimateTSNE: true,
		Concentrations: map[string]float64{
			"ERCC-001": 1,
			"ERCC-002": 10,
			"ERCC-003": 100,
		},
	}

	doc, err := Run(cfg, set)
	if err != nil {
		t.Fatal(err)
	}

	summary := make(map[string]string, len(doc.Summary))
	for _, row := range doc.Summary {
		summary[row.Name] = row.Value
	}
	if summary["Features after filtering"] != "11" {
		t.Errorf("got %q features after filtering, expected 11", summary["Features after filtering"])
	}
	if summary["Samples after filtering"] != "9" {
		t.Errorf("got %q samples after filtering, expected 9", summary["Samples after filtering"])
	}
	if !strings.Contains(summary["Spike-in controls"], "qualifying") {
		t.Errorf("summary %q should report qualifying controls", summary["Spike-in controls"])
	}

	if len(doc.RawSummaries) != 1 || doc.RawSummaries[0].Tool != "salmon" {
		t.Errorf("got raw summaries %+v, expected one salmon table", doc.RawSummaries)
	}

	// Every slot is either rendered or carries a note, never both and
	// never neither.
	for _, p := range doc.Plots {
		rendered := p.Img != nil
		noted := p.OmitReason != ""
		if rendered == noted {
			t.Errorf("plot %s: rendered=%v noted=%v", p.Name, rendered, noted)
		}
	}

	idx := plotIndex(t, doc.Plots)
	order := []string{
		"composition",
		"expression_strip",
		"highest_expression",
		"pc_corr_group",
		"explanatory_r2",
		"scatter_detected_total",
		"scatter_top_total",
		"scatter_control_total",
		"spike_dose_response",
		"pca_group",
		"pca_batch",
		"tsne_group",
		"tsne_batch",
	}
	for k := 1; k < len(order); k++ {
		a, ok := idx[order[k-1]]
		if !ok {
			t.Fatalf("plot %s is missing", order[k-1])
		}
		b, ok := idx[order[k]]
		if !ok {
			t.Fatalf("plot %s is missing", order[k])
		}
		if a >= b {
			t.Errorf("plot %s (index %d) should precede %s (index %d)", order[k-1], a, order[k], b)
		}
	}

	// Two grouping columns, three base metrics, one control metric.
	nCorr := 0
	for name := range idx {
		if strings.HasPrefix(name, "pc_corr_") {
			nCorr++
		}
	}
	if nCorr != 6 {
		t.Errorf("got %d component-correlation figures, expected 6", nCorr)
	}

	if doc.TSNEGIF == nil {
		t.Fatal("expected a convergence animation")
	}
	if len(doc.TSNEGIF.Image) < 2 {
		t.Errorf("got %d animation frames, expected at least 2", len(doc.TSNEGIF.Image))
	}
	if len(doc.TSNEGIF.Image) != len(doc.TSNEGIF.Delay) {
		t.Errorf("frames and delays differ: %d vs %d", len(doc.TSNEGIF.Image), len(doc.TSNEGIF.Delay))
	}

	if len(doc.Outliers) != 9 {
		t.Errorf("got %d outlier rows, expected 9", len(doc.Outliers))
	}
	if len(doc.Enrichment) == 0 {
		t.Error("expected enrichment rows per group")
	}

	var html bytes.Buffer
	if err := doc.Render(&html); err != nil {
		t.Fatal(err)
	}
	rendered := html.String()
	for _, want := range []string{
		"Single-cell QC report: e2e",
		"Upstream summary: salmon",
		"data:image/png;base64,",
		"data:image/gif;base64,",
		"Session",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered report lacks %q", want)
		}
	}
}

func TestRunWithoutControls(t *testing.T) {
	set := reportSet(false)

	doc, err := Run(Config{ID: "noctl", PhenoID: []string{"group"}, MinDetected: 2, Seed: 11}, set)
	if err != nil {
		t.Fatal(err)
	}

	idx := plotIndex(t, doc.Plots)
	if _, ok := idx["scatter_control_total"]; ok {
		t.Error("the control scatter must be absent when controls are not eligible")
	}
	if _, ok := idx["spike_dose_response"]; ok {
		t.Error("the dose-response figure must be absent when controls are not eligible")
	}
	if _, ok := idx["pc_corr_pct_spike_in_counts"]; ok {
		t.Error("the control covariate must be absent when controls are not eligible")
	}

	// One grouping column, three base metrics.
	nCorr := 0
	for name := range idx {
		if strings.HasPrefix(name, "pc_corr_") {
			nCorr++
		}
	}
	if nCorr != 4 {
		t.Errorf("got %d component-correlation figures, expected 4", nCorr)
	}

	for _, row := range doc.Summary {
		if row.Name == "Spike-in controls" && !strings.Contains(row.Value, "not eligible") {
			t.Errorf("summary %q should mark the controls ineligible", row.Value)
		}
	}
}

func TestRunDegradesEmbeddingsToNotes(t *testing.T) {
	// Three samples: too few for t-SNE, so its figures must degrade to
	// notes while everything else still renders.
	features := []string{"G1", "G2", "G3", "G4", "G5", "G6"}
	samples := []string{"s1", "s2", "s3"}

	counts := make([][]float64, len(features))
	for i := range features {
		row := make([]float64, len(samples))
		for j := range row {
			row[j] = float64(1 + (i*5+j*7)%11)
		}
		counts[i] = row
	}

	set := expset.New(features, samples)
	if err := set.AddLevel(expset.LevelCount, counts); err != nil {
		t.Fatal(err)
	}

	ann := expset.NewAnnotation("sample", []string{"group"})
	ann.SetValue("s1", "group", null.StringFrom("A"))
	ann.SetValue("s2", "group", null.StringFrom("A"))
	ann.SetValue("s3", "group", null.StringFrom("B"))
	set.Pheno = ann

	doc, err := Run(Config{ID: "tiny", PhenoID: []string{"group"}, MinDetected: 1, Seed: 5}, set)
	if err != nil {
		t.Fatal(err)
	}

	idx := plotIndex(t, doc.Plots)

	i, ok := idx["tsne_group"]
	if !ok {
		t.Fatal("the t-SNE slot must still appear")
	}
	tsne := doc.Plots[i]
	if !tsne.Omitted() {
		t.Fatal("expected the t-SNE figure to be omitted")
	}
	if !strings.Contains(tsne.OmitReason, "four samples") {
		t.Errorf("omission note %q should name the sample shortfall", tsne.OmitReason)
	}

	comp := doc.Plots[idx["composition"]]
	if comp.Omitted() {
		t.Errorf("composition should still render: %s", comp.OmitReason)
	}

	if doc.TSNEGIF != nil {
		t.Error("no animation should exist when t-SNE failed")
	}
}
