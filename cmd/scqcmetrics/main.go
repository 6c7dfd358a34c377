// scqcmetrics computes per-sample QC metrics from expression matrices and
// prints them as a tab-delimited table, with quick terminal histograms of
// the library sizes and detected-feature counts.
package main

import (
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/scqc/expset"
	"github.com/carbocation/scqc/qc"
	"github.com/gocarina/gocsv"

	_ "github.com/carbocation/scqc/buildinfoprint"
)

type metricsRow struct {
	Sample      string  `csv:"sample"`
	Group       string  `csv:"group"`
	Total       float64 `csv:"total"`
	Detected    int     `csv:"detected"`
	PctTopK     float64 `csv:"pct_top"`
	PctControl  float64 `csv:"pct_control"`
	LowTotal    bool    `csv:"low_total"`
	LowDetected bool    `csv:"low_detected"`
	HighControl bool    `csv:"high_control"`
}

func main() {
	var countsFile, lstpmFile, tpmFile string
	var phenoFile, idColumn, charsetLabel, phenoID string
	var controlPrefix, out string
	var topK int
	var nMADs, nSDs float64

	flag.StringVar(&countsFile, "counts", "", "Path to the counts matrix (features x samples, delimited; .gz accepted)")
	flag.StringVar(&lstpmFile, "lstpm", "", "(Optional) Path to the library-size-scaled TPM matrix on the same grid")
	flag.StringVar(&tpmFile, "tpm", "", "(Optional) Path to the TPM matrix on the same grid")
	flag.StringVar(&phenoFile, "pheno", "", "(Optional) Path to the sample annotation table")
	flag.StringVar(&idColumn, "idcol", "sample", "Annotation column holding the sample identifiers")
	flag.StringVar(&charsetLabel, "charset", "", "(Optional) Character set of the annotation file, when not utf-8")
	flag.StringVar(&phenoID, "phenoid", "", "(Optional) Comma-separated annotation column(s) that group the samples")
	flag.StringVar(&controlPrefix, "controlprefix", qc.DefaultControlPrefix, "Feature-identifier prefix that marks spike-in controls")
	flag.IntVar(&topK, "topk", qc.TopK, "Size of the top-expression window in the per-sample metrics")
	flag.Float64Var(&nMADs, "nmads", qc.DefaultNMADs, "Outlier fences sit this many MADs from the median")
	flag.Float64Var(&nSDs, "sd", 0, "(Optional) Use mean +/- this many standard deviations for the fences instead of MADs")
	flag.StringVar(&out, "out", "", "(Optional) Path for the TSV output; stdout when empty")

	flag.Parse()

	if countsFile == "" {
		log.Fatalln("Please provide -counts")
	}

	log.Println("Launched scqcmetrics")

	if err := runAll(countsFile, lstpmFile, tpmFile, phenoFile, idColumn, charsetLabel, phenoID,
		controlPrefix, out, topK, nMADs, nSDs); err != nil {
		log.Fatalln(err)
	}
}

func runAll(countsFile, lstpmFile, tpmFile, phenoFile, idColumn, charsetLabel, phenoID,
	controlPrefix, out string, topK int, nMADs, nSDs float64) error {

	matrices := []expset.MatrixFile{{Path: countsFile, Level: expset.LevelCount}}
	if lstpmFile != "" {
		matrices = append(matrices, expset.MatrixFile{Path: lstpmFile, Level: expset.LevelCountLSTPM})
	}
	if tpmFile != "" {
		matrices = append(matrices, expset.MatrixFile{Path: tpmFile, Level: expset.LevelTPM})
	}

	set, err := expset.LoadSet(matrices, phenoFile, idColumn, charsetLabel)
	if err != nil {
		return err
	}
	log.Println("Loaded", set.NFeatures(), "features across", set.NSamples(), "samples")

	primary, err := qc.SelectPrimary(set)
	if err != nil {
		return err
	}

	var keys []string
	if cols := splitList(phenoID); len(cols) > 0 {
		keys, err = set.GroupingKeys(cols)
		if err != nil {
			return err
		}
	}

	controls := qc.FindControls(set.Features, primary.Counts.Values, controlPrefix, qc.SmallestGroup(keys))
	metrics := qc.Compute(set, primary, controls, topK)

	var flags []qc.OutlierFlags
	if nSDs > 0 {
		flags = qc.FlagOutliersSD(metrics, nSDs)
	} else {
		flags, err = qc.FlagOutliers(metrics, nMADs)
		if err != nil {
			return err
		}
	}

	flagged := 0
	for _, f := range flags {
		if f.Flagged() {
			flagged++
		}
	}
	log.Println(flagged, "of", len(flags), "samples flagged")

	rows := make([]metricsRow, len(metrics.Samples))
	totals := make([]float64, len(metrics.Samples))
	detected := make([]float64, len(metrics.Samples))
	for i, sm := range metrics.Samples {
		rows[i] = metricsRow{
			Sample:      sm.Sample,
			Total:       sm.Total,
			Detected:    sm.Detected,
			PctTopK:     sm.PctTopK,
			PctControl:  sm.PctControl,
			LowTotal:    flags[i].LowTotal,
			LowDetected: flags[i].LowDetected,
			HighControl: flags[i].HighControl,
		}
		if keys != nil {
			rows[i].Group = keys[i]
		}
		totals[i] = sm.Total
		detected[i] = float64(sm.Detected)
	}

	// Tell gocsv to use tab as the delimiter
	gocsv.SetCSVWriter(func(w io.Writer) *gocsv.SafeCSVWriter {
		cw := csv.NewWriter(w)
		cw.Comma = '\t'
		return gocsv.NewSafeCSVWriter(cw)
	})

	var w io.Writer = os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return err
	}
	if out != "" {
		log.Println("Wrote", out)
	}

	log.Println("Library sizes:")
	if err := histogram.Fprint(os.Stderr, histogram.Hist(25, totals), histogram.Linear(5)); err != nil {
		return err
	}

	log.Println("Detected features:")
	if err := histogram.Fprint(os.Stderr, histogram.Hist(25, detected), histogram.Linear(5)); err != nil {
		return err
	}

	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
