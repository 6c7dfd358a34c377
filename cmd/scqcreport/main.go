// scqcreport builds a single-cell RNA-seq QC report from expression
// matrices and a sample annotation table.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/gif"
	"image/png"
	"io"
	"log"
	"os"
	"strings"

	"github.com/carbocation/scqc"
	"github.com/carbocation/scqc/expset"
	"github.com/carbocation/scqc/qc"
	"github.com/carbocation/scqc/qcplot"
	"github.com/carbocation/scqc/quant"
	"github.com/carbocation/scqc/report"

	_ "github.com/carbocation/scqc/buildinfoprint"
)

func main() {
	var countsFile, lstpmFile, tpmFile string
	var quantFiles, quantLayout string
	var phenoFile, idColumn, charsetLabel string
	var reportID, phenoID, out string
	var organism, genome, salmonFile, rapmapFile, spikeFile string
	var controlPrefix, legendPos, paletteHex string
	var minDetected, topK, topVariable, components, legendRows int
	var seed int64
	var samplesOut, featuresOut, sqliteOut, gifOut, sheetOut string

	flag.StringVar(&countsFile, "counts", "", "Path to the counts matrix (features x samples, delimited; .gz accepted)")
	flag.StringVar(&lstpmFile, "lstpm", "", "(Optional) Path to the library-size-scaled TPM matrix on the same grid")
	flag.StringVar(&tpmFile, "tpm", "", "(Optional) Path to the TPM matrix on the same grid")
	flag.StringVar(&quantFiles, "quants", "", "Comma-separated sample=path pairs of per-sample quantification outputs, as an alternative to -counts")
	flag.StringVar(&quantLayout, "layout", "SALMON", "Layout of the -quants files. Valid layouts include: "+quant.LayoutNames())
	flag.StringVar(&phenoFile, "pheno", "", "Sample annotation table: a delimited or legacy .xls path, or bq://project.dataset.table")
	flag.StringVar(&idColumn, "idcol", "sample", "Annotation column holding the sample identifiers")
	flag.StringVar(&charsetLabel, "charset", "", "(Optional) Character set of the annotation file, when not utf-8")
	flag.StringVar(&reportID, "id", "", "Identifier for this report")
	flag.StringVar(&phenoID, "phenoid", "", "Comma-separated annotation column(s) that group the samples")
	flag.StringVar(&out, "out", "", "Path where the HTML report will be written")
	flag.StringVar(&organism, "organism", "", "(Optional) Organism the libraries came from")
	flag.StringVar(&genome, "genome", "", "(Optional) Genome build the libraries were quantified against")
	flag.StringVar(&salmonFile, "salmon", "", "(Optional) Path to a salmon run-summary table to carry into the report")
	flag.StringVar(&rapmapFile, "rapmap", "", "(Optional) Path to a rapmap run-summary table to carry into the report")
	flag.StringVar(&spikeFile, "spikes", "", "(Optional) Path to a table of spike-in concentrations (feature, concentration)")
	flag.StringVar(&controlPrefix, "controlprefix", qc.DefaultControlPrefix, "Feature-identifier prefix that marks spike-in controls")
	flag.IntVar(&minDetected, "mindetected", qc.DefaultMinDetected, "Samples must detect strictly more features than this to survive filtering")
	flag.IntVar(&topK, "topk", qc.TopK, "Size of the top-expression window in the per-sample metrics")
	flag.IntVar(&topVariable, "topvariable", 0, "How many of the most variable features feed the embeddings (0 for the default)")
	flag.IntVar(&components, "components", 0, "How many principal components to compute (0 for the default)")
	flag.Int64Var(&seed, "seed", 0, "Seed for the embeddings and the deduplication jitter")
	flag.IntVar(&legendRows, "nrw", 1, "Number of rows in the plot legends")
	flag.StringVar(&legendPos, "lps", string(qcplot.LegendBottom), "Legend position: top, bottom, left, right, or none")
	flag.StringVar(&paletteHex, "palette", "", "(Optional) Comma-separated hex colors overriding the default palette")
	flag.StringVar(&samplesOut, "samplesout", "", "(Optional) Path where the per-sample QC table will be written as TSV")
	flag.StringVar(&featuresOut, "featuresout", "", "(Optional) Path where the per-feature QC table will be written as TSV")
	flag.StringVar(&sqliteOut, "sqlite", "", "(Optional) Path to a SQLite database receiving both QC tables")
	flag.StringVar(&gifOut, "gif", "", "(Optional) Path where the t-SNE convergence animation will be written")
	flag.StringVar(&sheetOut, "sheet", "", "(Optional) Path where a one-page overview of every figure will be written")

	flag.Parse()

	if countsFile == "" && quantFiles == "" {
		log.Fatalln("Please provide -counts or -quants")
	} else if countsFile != "" && quantFiles != "" {
		log.Fatalln("Please provide only one of -counts and -quants")
	}

	if phenoFile == "" {
		log.Fatalln("Please provide -pheno")
	}

	if reportID == "" {
		log.Fatalln("Please provide -id")
	}

	if phenoID == "" {
		log.Fatalln("Please provide -phenoid")
	}

	if out == "" {
		log.Fatalln("Please provide -out")
	}

	log.Println("Launched scqcreport")

	cfg := report.Config{
		ID:            reportID,
		PhenoID:       splitList(phenoID),
		LegendRows:    legendRows,
		LegendPos:     qcplot.LegendPos(legendPos),
		ControlPrefix: controlPrefix,
		MinDetected:   minDetected,
		TopK:          topK,
		TopVariable:   topVariable,
		Components:    components,
		Seed:          seed,
		AnimateTSNE:   gifOut != "",
	}

	if err := runAll(cfg, countsFile, lstpmFile, tpmFile, quantFiles, quantLayout, phenoFile, idColumn, charsetLabel,
		organism, genome, salmonFile, rapmapFile, spikeFile, paletteHex,
		out, samplesOut, featuresOut, sqliteOut, gifOut, sheetOut); err != nil {
		log.Fatalln(err)
	}
}

func runAll(cfg report.Config, countsFile, lstpmFile, tpmFile, quantFiles, quantLayout, phenoFile, idColumn, charsetLabel,
	organism, genome, salmonFile, rapmapFile, spikeFile, paletteHex,
	out, samplesOut, featuresOut, sqliteOut, gifOut, sheetOut string) error {

	set, err := loadSet(countsFile, lstpmFile, tpmFile, quantFiles, quantLayout, phenoFile, idColumn, charsetLabel)
	if err != nil {
		return err
	}
	log.Println("Loaded", set.NFeatures(), "features across", set.NSamples(), "samples")

	set.Meta.Organism = organism
	set.Meta.Genome = genome
	if salmonFile != "" || rapmapFile != "" {
		set.Meta.Summaries = make(map[string][][]string)
	}
	if salmonFile != "" {
		table, err := expset.LoadSummary(salmonFile)
		if err != nil {
			return err
		}
		set.Meta.Summaries["salmon"] = table
		log.Println("Loaded", salmonFile)
	}
	if rapmapFile != "" {
		table, err := expset.LoadSummary(rapmapFile)
		if err != nil {
			return err
		}
		set.Meta.Summaries["rapmap"] = table
		log.Println("Loaded", rapmapFile)
	}

	if spikeFile != "" {
		concentrations, err := qc.LoadSpikeConcentrations(spikeFile)
		if err != nil {
			return err
		}
		cfg.Concentrations = concentrations
		log.Println("Loaded", len(concentrations), "spike-in concentrations")
	}

	if paletteHex != "" {
		palette, err := qcplot.ParsePalette(splitList(paletteHex))
		if err != nil {
			return err
		}
		cfg.Palette = palette
	}

	doc, err := report.Run(cfg, set)
	if err != nil {
		return err
	}
	log.Println("Assembled the report with", len(doc.Plots), "figure slots")

	htmlFile, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := doc.Render(htmlFile); err != nil {
		htmlFile.Close()
		return err
	}
	if err := htmlFile.Close(); err != nil {
		return err
	}
	log.Println("Wrote", out)

	if samplesOut != "" {
		if err := writeFile(samplesOut, doc.WriteSampleTSV); err != nil {
			return err
		}
		log.Println("Wrote", samplesOut)
	}

	if featuresOut != "" {
		if err := writeFile(featuresOut, doc.WriteFeatureTSV); err != nil {
			return err
		}
		log.Println("Wrote", featuresOut)
	}

	if sqliteOut != "" {
		if err := doc.ExportSQLite(sqliteOut); err != nil {
			return err
		}
		log.Println("Wrote", sqliteOut)
	}

	if gifOut != "" {
		if doc.TSNEGIF == nil {
			log.Println("No convergence animation was produced; skipping", gifOut)
		} else {
			f, err := os.Create(gifOut)
			if err != nil {
				return err
			}
			if err := gif.EncodeAll(f, doc.TSNEGIF); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.Println("Wrote", gifOut)
		}
	}

	if sheetOut != "" {
		img, err := doc.Sheet()
		if err != nil {
			return err
		}
		f, err := os.Create(sheetOut)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Println("Wrote", sheetOut)
	}

	return nil
}

// loadSet assembles the expression set from whole matrices, or from
// per-sample quantification outputs when -quants was given, and attaches
// the sample annotation. The annotation comes from a delimited or .xls
// file, or from a BigQuery table named as bq://project.dataset.table.
func loadSet(countsFile, lstpmFile, tpmFile, quantFiles, quantLayout, phenoFile, idColumn, charsetLabel string) (*expset.Set, error) {
	annotationFile := phenoFile
	if strings.HasPrefix(phenoFile, "bq://") {
		annotationFile = ""
	}

	var set *expset.Set
	if quantFiles != "" {
		files, err := parseSampleFiles(quantFiles)
		if err != nil {
			return nil, err
		}

		set, err = quant.LoadSet(files, quantLayout)
		if err != nil {
			return nil, err
		}

		if annotationFile != "" {
			ann, err := expset.LoadAnnotation(annotationFile, idColumn, charsetLabel)
			if err != nil {
				return nil, err
			}
			if err := set.AttachAnnotation(ann); err != nil {
				return nil, fmt.Errorf("%s: %w", annotationFile, err)
			}

			fp, err := scqc.Fingerprint(annotationFile)
			if err != nil {
				return nil, err
			}
			set.Sources = append(set.Sources, expset.Source{Path: annotationFile, Fingerprint: fp})
		}
	} else {
		matrices := []expset.MatrixFile{{Path: countsFile, Level: expset.LevelCount}}
		if lstpmFile != "" {
			matrices = append(matrices, expset.MatrixFile{Path: lstpmFile, Level: expset.LevelCountLSTPM})
		}
		if tpmFile != "" {
			matrices = append(matrices, expset.MatrixFile{Path: tpmFile, Level: expset.LevelTPM})
		}

		var err error
		set, err = expset.LoadSet(matrices, annotationFile, idColumn, charsetLabel)
		if err != nil {
			return nil, err
		}
	}

	if annotationFile == "" && phenoFile != "" {
		ann, err := annotationFromBigQuery(phenoFile, idColumn)
		if err != nil {
			return nil, err
		}
		if err := set.AttachAnnotation(ann); err != nil {
			return nil, fmt.Errorf("%s: %w", phenoFile, err)
		}
	}

	return set, nil
}

// annotationFromBigQuery resolves a bq://project.dataset.table name.
func annotationFromBigQuery(spec, idColumn string) (*expset.Annotation, error) {
	parts := strings.Split(strings.TrimPrefix(spec, "bq://"), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed BigQuery table %q, expected bq://project.dataset.table", spec)
	}

	wbq, err := expset.ConnectBigQuery(context.Background(), parts[0], parts[1])
	if err != nil {
		return nil, err
	}
	defer wbq.Client.Close()

	return expset.AnnotationFromBigQuery(wbq, parts[2], idColumn)
}

func parseSampleFiles(spec string) ([]quant.SampleFile, error) {
	var out []quant.SampleFile
	for _, pair := range splitList(spec) {
		sample, path, found := strings.Cut(pair, "=")
		if !found || sample == "" || path == "" {
			return nil, fmt.Errorf("malformed sample=path pair %q, expected sample=path", pair)
		}
		out = append(out, quant.SampleFile{Sample: sample, Path: path})
	}

	return out, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

func splitList(s string) []string {
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
