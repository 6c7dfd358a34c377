package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/gif"
	"image/png"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/carbocation/pfx"
	"github.com/carbocation/scqc/buildinfo"
	"github.com/carbocation/scqc/qc"
	"github.com/carbocation/scqc/qcplot"
)

const (
	tsneFrameSize  = 320
	tsneFrameDelay = 20

	sheetWidthMM  = 297.0
	sheetHeightMM = 210.0
)

// A SummaryRow is one name/value line of the dataset summary table.
type SummaryRow struct {
	Name  string
	Value string
}

// A RawSummary is one upstream tool's run-statistics table, carried through
// from the loaders unmodified.
type RawSummary struct {
	Tool   string
	Header []string
	Rows   [][]string
}

// Session describes the binary that produced the report.
type Session struct {
	GoVersion string
	Package   string
	Commit    string
	Modified  bool
	Deps      []buildinfo.Module
}

// A Document is the fully assembled report: the summary tables, every
// figure slot in order, the outlier supplement, and the session record.
// Render writes it as a standalone HTML page with the figures inlined.
type Document struct {
	ID        string
	Generated time.Time
	Organism  string
	Genome    string

	Summary      []SummaryRow
	RawSummaries []RawSummary
	Plots        []PlotResult

	Outliers    []qc.OutlierFlags
	OutlierNote string
	Enrichment  []qc.GroupEnrichment
	EnrichmentP float64

	Session Session

	// TSNEGIF is the convergence animation, nil unless frame capture was
	// configured and t-SNE succeeded.
	TSNEGIF *gif.GIF

	metrics *qc.Metrics
	keys    []string
}

// Report assembles the document from the completed pipeline.
func (e *Embedded) Report() *Document {
	doc := &Document{
		ID:        e.cfg.ID,
		Generated: time.Now(),
		Organism:  e.set.Meta.Organism,
		Genome:    e.set.Meta.Genome,
		Plots:     e.plots(),
		Session:   newSession(),
		metrics:   e.metrics,
		keys:      e.keys,
	}

	doc.Summary = e.summaryRows()
	doc.RawSummaries = rawSummaries(e.set.Meta.Summaries)

	flags, err := qc.FlagOutliers(e.metrics, qc.DefaultNMADs)
	if err != nil {
		doc.OutlierNote = err.Error()
	} else {
		doc.Outliers = flags
		if groups, err := qc.FlagEnrichment(e.keys, flags); err == nil {
			doc.Enrichment = groups
			doc.EnrichmentP = qc.FlagChiSquare(groups)
		}
	}

	doc.TSNEGIF = e.animation()

	return doc
}

func (e *Embedded) summaryRows() []SummaryRow {
	rows := []SummaryRow{
		{Name: "Report", Value: e.cfg.ID},
		{Name: "Organism", Value: orUnrecorded(e.set.Meta.Organism)},
		{Name: "Genome", Value: orUnrecorded(e.set.Meta.Genome)},
		{Name: "Primary expression level", Value: e.primary.Source},
		{Name: "Features before filtering", Value: strconv.Itoa(e.rawFeatures)},
		{Name: "Features after filtering", Value: strconv.Itoa(e.set.NFeatures())},
		{Name: "Samples before filtering", Value: strconv.Itoa(e.rawSamples)},
		{Name: "Samples after filtering", Value: strconv.Itoa(e.set.NSamples())},
		{Name: "Grouping columns", Value: strings.Join(e.cfg.PhenoID, " + ")},
	}

	ctl := fmt.Sprintf("%s: %d candidate(s), not eligible", e.controls.Prefix, len(e.controls.Features))
	if e.controls.Eligible {
		ctl = fmt.Sprintf("%s: %d of %d candidate(s) qualifying", e.controls.Prefix, len(e.controls.Qualifying), len(e.controls.Features))
	}
	rows = append(rows, SummaryRow{Name: "Spike-in controls", Value: ctl})

	if e.jitter.Applied {
		rows = append(rows, SummaryRow{
			Name:  "Deduplication jitter",
			Value: fmt.Sprintf("applied to the embedding input after %d attempt(s)", e.jitter.Attempts),
		})
	}

	return rows
}

func rawSummaries(tables map[string][][]string) []RawSummary {
	if len(tables) == 0 {
		return nil
	}

	tools := make([]string, 0, len(tables))
	for tool := range tables {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	out := make([]RawSummary, 0, len(tools))
	for _, tool := range tools {
		rows := tables[tool]
		if len(rows) == 0 {
			continue
		}
		out = append(out, RawSummary{Tool: tool, Header: rows[0], Rows: rows[1:]})
	}

	return out
}

// animation renders the captured t-SNE snapshots into an animated GIF,
// every frame colored by the grouping key.
func (e *Embedded) animation() *gif.GIF {
	if len(e.frames) == 0 || e.tsneErr != nil {
		return nil
	}

	opt := e.cfg.plotOptions()

	imgs := make([]image.Image, 0, len(e.frames))
	for _, snap := range e.frames {
		pts := make([]qcplot.Point, len(snap))
		for i, xy := range snap {
			pts[i] = qcplot.Point{X: xy[0], Y: xy[1], Group: e.keys[i]}
		}
		imgs = append(imgs, qcplot.EmbeddingFrame(pts, tsneFrameSize, opt))
	}

	out, err := qcplot.ConvergenceGIF(imgs, tsneFrameSize, tsneFrameDelay)
	if err != nil {
		return nil
	}

	return out
}

func newSession() Session {
	b := buildinfo.Get()

	return Session{
		GoVersion: b.GoVersion,
		Package:   b.Package,
		Commit:    b.Commit,
		Modified:  b.Modified,
		Deps:      b.Deps,
	}
}

// FlaggedOutliers returns only the samples that tripped at least one fence.
func (d *Document) FlaggedOutliers() []qc.OutlierFlags {
	out := make([]qc.OutlierFlags, 0, len(d.Outliers))
	for _, f := range d.Outliers {
		if f.Flagged() {
			out = append(out, f)
		}
	}

	return out
}

// Sheet composes every rendered figure onto one printable overview page.
func (d *Document) Sheet() (image.Image, error) {
	imgs := make([]image.Image, 0, len(d.Plots))
	for _, p := range d.Plots {
		if p.Omitted() {
			continue
		}
		imgs = append(imgs, p.Img)
	}

	return qcplot.OverviewSheet(imgs, sheetWidthMM, sheetHeightMM)
}

// Render writes the document as a standalone HTML page.
func (d *Document) Render(w io.Writer) error {
	return pfx.Err(reportTemplate.Execute(w, d))
}

func pngURI(img image.Image) (template.URL, error) {
	buf := bytes.NewBuffer([]byte{})
	if err := png.Encode(buf, img); err != nil {
		return "", pfx.Err(err)
	}

	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func gifURI(g *gif.GIF) (template.URL, error) {
	buf := bytes.NewBuffer([]byte{})
	if err := gif.EncodeAll(buf, g); err != nil {
		return "", pfx.Err(err)
	}

	return template.URL("data:image/gif;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func orUnrecorded(s string) string {
	if s == "" {
		return "(not recorded)"
	}

	return s
}

var reportTemplate = template.Must(template.New("").Funcs(template.FuncMap{
	"pngURI": pngURI,
	"gifURI": gifURI,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>QC report: {{.ID}}</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 70em; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: 0.2em; }
h2 { margin-top: 2em; color: #333; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #bbb; padding: 0.3em 0.8em; text-align: left; }
th { background: #eee; }
.note { color: #8a6d3b; background: #fcf8e3; padding: 0.6em 1em; border: 1px solid #faebcc; }
.generated { color: #777; font-size: 0.9em; }
img { max-width: 100%; }
</style>
</head>
<body>

<h1>Single-cell QC report: {{.ID}}</h1>
<p class="generated">Generated {{.Generated.Format "2006-01-02 15:04:05 MST"}}</p>

<h2>Dataset</h2>
<table>
{{range .Summary}}<tr><th>{{.Name}}</th><td>{{.Value}}</td></tr>
{{end}}</table>

{{range .RawSummaries}}
<h2>Upstream summary: {{.Tool}}</h2>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{end}}

{{range .Plots}}
<h2>{{.Title}}</h2>
{{if .Omitted}}<p class="note">{{.OmitReason}}</p>
{{else}}<img src="{{pngURI .Img}}" alt="{{.Title}}">
{{end}}{{end}}

{{if .TSNEGIF}}
<h2>t-SNE convergence</h2>
<img src="{{gifURI .TSNEGIF}}" alt="t-SNE convergence">
{{end}}

<h2>Outlier flags</h2>
{{if .OutlierNote}}<p class="note">{{.OutlierNote}}</p>
{{else}}{{with .FlaggedOutliers}}<table>
<tr><th>Sample</th><th>Low total</th><th>Low detected</th><th>High control share</th></tr>
{{range .}}<tr><td>{{.Sample}}</td><td>{{if .LowTotal}}yes{{end}}</td><td>{{if .LowDetected}}yes{{end}}</td><td>{{if .HighControl}}yes{{end}}</td></tr>
{{end}}</table>
{{else}}<p>No sample was flagged.</p>
{{end}}{{end}}

{{if .Enrichment}}
<h2>Flag enrichment by group</h2>
<table>
<tr><th>Group</th><th>Flagged</th><th>Samples</th><th>P</th></tr>
{{range .Enrichment}}<tr><td>{{.Group}}</td><td>{{.Flagged}}</td><td>{{.Total}}</td><td>{{printf "%.3g" .P}}</td></tr>
{{end}}</table>
<p>Chi-square test for uneven flagging across groups: P = {{printf "%.3g" .EnrichmentP}}</p>
{{end}}

<h2>Session</h2>
<p>{{.Session.GoVersion}}{{if .Session.Package}}, {{.Session.Package}}{{end}}{{if .Session.Commit}}, commit {{.Session.Commit}}{{if .Session.Modified}} (modified){{end}}{{end}}</p>
{{if .Session.Deps}}<table>
<tr><th>Module</th><th>Version</th></tr>
{{range .Session.Deps}}<tr><td>{{.Path}}</td><td>{{.Version}}</td></tr>
{{end}}</table>
{{end}}

</body>
</html>
`))
