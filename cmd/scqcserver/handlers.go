package main

import (
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type handler struct {
	reportDir string
}

func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

// Index lists every HTML report in the folder, newest first.
func (h *handler) Index(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(h.reportDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type listing struct {
		Name     string
		Modified string
	}

	reports := make([]listing, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		reports = append(reports, listing{
			Name:     entry.Name(),
			Modified: info.ModTime().Format("2006-01-02 15:04"),
		})
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Modified > reports[j].Modified
	})

	if err := indexTemplate.Execute(w, struct {
		Dir     string
		Reports []listing
	}{filepath.Base(h.reportDir), reports}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var indexTemplate = template.Must(template.New("").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>QC reports</title>
<style>
body { font-family: sans-serif; margin: 2em auto; max-width: 50em; color: #222; }
td { padding: 0.2em 1em 0.2em 0; }
</style>
</head>
<body>
<h1>QC reports: {{.Dir}}</h1>
{{if .Reports}}<table>
{{range .Reports}}<tr><td><a href="/reports/{{.Name}}">{{.Name}}</a></td><td>{{.Modified}}</td></tr>
{{end}}</table>
{{else}}<p>No reports yet.</p>
{{end}}</body>
</html>
`))
