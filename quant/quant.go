package quant

import (
	"encoding/csv"
	"fmt"
	"strings"
)

type Parser struct {
	CSVReaderSettings *csv.Reader
	Layout            Layout
}

func New(layout string) (*Parser, error) {
	l, exists := Layouts[layout]
	if !exists {
		b := strings.Builder{}
		i := 0
		for m := range Layouts {
			if i != 0 {
				b.WriteString(", ")
			}
			b.WriteString(m)
			i++
		}
		return nil, fmt.Errorf("Layout %s is not found. Valid layout names include: %s", layout, b.String())
	}

	return NewWithLayout(l)
}

func NewWithLayout(layout Layout) (*Parser, error) {
	n := &Parser{}
	n.Layout = layout
	n.CSVReaderSettings = &csv.Reader{}
	n.CSVReaderSettings.Comma = layout.Delimiter
	n.CSVReaderSettings.Comment = layout.Comment

	return n, nil
}

func (p *Parser) ParseRow(row []string) (Abundance, error) {
	if p.Layout.Parser == nil {
		return defaultParseRow(&p.Layout, row)
	}

	return (*p.Layout.Parser)(&p.Layout, row)
}
