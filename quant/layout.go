// Package quant parses per-sample transcript abundance files emitted by
// quantification tools such as salmon and kallisto, and assembles them into
// an expression set.
package quant

import "strings"

// A Layout maps the columns of one quantification tool's output file.
type Layout struct {
	Delimiter    rune
	Comment      rune
	ColFeature   int
	ColLength    int
	ColEffLength int
	ColTPM       int
	ColCount     int
	Parser       *func(layout *Layout, row []string) (Abundance, error)
}

var Layouts = map[string]Layout{
	// salmon quant.sf: Name Length EffectiveLength TPM NumReads
	"SALMON": {
		Delimiter:    '\t',
		Comment:      '#',
		ColFeature:   0,
		ColLength:    1,
		ColEffLength: 2,
		ColTPM:       3,
		ColCount:     4,
		Parser:       &defaultParseRow,
	},
	// kallisto abundance.tsv: target_id length eff_length est_counts tpm
	"KALLISTO": {
		Delimiter:    '\t',
		Comment:      '#',
		ColFeature:   0,
		ColLength:    1,
		ColEffLength: 2,
		ColTPM:       4,
		ColCount:     3,
		Parser:       &defaultParseRow,
	},
}

func LayoutNames() string {
	b := strings.Builder{}
	i := 0
	for m := range Layouts {
		if i != 0 {
			b.WriteString(", ")
		}
		b.WriteString(m)
		i++
	}

	return b.String()
}
