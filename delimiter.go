package scqc

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetectDelimiter guesses the field delimiter used in a tabular input by
// sampling the reader. Expression matrices are usually tab delimited, so tab
// is the fallback when no candidate stands out. The guess should be sanity
// checked against the parsed header.
func DetectDelimiter(r io.Reader) rune {
	det := detector.New()
	candidates := det.DetectDelimiter(io.LimitReader(r, 1024*1024), '"')

	delim := '\t'
	if len(candidates) > 0 {
		for _, c := range candidates[0] {
			delim = c
			break
		}
	}

	return delim
}
