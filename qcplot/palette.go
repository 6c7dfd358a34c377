package qcplot

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/icza/gox/imagex/colorx"
)

// LegendPos fixes which side of a plot the legend panel is attached to.
type LegendPos string

const (
	LegendTop    LegendPos = "top"
	LegendBottom LegendPos = "bottom"
	LegendLeft   LegendPos = "left"
	LegendRight  LegendPos = "right"
	LegendNone   LegendPos = "none"
)

// ParseLegendPos validates a legend position name from configuration.
func ParseLegendPos(s string) (LegendPos, error) {
	pos := LegendPos(strings.ToLower(s))
	switch pos {
	case LegendTop, LegendBottom, LegendLeft, LegendRight, LegendNone:
		return pos, nil
	}

	return "", fmt.Errorf("legend position %s is not valid. Valid positions include: top, bottom, left, right, none", s)
}

// Ten well separated categorical hues.
var defaultHex = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// ParsePalette converts hex color strings of the #rrggbb form into colors.
func ParsePalette(hexes []string) ([]color.Color, error) {
	out := make([]color.Color, 0, len(hexes))
	for _, h := range hexes {
		v, err := colorx.ParseHexColor(h)
		if err != nil {
			return nil, fmt.Errorf("parsing palette color %s: %v", h, err)
		}

		out = append(out, v)
	}

	return out, nil
}

// DefaultPalette is the palette used when the caller supplies none.
func DefaultPalette() []color.Color {
	pal, err := ParsePalette(defaultHex)
	if err != nil {
		panic(err)
	}

	return pal
}
