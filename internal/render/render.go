// Package render draws the pipeline's diagnostic images: Tasseled Cap
// scatter plots, reference comparison plots and class maps.
package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"github.com/golang/geo/r2"
)

// Sink receives the images produced for each period.
type Sink interface {
	// Scatter plots brightness against greenness. labels may be nil; when
	// set, points are coloured by class.
	Scatter(period string, points []r2.Point, labels []string, palette Palette) error
	// Comparison plots computed values against their reference on [0,1] axes.
	Comparison(period, name string, computed, reference []float64) error
	// ClassMap paints each pixel of a width×height window with its class colour.
	ClassMap(period string, labels []string, width, height int, palette Palette) error
}

// Palette maps class labels to colours.
type Palette map[string]color.RGBA

// UnclassifiedColor paints pixels that fall in no class.
var UnclassifiedColor = color.RGBA{R: 100, G: 100, B: 100, A: 255}

// Color returns the colour for label, falling back to UnclassifiedColor.
func (p Palette) Color(label string) color.RGBA {
	if label == classify.Unclassified {
		return UnclassifiedColor
	}
	if c, ok := p[label]; ok {
		return c
	}
	return UnclassifiedColor
}

// ParseHexColor parses "#rrggbb" or "rrggbb".
func ParseHexColor(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: expected #rrggbb", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Scatter(string, []r2.Point, []string, Palette) error   { return nil }
func (NopSink) Comparison(string, string, []float64, []float64) error { return nil }
func (NopSink) ClassMap(string, []string, int, int, Palette) error    { return nil }
