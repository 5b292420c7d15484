// Package raster holds the pixel-aligned sequences shared by every stage of
// the land-cover pipeline.
package raster

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch is returned when sequences that must be pixel-aligned
	// differ in count or length.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrEmptyInput is returned when a non-empty dataset is required.
	ErrEmptyInput = errors.New("empty input")
)

// BandCount is the number of reflective bands every BandSet carries.
const BandCount = 6

// Band is one spectral band of a window in row-major pixel order.
type Band []float64

// BandSet is six bands aligned by pixel index.
type BandSet [BandCount]Band

// NewBandSet assembles a BandSet, refusing anything but six equal-length bands.
func NewBandSet(bands []Band) (BandSet, error) {
	var bs BandSet
	if len(bands) != BandCount {
		return bs, fmt.Errorf("%w: expected %d bands, got %d", ErrShapeMismatch, BandCount, len(bands))
	}
	for i, b := range bands {
		if len(b) != len(bands[0]) {
			return bs, fmt.Errorf("%w: band %d has %d pixels, band 0 has %d", ErrShapeMismatch, i, len(b), len(bands[0]))
		}
		bs[i] = b
	}
	return bs, nil
}

// Pixels returns the shared band length, or an error if the bands are not aligned.
func (bs BandSet) Pixels() (int, error) {
	n := len(bs[0])
	for i, b := range bs {
		if len(b) != n {
			return 0, fmt.Errorf("%w: band %d has %d pixels, band 0 has %d", ErrShapeMismatch, i, len(b), n)
		}
	}
	return n, nil
}

// Scale returns a copy of the set with every value multiplied by k.
func (bs BandSet) Scale(k float64) BandSet {
	var out BandSet
	for i, b := range bs {
		out[i] = make(Band, len(b))
		for j, v := range b {
			out[i][j] = v * k
		}
	}
	return out
}

// Window is a rectangular pixel region of a scene.
type Window struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Pixels is the number of pixels the window covers.
func (w Window) Pixels() int {
	if w.Width <= 0 || w.Height <= 0 {
		return 0
	}
	return w.Width * w.Height
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", w.Width, w.Height, w.X, w.Y)
}
