// Package tasseledcap projects six-band reflectance onto the Tasseled Cap
// brightness, greenness and wetness axes.
//
// Coefficients are the Landsat TM reflectance factors published in Jensen,
// Introductory Digital Image Processing, 3rd ed.
package tasseledcap

import (
	"fmt"

	"github.com/Kanthalon/tassled-cap/pkg/raster"
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// Component indexes a row of the coefficient matrix.
type Component int

const (
	Brightness Component = iota
	Greenness
	Wetness
)

func (c Component) String() string {
	switch c {
	case Brightness:
		return "brightness"
	case Greenness:
		return "greenness"
	case Wetness:
		return "wetness"
	}
	return fmt.Sprintf("component(%d)", int(c))
}

// Components lists the axes in coefficient-matrix order.
var Components = [...]Component{Brightness, Greenness, Wetness}

var coefficients = [3][raster.BandCount]float64{
	Brightness: {0.2909, 0.2493, 0.4806, 0.5568, 0.4438, 0.1706},
	Greenness:  {-0.2728, -0.2174, -0.5508, 0.7221, 0.0733, -0.1648},
	Wetness:    {0.1446, 0.1761, 0.3322, 0.3396, -0.6210, -0.4186},
}

// Coefficients returns a copy of the coefficient vector for c.
func Coefficients(c Component) [raster.BandCount]float64 {
	return coefficients[c]
}

// Result holds the three projected sequences, aligned with the input BandSet.
type Result struct {
	Brightness []float64
	Greenness  []float64
	Wetness    []float64
}

// Len is the pixel count of the result.
func (r Result) Len() int {
	return len(r.Brightness)
}

// Component returns the sequence for c.
func (r Result) Component(c Component) []float64 {
	switch c {
	case Brightness:
		return r.Brightness
	case Greenness:
		return r.Greenness
	case Wetness:
		return r.Wetness
	}
	return nil
}

// Points pairs brightness with greenness, the plane analysts draw regions in.
func (r Result) Points() []r2.Point {
	pts := make([]r2.Point, len(r.Brightness))
	for i := range pts {
		pts[i] = r2.Point{X: r.Brightness[i], Y: r.Greenness[i]}
	}
	return pts
}

// Transform computes C·B where C is the 3×6 coefficient matrix and B holds
// one band per row. Misaligned bands fail with raster.ErrShapeMismatch.
func Transform(bands raster.BandSet) (Result, error) {
	n, err := bands.Pixels()
	if err != nil {
		return Result{}, err
	}
	if n == 0 {
		return Result{}, fmt.Errorf("%w: band set has no pixels", raster.ErrEmptyInput)
	}

	c := mat.NewDense(len(coefficients), raster.BandCount, nil)
	for i, row := range coefficients {
		c.SetRow(i, row[:])
	}

	b := mat.NewDense(raster.BandCount, n, nil)
	for i, band := range bands {
		b.SetRow(i, band)
	}

	var out mat.Dense
	out.Mul(c, b)

	return Result{
		Brightness: mat.Row(nil, int(Brightness), &out),
		Greenness:  mat.Row(nil, int(Greenness), &out),
		Wetness:    mat.Row(nil, int(Wetness), &out),
	}, nil
}
