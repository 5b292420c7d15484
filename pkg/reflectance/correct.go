// Package reflectance converts raw Landsat digital numbers into top-of-atmosphere
// reflectance for a pixel window.
package reflectance

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCalibration marks calibration inputs that would make the
// correction divide by zero or produce non-finite values.
var ErrInvalidCalibration = errors.New("invalid calibration")

const (
	// DefaultSunZenithDeg is the solar zenith angle of the reference acquisition.
	DefaultSunZenithDeg = 55.84171719

	// DefaultEarthSunDistanceAU is the Earth-Sun distance of the reference acquisition.
	DefaultEarthSunDistanceAU = 1.01429
)

// Calibration is the radiometric rescaling for one band.
type Calibration struct {
	Gain   float64 // RADIANCE_MULT
	Offset float64 // RADIANCE_ADD
	ESUN   float64
}

// Geometry is the illumination geometry of an acquisition.
type Geometry struct {
	SunZenithDeg       float64
	EarthSunDistanceAU float64
}

// DefaultGeometry returns the geometry of the reference scene.
func DefaultGeometry() Geometry {
	return Geometry{
		SunZenithDeg:       DefaultSunZenithDeg,
		EarthSunDistanceAU: DefaultEarthSunDistanceAU,
	}
}

// Corrector applies one band's calibration under a fixed geometry.
type Corrector struct {
	cal   Calibration
	scale float64 // π·d² / (esun·cos θz)
}

// NewCorrector validates the inputs once so Correct cannot produce Inf or NaN.
func NewCorrector(cal Calibration, geo Geometry) (*Corrector, error) {
	if cal.ESUN <= 0 || math.IsNaN(cal.ESUN) {
		return nil, fmt.Errorf("%w: esun must be positive, got %v", ErrInvalidCalibration, cal.ESUN)
	}
	cosZenith := math.Cos(degToRad(geo.SunZenithDeg))
	if cosZenith <= 0 {
		return nil, fmt.Errorf("%w: sun zenith %v° puts the sun at or below the horizon", ErrInvalidCalibration, geo.SunZenithDeg)
	}
	if geo.EarthSunDistanceAU <= 0 {
		return nil, fmt.Errorf("%w: earth-sun distance must be positive, got %v", ErrInvalidCalibration, geo.EarthSunDistanceAU)
	}

	d := geo.EarthSunDistanceAU
	return &Corrector{
		cal:   cal,
		scale: math.Pi * d * d / (cal.ESUN * cosZenith),
	}, nil
}

// Correct converts digital numbers to reflectance. Non-positive values are
// no-data and come out as exactly 0. Output is rounded to 4 decimals and has
// the same length and order as the input.
func (c *Corrector) Correct(dn []float64) []float64 {
	out := make([]float64, len(dn))
	for i, d := range dn {
		if d <= 0 {
			continue
		}
		radiance := c.cal.Gain*d + c.cal.Offset
		out[i] = round4(radiance * c.scale)
	}
	return out
}

// Correct is the one-shot form of NewCorrector followed by Corrector.Correct.
func Correct(dn []float64, gain, offset, esun, sunZenithDeg, earthSunDistanceAU float64) ([]float64, error) {
	c, err := NewCorrector(
		Calibration{Gain: gain, Offset: offset, ESUN: esun},
		Geometry{SunZenithDeg: sunZenithDeg, EarthSunDistanceAU: earthSunDistanceAU},
	)
	if err != nil {
		return nil, err
	}
	return c.Correct(dn), nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
