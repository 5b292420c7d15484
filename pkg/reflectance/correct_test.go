package reflectance

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCorrectNoDataPassthrough(t *testing.T) {
	cals := []Calibration{
		{Gain: 0.01, Offset: -5, ESUN: 1957},
		{Gain: 1.2, Offset: 3.4, ESUN: 80.67},
		{Gain: 0, Offset: 0, ESUN: 215},
	}

	for _, cal := range cals {
		c, err := NewCorrector(cal, DefaultGeometry())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := c.Correct([]float64{0, -3})
		if out[0] != 0 || out[1] != 0 {
			t.Errorf("calibration %+v: no-data pixels came out as %v", cal, out)
		}
	}
}

func TestCorrectReferenceValue(t *testing.T) {
	const (
		gain   = 0.01
		offset = -5.0
		esun   = 1957.0
		zenith = 55.84171719
		dist   = 1.01429
	)

	out, err := Correct([]float64{100}, gain, offset, esun, zenith, dist)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	radiance := gain*100 + offset
	expected := math.Pi * radiance * dist * dist / (esun * math.Cos(zenith*math.Pi/180))
	expected = math.Round(expected*1e4) / 1e4

	if math.Abs(out[0]-expected) > 1e-9 {
		t.Errorf("Correct(100) = %v, expected %v", out[0], expected)
	}
	if math.Abs(out[0]-(-0.0118)) > 1e-9 {
		t.Errorf("Correct(100) = %v, expected -0.0118", out[0])
	}
}

func TestCorrectPreservesLengthAndOrder(t *testing.T) {
	dn := []float64{50, 0, 100, 150}
	out, err := Correct(dn, 0.8, 1.2, 1826, DefaultSunZenithDeg, DefaultEarthSunDistanceAU)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(dn) {
		t.Fatalf("len = %d, expected %d", len(out), len(dn))
	}
	if !(out[0] < out[2] && out[2] < out[3]) {
		t.Errorf("reflectance is not monotonic in DN: %v", out)
	}
	if out[1] != 0 {
		t.Errorf("no-data pixel = %v, expected 0", out[1])
	}
}

func TestCorrectRejectsBadCalibration(t *testing.T) {
	tests := []struct {
		name string
		cal  Calibration
		geo  Geometry
	}{
		{"zero esun", Calibration{Gain: 1, ESUN: 0}, DefaultGeometry()},
		{"sun below horizon", Calibration{Gain: 1, ESUN: 1957}, Geometry{SunZenithDeg: 95, EarthSunDistanceAU: 1}},
		{"zero distance", Calibration{Gain: 1, ESUN: 1957}, Geometry{SunZenithDeg: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCorrector(tt.cal, tt.geo)
			if !errors.Is(err, ErrInvalidCalibration) {
				t.Errorf("expected ErrInvalidCalibration, got %v", err)
			}
		})
	}
}

func TestESUN(t *testing.T) {
	for i, number := range ReflectiveBandNumbers {
		esun, err := ESUNForBand(number)
		if err != nil {
			t.Fatalf("band %d: %v", number, err)
		}
		if esun <= 0 {
			t.Errorf("band %d (position %d): esun = %v", number, i, esun)
		}
	}
	if _, err := ESUN(ThermalIndex); !errors.Is(err, ErrInvalidCalibration) {
		t.Errorf("thermal band: expected ErrInvalidCalibration, got %v", err)
	}
	if _, err := ESUN(9); err == nil {
		t.Error("expected error for out of range index")
	}
}

func TestEarthSunDistance(t *testing.T) {
	// Perihelion is early January, aphelion early July.
	jan := EarthSunDistance(time.Date(2009, 1, 4, 0, 0, 0, 0, time.UTC))
	jul := EarthSunDistance(time.Date(2009, 7, 4, 0, 0, 0, 0, time.UTC))

	if math.Abs(jan-0.9833) > 0.001 {
		t.Errorf("January distance = %v, expected ~0.9833", jan)
	}
	if math.Abs(jul-1.0167) > 0.001 {
		t.Errorf("July distance = %v, expected ~1.0167", jul)
	}
}

func TestZenithFromElevation(t *testing.T) {
	if got := ZenithFromElevation(34.15828281); math.Abs(got-DefaultSunZenithDeg) > 1e-9 {
		t.Errorf("ZenithFromElevation = %v, expected %v", got, DefaultSunZenithDeg)
	}
}

func TestSolarPosition(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		t       time.Time
		zenith  float64
		epsilon float64
	}{
		{"equinox equator noon", 0, 0, time.Date(2010, time.March, 20, 12, 7, 0, 0, time.UTC), 0, 1.0},
		{"solstice tropic noon", 23.44, 0, time.Date(2010, time.June, 21, 12, 2, 0, 0, time.UTC), 0, 1.0},
		{"winter solstice 40N noon", 40, 0, time.Date(2010, time.December, 21, 11, 58, 0, 0, time.UTC), 63.44, 1.0},
		{"midnight below horizon", 40, 0, time.Date(2010, time.June, 21, 0, 0, 0, 0, time.UTC), 116.56, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := SolarPosition(tt.lat, tt.lon, tt.t)
			if math.Abs(pos.ZenithDeg-tt.zenith) > tt.epsilon {
				t.Errorf("zenith = %v, expected %v ± %v", pos.ZenithDeg, tt.zenith, tt.epsilon)
			}
			if math.Abs(pos.ElevationDeg+pos.ZenithDeg-90) > 1e-9 {
				t.Errorf("elevation %v and zenith %v do not sum to 90", pos.ElevationDeg, pos.ZenithDeg)
			}
		})
	}
}
