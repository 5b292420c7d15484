package tasseledcap

import (
	"errors"
	"math"
	"testing"

	"github.com/Kanthalon/tassled-cap/pkg/raster"
)

const epsilon = 1e-9

func sampleBands() raster.BandSet {
	bs, _ := raster.NewBandSet([]raster.Band{
		{0.10, 0.05, 0},
		{0.12, 0.07, 0},
		{0.15, 0.04, 0},
		{0.30, 0.45, 0},
		{0.25, 0.20, 0},
		{0.18, 0.11, 0},
	})
	return bs
}

func TestTransformDotProducts(t *testing.T) {
	bands := sampleBands()
	res, err := Transform(bands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, comp := range Components {
		coef := Coefficients(comp)
		got := res.Component(comp)
		for px := 0; px < 3; px++ {
			var expected float64
			for b := 0; b < raster.BandCount; b++ {
				expected += bands[b][px] * coef[b]
			}
			if math.Abs(got[px]-expected) > epsilon {
				t.Errorf("%s[%d] = %v, expected %v", comp, px, got[px], expected)
			}
		}
	}

	if res.Brightness[2] != 0 || res.Greenness[2] != 0 || res.Wetness[2] != 0 {
		t.Errorf("no-data pixel projected to non-zero: %v %v %v", res.Brightness[2], res.Greenness[2], res.Wetness[2])
	}
}

func TestTransformIsLinear(t *testing.T) {
	bands := sampleBands()
	base, err := Transform(bands)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, k := range []float64{-2, 0, 0.5, 3.75} {
		scaled, err := Transform(bands.Scale(k))
		if err != nil {
			t.Fatalf("k=%v: unexpected error: %v", k, err)
		}
		for _, comp := range Components {
			for i, v := range scaled.Component(comp) {
				if math.Abs(v-k*base.Component(comp)[i]) > epsilon {
					t.Errorf("k=%v %s[%d] = %v, expected %v", k, comp, i, v, k*base.Component(comp)[i])
				}
			}
		}
	}
}

func TestTransformShapeMismatch(t *testing.T) {
	bands := sampleBands()
	bands[3] = raster.Band{0.1, 0.2}

	if _, err := Transform(bands); !errors.Is(err, raster.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestTransformEmpty(t *testing.T) {
	var bands raster.BandSet
	if _, err := Transform(bands); !errors.Is(err, raster.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestPoints(t *testing.T) {
	res := Result{Brightness: []float64{1, 2}, Greenness: []float64{3, 4}, Wetness: []float64{5, 6}}
	pts := res.Points()
	if len(pts) != 2 || pts[1].X != 2 || pts[1].Y != 4 {
		t.Errorf("Points() = %v", pts)
	}
}
