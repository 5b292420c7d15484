// Package accuracy benchmarks pipeline output against a reference computation.
package accuracy

import (
	"errors"
	"fmt"
	"math"

	"github.com/Kanthalon/tassled-cap/pkg/raster"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrDegenerateFit is returned when a regression has too few points or no
// spread in x.
var ErrDegenerateFit = errors.New("degenerate fit")

// RMSD returns the root-mean-square deviation between paired sequences.
func RMSD(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d values vs %d", raster.ErrShapeMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("%w: rmsd of zero values", raster.ErrEmptyInput)
	}
	// The L2 distance is sqrt(Σ(aᵢ-bᵢ)²); dividing by √n gives the RMS.
	return floats.Distance(a, b, 2) / math.Sqrt(float64(len(a))), nil
}

// Fit is an ordinary least-squares line y = Intercept + Slope·x.
type Fit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// LinearFit regresses y on x. It never feeds back into the pipeline; it only
// describes how closely two computations agree.
func LinearFit(x, y []float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("%w: %d x values vs %d y values", raster.ErrShapeMismatch, len(x), len(y))
	}
	if len(x) == 0 {
		return Fit{}, fmt.Errorf("%w: regression of zero points", raster.ErrEmptyInput)
	}
	if len(x) < 2 {
		return Fit{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrDegenerateFit, len(x))
	}
	if stat.Variance(x, nil) == 0 {
		return Fit{}, fmt.Errorf("%w: x has zero variance", ErrDegenerateFit)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	fit := Fit{Slope: slope, Intercept: intercept}
	if stat.Variance(y, nil) != 0 {
		fit.RSquared = stat.RSquared(x, y, nil, intercept, slope)
	} else {
		fit.RSquared = 1
	}
	return fit, nil
}

// Comparison is the agreement between one computed series and its reference.
type Comparison struct {
	Name string
	RMSD float64
	Fit  Fit
}

// Compare computes RMSD and the linear fit of reference on computed values.
func Compare(name string, computed, reference []float64) (Comparison, error) {
	rmsd, err := RMSD(computed, reference)
	if err != nil {
		return Comparison{}, fmt.Errorf("%s: %w", name, err)
	}
	fit, err := LinearFit(computed, reference)
	if err != nil {
		return Comparison{}, fmt.Errorf("%s: %w", name, err)
	}
	return Comparison{Name: name, RMSD: rmsd, Fit: fit}, nil
}
