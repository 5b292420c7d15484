package reflectance

import "fmt"

// ThermalIndex is the position of the thermal band in the sensor band order.
// It has no solar irradiance and never enters the reflectance pipeline.
const ThermalIndex = 5

// esunTable is the mean exo-atmospheric solar irradiance (W/m²/µm) per band
// position, from the Landsat TM/ETM+ handbook.
var esunTable = [...]float64{1957, 1826, 1554, 1036, 215, 0, 80.67}

// ReflectiveBandNumbers are the sensor band numbers carried through the
// pipeline, in BandSet order.
var ReflectiveBandNumbers = [...]int{1, 2, 3, 4, 5, 7}

// ESUN returns the solar irradiance for the band at position idx.
func ESUN(idx int) (float64, error) {
	if idx < 0 || idx >= len(esunTable) {
		return 0, fmt.Errorf("%w: no irradiance for band index %d", ErrInvalidCalibration, idx)
	}
	if idx == ThermalIndex {
		return 0, fmt.Errorf("%w: band index %d is thermal", ErrInvalidCalibration, idx)
	}
	return esunTable[idx], nil
}

// ESUNForBand returns the solar irradiance for a sensor band number (1-based).
func ESUNForBand(number int) (float64, error) {
	return ESUN(number - 1)
}
