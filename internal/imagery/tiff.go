// Package imagery reads Landsat scene inputs: per-band GeoTIFF pixel windows
// and the MTL metadata that calibrates them.
package imagery

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/Kanthalon/tassled-cap/pkg/raster"
	"golang.org/x/image/tiff"
)

// ImageSource returns raw digital numbers for a window of a band file, row-major.
// Pixel value 0 is reserved as no-data.
type ImageSource interface {
	Read(file string, w raster.Window) ([]float64, error)
}

// TIFFSource reads band files in (Geo)TIFF format.
type TIFFSource struct{}

// NewTIFFSource creates a TIFF image source
func NewTIFFSource() *TIFFSource {
	return &TIFFSource{}
}

// Read decodes file and copies out the window. Window pixels that fall
// outside the image come back as 0.
func (s *TIFFSource) Read(file string, w raster.Window) ([]float64, error) {
	if w.Pixels() == 0 {
		return nil, fmt.Errorf("%w: window %v has no pixels", raster.ErrEmptyInput, w)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("error opening band file: %w", err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", file, err)
	}

	return Window(img, w), nil
}

// Window copies the window out of img as grey levels.
func Window(img image.Image, w raster.Window) []float64 {
	out := make([]float64, 0, w.Pixels())
	bounds := img.Bounds()

	for y := w.Y; y < w.Y+w.Height; y++ {
		for x := w.X; x < w.X+w.Width; x++ {
			if !(image.Point{X: x, Y: y}).In(bounds) {
				out = append(out, 0)
				continue
			}
			out = append(out, grey(img, x, y))
		}
	}
	return out
}

func grey(img image.Image, x, y int) float64 {
	switch im := img.(type) {
	case *image.Gray:
		return float64(im.GrayAt(x, y).Y)
	case *image.Gray16:
		return float64(im.Gray16At(x, y).Y)
	}
	return float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
}
