package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/tiff"
)

const (
	plotWidth  = 640
	plotHeight = 480
	plotMargin = 40
	markerSize = 2
)

// Axis ranges of the Tasseled Cap scatter plot.
var (
	BrightnessRange = r1.Interval{Lo: 0.07, Hi: 1.1}
	GreennessRange  = r1.Interval{Lo: -0.02, Hi: 0.38}
	unitRange       = r1.Interval{Lo: 0, Hi: 1}
)

// Format is the image encoding used by a FileSink.
type Format string

const (
	FormatPNG  Format = "png"
	FormatTIFF Format = "tif"
)

// FileSink writes each image into Dir, named after the period and plot.
type FileSink struct {
	Dir    string
	Format Format
	// ClassMapScale enlarges class maps with nearest-neighbour scaling.
	ClassMapScale int
}

// NewFileSink creates a sink writing PNG files under dir
func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir, Format: FormatPNG, ClassMapScale: 1}
}

func (s *FileSink) Scatter(period string, points []r2.Point, labels []string, palette Palette) error {
	name := "tasseled_cap"
	if labels != nil {
		name = "classified"
	}

	p := newPlot(BrightnessRange, GreennessRange)
	for i, pt := range points {
		c := color.RGBA{A: 255}
		if labels != nil && i < len(labels) {
			c = palette.Color(labels[i])
		}
		p.mark(pt, c)
	}
	p.title(fmt.Sprintf("Tasseled Cap %s: brightness vs greenness", period))
	return s.write(period, name, p.img)
}

func (s *FileSink) Comparison(period, name string, computed, reference []float64) error {
	p := newPlot(unitRange, unitRange)
	p.line(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1}, color.RGBA{R: 200, G: 200, B: 200, A: 255})
	n := min(len(computed), len(reference))
	for i := 0; i < n; i++ {
		p.mark(r2.Point{X: computed[i], Y: reference[i]}, color.RGBA{B: 200, A: 255})
	}
	p.title(fmt.Sprintf("%s %s: computed vs reference", period, name))
	return s.write(period, "compare_"+name, p.img)
}

func (s *FileSink) ClassMap(period string, labels []string, width, height int, palette Palette) error {
	if width <= 0 || height <= 0 || len(labels) != width*height {
		return fmt.Errorf("class map of %d labels does not fit %dx%d", len(labels), width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, l := range labels {
		img.SetRGBA(i%width, i/width, palette.Color(l))
	}

	var out image.Image = img
	if s.ClassMapScale > 1 {
		scaled := image.NewRGBA(image.Rect(0, 0, width*s.ClassMapScale, height*s.ClassMapScale))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
		out = scaled
	}
	return s.write(period, "class_map", out)
}

// Path returns the file a plot is written to.
func (s *FileSink) Path(period, name string) string {
	format := s.Format
	if format == "" {
		format = FormatPNG
	}
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.%s", sanitize(period), sanitize(name), format))
}

func (s *FileSink) write(period, name string, img image.Image) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	path := s.Path(period, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	switch s.Format {
	case FormatTIFF:
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("error encoding %s: %w", path, err)
	}
	return f.Close()
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':':
			return '_'
		}
		return r
	}, s)
}

// plot maps data coordinates onto a fixed-size canvas with a margin.
type plot struct {
	img    *image.RGBA
	xr, yr r1.Interval
}

func newPlot(xr, yr r1.Interval) *plot {
	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	p := &plot{img: img, xr: xr, yr: yr}
	frame := color.RGBA{A: 255}
	corners := []r2.Point{{X: xr.Lo, Y: yr.Lo}, {X: xr.Hi, Y: yr.Lo}, {X: xr.Hi, Y: yr.Hi}, {X: xr.Lo, Y: yr.Hi}}
	for i := range corners {
		p.line(corners[i], corners[(i+1)%len(corners)], frame)
	}
	return p
}

// pixel converts a data point to canvas coordinates; ok is false outside the axes.
func (p *plot) pixel(pt r2.Point) (image.Point, bool) {
	if !p.xr.Contains(pt.X) || !p.yr.Contains(pt.Y) {
		return image.Point{}, false
	}
	w := float64(plotWidth - 2*plotMargin)
	h := float64(plotHeight - 2*plotMargin)
	x := plotMargin + (pt.X-p.xr.Lo)/p.xr.Length()*w
	y := plotHeight - plotMargin - (pt.Y-p.yr.Lo)/p.yr.Length()*h
	return image.Point{X: int(math.Round(x)), Y: int(math.Round(y))}, true
}

func (p *plot) mark(pt r2.Point, c color.RGBA) {
	at, ok := p.pixel(pt)
	if !ok {
		return
	}
	r := image.Rect(at.X-markerSize, at.Y-markerSize, at.X+markerSize+1, at.Y+markerSize+1)
	draw.Draw(p.img, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func (p *plot) line(a, b r2.Point, c color.RGBA) {
	pa, okA := p.pixel(a)
	pb, okB := p.pixel(b)
	if !okA || !okB {
		return
	}
	steps := max(abs(pb.X-pa.X), abs(pb.Y-pa.Y))
	if steps == 0 {
		p.img.SetRGBA(pa.X, pa.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := float64(pa.X) + t*float64(pb.X-pa.X)
		y := float64(pa.Y) + t*float64(pb.Y-pa.Y)
		p.img.SetRGBA(int(math.Round(x)), int(math.Round(y)), c)
	}
}

func (p *plot) title(text string) {
	d := &font.Drawer{
		Dst:  p.img,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(plotMargin, plotMargin-12),
	}
	d.DrawString(text)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
