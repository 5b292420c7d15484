// Package capture obtains the analyst's class polygons in brightness/greenness
// space, from configuration, a terminal prompt or an HTTP client.
package capture

import (
	"context"

	"github.com/Kanthalon/tassled-cap/pkg/classify"
	"github.com/Kanthalon/tassled-cap/pkg/config"
	"github.com/golang/geo/r2"
)

// Prompt identifies the polygon being asked for.
type Prompt struct {
	Period string `json:"period"`
	Label  string `json:"label"`
}

// Capturer returns the polygon drawn for prompt over the period's points.
type Capturer interface {
	Capture(ctx context.Context, prompt Prompt, points []r2.Point) (classify.Polygon, error)
}

// StaticCapturer serves polygons from configuration. A period's own polygon
// for a class takes precedence over the class default.
type StaticCapturer struct {
	byPeriod map[string]map[string][]r2.Point
	defaults map[string][]r2.Point
}

// NewStaticCapturer indexes the configured polygons
func NewStaticCapturer(periods []config.PeriodData, classes []config.ClassData) *StaticCapturer {
	s := &StaticCapturer{
		byPeriod: make(map[string]map[string][]r2.Point, len(periods)),
		defaults: make(map[string][]r2.Point, len(classes)),
	}
	for _, c := range classes {
		if len(c.Polygon) > 0 {
			s.defaults[c.Label] = Vertices(c.Polygon)
		}
	}
	for _, p := range periods {
		if len(p.Polygons) == 0 {
			continue
		}
		m := make(map[string][]r2.Point, len(p.Polygons))
		for label, v := range p.Polygons {
			m[label] = Vertices(v)
		}
		s.byPeriod[p.Label] = m
	}
	return s
}

// Capture never blocks. A class with no configured polygon gets an empty one.
func (s *StaticCapturer) Capture(ctx context.Context, prompt Prompt, points []r2.Point) (classify.Polygon, error) {
	if v, ok := s.byPeriod[prompt.Period][prompt.Label]; ok {
		return classify.NewPolygon(v), nil
	}
	return classify.NewPolygon(s.defaults[prompt.Label]), nil
}

// Vertices converts configured vertices to points.
func Vertices(v []config.VertexData) []r2.Point {
	pts := make([]r2.Point, len(v))
	for i, vd := range v {
		pts[i] = r2.Point{X: vd.X, Y: vd.Y}
	}
	return pts
}
