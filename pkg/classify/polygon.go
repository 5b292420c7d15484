// Package classify partitions pixels into land-cover classes from analyst-drawn
// regions in Tasseled Cap brightness/greenness space.
package classify

import (
	"math"

	"github.com/golang/geo/r2"
)

// boundaryTolerance absorbs rounding when a point sits on an edge.
const boundaryTolerance = 1e-12

// Polygon is a closed region; the last vertex implicitly joins the first.
// A polygon with fewer than three vertices encloses nothing.
type Polygon struct {
	Vertices []r2.Point
	bounds   r2.Rect
	ready    bool
}

// NewPolygon copies the vertices and precomputes the bounding box.
func NewPolygon(vertices []r2.Point) Polygon {
	p := Polygon{Vertices: append([]r2.Point(nil), vertices...)}
	p.prepare()
	return p
}

func (p *Polygon) prepare() {
	if len(p.Vertices) > 0 {
		p.bounds = r2.RectFromPoints(p.Vertices...)
	} else {
		p.bounds = r2.EmptyRect()
	}
	p.ready = true
}

// Empty reports whether the polygon can contain any point at all.
func (p Polygon) Empty() bool {
	return len(p.Vertices) < 3
}

// Contains reports whether pt lies inside the polygon or on its boundary.
func (p Polygon) Contains(pt r2.Point) bool {
	if p.Empty() {
		return false
	}
	if !p.ready {
		p.prepare()
	}
	if !p.bounds.ContainsPoint(pt) {
		return false
	}

	n := len(p.Vertices)
	inside := false
	for i := 0; i < n; i++ {
		a, b := p.Vertices[i], p.Vertices[(i+1)%n]

		if onSegment(pt, a, b) {
			return true
		}

		// Even-odd rule: cast a ray toward +x and count edge crossings.
		if (a.Y > pt.Y) != (b.Y > pt.Y) &&
			pt.X < (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// onSegment reports whether p lies on the closed segment ab.
func onSegment(p, a, b r2.Point) bool {
	ab := b.Sub(a)
	ap := p.Sub(a)
	scale := math.Max(ab.Norm(), 1)
	if math.Abs(ab.Cross(ap)) > boundaryTolerance*scale {
		return false
	}
	return p.X >= math.Min(a.X, b.X)-boundaryTolerance && p.X <= math.Max(a.X, b.X)+boundaryTolerance &&
		p.Y >= math.Min(a.Y, b.Y)-boundaryTolerance && p.Y <= math.Max(a.Y, b.Y)+boundaryTolerance
}
