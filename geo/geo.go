package geo

import (
	"fmt"

	"github.com/peterstace/simplefeatures/geom"
)

// Geom is an opaque handle over the geometry provider. The engine only ever
// talks to this package; the provider never leaks past it.
type Geom struct {
	raw geom.Geometry
}

// ParseWKT parses a Well-Known Text geometry string.
func ParseWKT(wkt string) (Geom, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return Geom{}, fmt.Errorf("wkt parse: %w", err)
	}
	return Geom{raw: g}, nil
}

func (g Geom) IsEmpty() bool {
	return g.raw.IsEmpty()
}

func (g Geom) String() string {
	return g.raw.AsText()
}

// Envelope is the axis-aligned minimum bounding rectangle.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
	empty                  bool
}

func (g Geom) Envelope() Envelope {
	mn, mx, ok := g.raw.Envelope().MinMaxXYs()
	if !ok {
		return Envelope{empty: true}
	}
	return Envelope{MinX: mn.X, MinY: mn.Y, MaxX: mx.X, MaxY: mx.Y}
}

func (e Envelope) IsEmpty() bool {
	return e.empty
}

func (e Envelope) Intersects(o Envelope) bool {
	if e.empty || o.empty {
		return false
	}
	return e.MinX <= o.MaxX && e.MaxX >= o.MinX &&
		e.MinY <= o.MaxY && e.MaxY >= o.MinY
}

// ExpandBy grows the envelope by d on every side.
func (e Envelope) ExpandBy(d float64) Envelope {
	if e.empty {
		return e
	}
	return Envelope{
		MinX: e.MinX - d,
		MinY: e.MinY - d,
		MaxX: e.MaxX + d,
		MaxY: e.MaxY + d,
	}
}

func (e Envelope) Center() (x, y float64) {
	return (e.MinX + e.MaxX) / 2, (e.MinY + e.MaxY) / 2
}

func (g Geom) Area() float64 {
	return g.raw.Area()
}

// Centroid returns the centroid coordinates. ok is false for an empty
// geometry.
func (g Geom) Centroid() (x, y float64, ok bool) {
	xy, ok := g.raw.Centroid().XY()
	if !ok {
		return 0, 0, false
	}
	return xy.X, xy.Y, true
}

func Intersects(a, b Geom) bool {
	return geom.Intersects(a.raw, b.raw)
}

// Disjoint is the complement of Intersects.
func Disjoint(a, b Geom) bool {
	return !geom.Intersects(a.raw, b.raw)
}

func Touches(a, b Geom) (bool, error) {
	return geom.Touches(a.raw, b.raw)
}

func Crosses(a, b Geom) (bool, error) {
	return geom.Crosses(a.raw, b.raw)
}

func Contains(a, b Geom) (bool, error) {
	return geom.Contains(a.raw, b.raw)
}

func Within(a, b Geom) (bool, error) {
	return geom.Within(a.raw, b.raw)
}

func Overlaps(a, b Geom) (bool, error) {
	return geom.Overlaps(a.raw, b.raw)
}

func Equals(a, b Geom) (bool, error) {
	return geom.Equals(a.raw, b.raw)
}

// Distance is the minimum Euclidean distance between two geometries. ok is
// false when either geometry is empty.
func Distance(a, b Geom) (float64, bool) {
	return geom.Distance(a.raw, b.raw)
}

func Union(a, b Geom) (Geom, error) {
	u, err := geom.Union(a.raw, b.raw)
	if err != nil {
		return Geom{}, fmt.Errorf("union: %w", err)
	}
	return Geom{raw: u}, nil
}

func Intersection(a, b Geom) (Geom, error) {
	in, err := geom.Intersection(a.raw, b.raw)
	if err != nil {
		return Geom{}, fmt.Errorf("intersection: %w", err)
	}
	return Geom{raw: in}, nil
}
