package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/peterstace/simplefeatures/geom"
)

// number of chord segments used to approximate a disc
const discSegments = 32

type xy struct {
	x, y float64
}

type segment struct {
	a, b xy
}

// Buffer dilates a geometry by radius: the union of the input with a disc of
// the given radius swept along every vertex and edge (a disc-approximated
// Minkowski sum). The provider has no native planar buffer, so the dilation
// is assembled here from its union operation. A non-positive radius returns
// the input unchanged.
func Buffer(g Geom, radius float64) (Geom, error) {
	if radius <= 0 || g.IsEmpty() {
		return g, nil
	}
	segs := collectSegments(g.raw)
	acc := g.raw
	for _, s := range segs {
		pieces := []string{
			discWKT(s.a, radius),
		}
		if s.a != s.b {
			pieces = append(pieces, discWKT(s.b, radius), quadWKT(s.a, s.b, radius))
		}
		for _, wkt := range pieces {
			p, err := geom.UnmarshalWKT(wkt)
			if err != nil {
				return Geom{}, fmt.Errorf("buffer: %w", err)
			}
			acc, err = geom.Union(acc, p)
			if err != nil {
				return Geom{}, fmt.Errorf("buffer: %w", err)
			}
		}
	}
	return Geom{raw: acc}, nil
}

func collectSegments(g geom.Geometry) []segment {
	var segs []segment
	switch g.Type() {
	case geom.TypePoint:
		if p, ok := g.MustAsPoint().XY(); ok {
			segs = append(segs, segment{a: xy{p.X, p.Y}, b: xy{p.X, p.Y}})
		}
	case geom.TypeLineString:
		segs = append(segs, lineSegments(g.MustAsLineString())...)
	case geom.TypePolygon:
		segs = append(segs, polygonSegments(g.MustAsPolygon())...)
	case geom.TypeMultiPoint:
		mp := g.MustAsMultiPoint()
		for i := 0; i < mp.NumPoints(); i++ {
			if p, ok := mp.PointN(i).XY(); ok {
				segs = append(segs, segment{a: xy{p.X, p.Y}, b: xy{p.X, p.Y}})
			}
		}
	case geom.TypeMultiLineString:
		mls := g.MustAsMultiLineString()
		for i := 0; i < mls.NumLineStrings(); i++ {
			segs = append(segs, lineSegments(mls.LineStringN(i))...)
		}
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			segs = append(segs, polygonSegments(mp.PolygonN(i))...)
		}
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		for i := 0; i < gc.NumGeometries(); i++ {
			segs = append(segs, collectSegments(gc.GeometryN(i))...)
		}
	}
	return segs
}

func lineSegments(ls geom.LineString) []segment {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 1 {
		p := seq.GetXY(0)
		return []segment{{a: xy{p.X, p.Y}, b: xy{p.X, p.Y}}}
	}
	segs := make([]segment, 0, n-1)
	for i := 0; i+1 < n; i++ {
		p, q := seq.GetXY(i), seq.GetXY(i+1)
		segs = append(segs, segment{a: xy{p.X, p.Y}, b: xy{q.X, q.Y}})
	}
	return segs
}

func polygonSegments(p geom.Polygon) []segment {
	segs := lineSegments(p.ExteriorRing())
	for i := 0; i < p.NumInteriorRings(); i++ {
		segs = append(segs, lineSegments(p.InteriorRingN(i))...)
	}
	return segs
}

// discWKT renders a regular polygon approximating the disc of radius r
// around c.
func discWKT(c xy, r float64) string {
	var b strings.Builder
	b.WriteString("POLYGON((")
	for i := 0; i <= discSegments; i++ {
		theta := 2 * math.Pi * float64(i%discSegments) / discSegments
		if i > 0 {
			b.WriteByte(',')
		}
		writeCoord(&b, c.x+r*math.Cos(theta), c.y+r*math.Sin(theta))
	}
	b.WriteString("))")
	return b.String()
}

// quadWKT renders the rectangle spanned by sweeping segment a-b
// perpendicular by r on both sides.
func quadWKT(a, b xy, r float64) string {
	dx, dy := b.x-a.x, b.y-a.y
	l := math.Hypot(dx, dy)
	// normal scaled to length r
	nx, ny := -dy/l*r, dx/l*r

	var sb strings.Builder
	sb.WriteString("POLYGON((")
	writeCoord(&sb, a.x+nx, a.y+ny)
	sb.WriteByte(',')
	writeCoord(&sb, b.x+nx, b.y+ny)
	sb.WriteByte(',')
	writeCoord(&sb, b.x-nx, b.y-ny)
	sb.WriteByte(',')
	writeCoord(&sb, a.x-nx, a.y-ny)
	sb.WriteByte(',')
	writeCoord(&sb, a.x+nx, a.y+ny)
	sb.WriteString("))")
	return sb.String()
}

func writeCoord(b *strings.Builder, x, y float64) {
	b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	b.WriteByte(' ')
	b.WriteString(strconv.FormatFloat(y, 'g', -1, 64))
}
