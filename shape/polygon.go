package shape

import (
	"fmt"

	"github.com/go-sif/spatial"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Polygon is a record backed by a planar polygon, possibly with holes.
// Its text form is WKT.
type Polygon struct {
	poly  *geom.Polygon
	rings [][]geom.Coord
	mbr   spatial.Rect
}

// NewPolygon wraps a go-geom Polygon
func NewPolygon(poly *geom.Polygon) (*Polygon, error) {
	if poly.NumLinearRings() == 0 {
		return nil, fmt.Errorf("polygon has no rings")
	}
	bounds := poly.Bounds()
	rings := make([][]geom.Coord, poly.NumLinearRings())
	for i := range rings {
		rings[i] = poly.LinearRing(i).Coords()
	}
	return &Polygon{
		poly:  poly,
		rings: rings,
		mbr:   spatial.NewRect(bounds.Min(0), bounds.Min(1), bounds.Max(0), bounds.Max(1)),
	}, nil
}

// Geom returns the underlying go-geom Polygon
func (p *Polygon) Geom() *geom.Polygon {
	return p.poly
}

// MBR returns the bounding rectangle of this Polygon
func (p *Polygon) MBR() spatial.Rect {
	return p.mbr
}

// Intersects returns true iff this Polygon's boundary or interior shares a point with other
func (p *Polygon) Intersects(other spatial.Shape) bool {
	return intersects(p, other)
}

// AppendText appends the WKT form of this Polygon to buf
func (p *Polygon) AppendText(buf []byte) []byte {
	text, err := wkt.Marshal(p.poly)
	if err != nil {
		// a Polygon is only ever built from a valid go-geom Polygon
		panic(err)
	}
	return append(buf, text...)
}

// ParsePolygon parses a WKT POLYGON
func ParsePolygon(text []byte) (spatial.Shape, error) {
	g, err := wkt.Unmarshal(string(text))
	if err != nil {
		return nil, err
	}
	poly, ok := g.(*geom.Polygon)
	if !ok {
		return nil, fmt.Errorf("expected a POLYGON, got %T", g)
	}
	return NewPolygon(poly)
}

// containsPoint tests whether a point lies within the polygon or on its boundary,
// applying the even-odd rule across all rings so that holes are excluded
func (p *Polygon) containsPoint(x, y float64) bool {
	if !p.mbr.ContainsPoint(x, y) {
		return false
	}
	inside := false
	for _, ring := range p.rings {
		n := len(ring)
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			xi, yi := ring[i][0], ring[i][1]
			xj, yj := ring[j][0], ring[j][1]
			if onSegment(xj, yj, xi, yi, x, y) {
				return true
			}
			if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
	}
	return inside
}

// edges calls fn for every edge of every ring, stopping when fn returns true
func (p *Polygon) edges(fn func(x1, y1, x2, y2 float64) bool) bool {
	for _, ring := range p.rings {
		n := len(ring)
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			if fn(ring[j][0], ring[j][1], ring[i][0], ring[i][1]) {
				return true
			}
		}
	}
	return false
}

// vertex returns any vertex of this polygon's outer ring
func (p *Polygon) vertex() (float64, float64) {
	return p.rings[0][0][0], p.rings[0][0][1]
}
