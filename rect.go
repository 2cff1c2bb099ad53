package spatial

import (
	"math"
	"strconv"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Rect is an axis-aligned rectangle, described by its lower-left (X1, Y1)
// and upper-right (X2, Y2) corners. A Rect with X1 > X2 or Y1 > Y2 is empty.
type Rect struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// NewRect builds a Rect from two corners, normalizing their order
func NewRect(x1, y1, x2, y2 float64) Rect {
	return fromR2(r2.RectFromPoints(r2.Point{X: x1, Y: y1}, r2.Point{X: x2, Y: y2}))
}

// EmptyRect returns a Rect which contains nothing, and which acts as the identity for Union
func EmptyRect() Rect {
	return fromR2(r2.EmptyRect())
}

func fromR2(r r2.Rect) Rect {
	return Rect{X1: r.X.Lo, Y1: r.Y.Lo, X2: r.X.Hi, Y2: r.Y.Hi}
}

func (r Rect) toR2() r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: r.X1, Hi: r.X2}, Y: r1.Interval{Lo: r.Y1, Hi: r.Y2}}
}

// IsEmpty returns true iff this Rect is inverted or contains a NaN coordinate
func (r Rect) IsEmpty() bool {
	if math.IsNaN(r.X1) || math.IsNaN(r.Y1) || math.IsNaN(r.X2) || math.IsNaN(r.Y2) {
		return true
	}
	return r.toR2().IsEmpty()
}

// Width returns the extent of this Rect along the x axis
func (r Rect) Width() float64 {
	return r.X2 - r.X1
}

// Height returns the extent of this Rect along the y axis
func (r Rect) Height() float64 {
	return r.Y2 - r.Y1
}

// Area returns the area of this Rect, or 0 if it is empty
func (r Rect) Area() float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Center returns the midpoint of this Rect
func (r Rect) Center() (x float64, y float64) {
	c := r.toR2().Center()
	return c.X, c.Y
}

// Union returns the smallest Rect containing both this Rect and another
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return fromR2(r.toR2().Union(other.toR2()))
}

// Intersects returns true iff the two closed Rects share at least one point
func (r Rect) Intersects(other Rect) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.toR2().Intersects(other.toR2())
}

// InteriorIntersects returns true iff the interiors of the two Rects overlap,
// so that rectangles which merely touch along an edge do not intersect
func (r Rect) InteriorIntersects(other Rect) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.toR2().InteriorIntersects(other.toR2())
}

// ContainsPoint returns true iff the point lies within this closed Rect
func (r Rect) ContainsPoint(x, y float64) bool {
	return r.toR2().ContainsPoint(r2.Point{X: x, Y: y})
}

// ContainsRect returns true iff other lies entirely within this closed Rect
func (r Rect) ContainsRect(other Rect) bool {
	return r.toR2().Contains(other.toR2())
}

// String returns the comma-separated text form "x1,y1,x2,y2"
func (r Rect) String() string {
	return string(r.AppendText(nil))
}

// AppendText appends the comma-separated text form of this Rect to buf
func (r Rect) AppendText(buf []byte) []byte {
	buf = strconv.AppendFloat(buf, r.X1, 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, r.Y1, 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, r.X2, 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, r.Y2, 'g', -1, 64)
	return buf
}
