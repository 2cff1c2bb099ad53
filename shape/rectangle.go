package shape

import (
	"github.com/go-sif/spatial"
)

// Rectangle is an axis-aligned rectangular record
type Rectangle struct {
	Bounds spatial.Rect
}

// NewRectangle builds a Rectangle from two corners
func NewRectangle(x1, y1, x2, y2 float64) Rectangle {
	return Rectangle{Bounds: spatial.NewRect(x1, y1, x2, y2)}
}

// MBR returns the bounds of this Rectangle
func (r Rectangle) MBR() spatial.Rect {
	return r.Bounds
}

// Intersects returns true iff this closed Rectangle shares a point with other
func (r Rectangle) Intersects(other spatial.Shape) bool {
	return intersects(r, other)
}

// AppendText appends "x1,y1,x2,y2" to buf
func (r Rectangle) AppendText(buf []byte) []byte {
	return r.Bounds.AppendText(buf)
}

// ParseRectangle parses the text form "x1,y1,x2,y2"
func ParseRectangle(text []byte) (spatial.Shape, error) {
	coords, err := parseCoords(text, 4)
	if err != nil {
		return nil, err
	}
	return NewRectangle(coords[0], coords[1], coords[2], coords[3]), nil
}
