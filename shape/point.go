package shape

import (
	"strconv"

	"github.com/go-sif/spatial"
)

// Point is a zero-extent record located at (X, Y)
type Point struct {
	X float64
	Y float64
}

// MBR returns the degenerate bounding rectangle of this Point
func (p Point) MBR() spatial.Rect {
	return spatial.Rect{X1: p.X, Y1: p.Y, X2: p.X, Y2: p.Y}
}

// Intersects returns true iff other contains this Point
func (p Point) Intersects(other spatial.Shape) bool {
	return intersects(p, other)
}

// AppendText appends "x,y" to buf
func (p Point) AppendText(buf []byte) []byte {
	buf = strconv.AppendFloat(buf, p.X, 'g', -1, 64)
	buf = append(buf, ',')
	return strconv.AppendFloat(buf, p.Y, 'g', -1, 64)
}

// ParsePoint parses the text form "x,y"
func ParsePoint(text []byte) (spatial.Shape, error) {
	coords, err := parseCoords(text, 2)
	if err != nil {
		return nil, err
	}
	return Point{X: coords[0], Y: coords[1]}, nil
}
