package shape

import (
	"testing"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	"github.com/stretchr/testify/require"
)

func mustParsePolygon(t *testing.T, wkt string) *Polygon {
	s, err := ParsePolygon([]byte(wkt))
	require.Nil(t, err)
	p, ok := s.(*Polygon)
	require.True(t, ok)
	return p
}

func TestParseAndText(t *testing.T) {
	p, err := ParsePoint([]byte("1.5, -2"))
	require.Nil(t, err)
	require.Equal(t, Point{X: 1.5, Y: -2}, p)
	require.Equal(t, "1.5,-2", string(Text(p)))

	r, err := ParseRectangle([]byte("10,10,0,0"))
	require.Nil(t, err)
	require.Equal(t, spatial.Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}, r.MBR())
	require.Equal(t, "0,0,10,10", string(Text(r)))

	_, err = ParseRectangle([]byte("1,2,3"))
	require.NotNil(t, err)
	_, err = ParsePoint([]byte("a,b"))
	require.NotNil(t, err)
}

func TestPolygonRoundTrip(t *testing.T) {
	poly := mustParsePolygon(t, "POLYGON ((0 0, 4 0, 4 4, 0 4, 0 0))")
	require.Equal(t, spatial.Rect{X1: 0, Y1: 0, X2: 4, Y2: 4}, poly.MBR())
	again, err := ParsePolygon(Text(poly))
	require.Nil(t, err)
	require.Equal(t, poly.MBR(), again.MBR())
	_, err = ParsePolygon([]byte("POINT (1 2)"))
	require.NotNil(t, err)
}

func TestIntersects(t *testing.T) {
	square := NewRectangle(0, 0, 10, 10)
	require.True(t, square.Intersects(NewRectangle(5, 5, 15, 15)))
	require.True(t, square.Intersects(NewRectangle(10, 10, 20, 20))) // touching corners
	require.False(t, square.Intersects(NewRectangle(20, 20, 30, 30)))
	require.True(t, square.Intersects(Point{X: 10, Y: 5}))
	require.True(t, Point{X: 3, Y: 3}.Intersects(square))
	require.False(t, Point{X: 3, Y: 3}.Intersects(Point{X: 3, Y: 4}))

	// triangle whose bounding box covers (3,1) but whose area does not
	triangle := mustParsePolygon(t, "POLYGON ((0 0, 4 4, 0 4, 0 0))")
	require.False(t, triangle.Intersects(Point{X: 3, Y: 1}))
	require.True(t, triangle.Intersects(Point{X: 1, Y: 3}))
	require.True(t, triangle.Intersects(Point{X: 2, Y: 2})) // on the boundary
	require.False(t, triangle.Intersects(NewRectangle(3, 0.5, 3.5, 1)))
	require.True(t, NewRectangle(1, 2, 5, 2.5).Intersects(triangle))

	donut := mustParsePolygon(t, "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0), (2 2, 8 2, 8 8, 2 8, 2 2))")
	require.False(t, donut.Intersects(Point{X: 5, Y: 5}))
	require.False(t, donut.Intersects(NewRectangle(4, 4, 6, 6)))
	require.True(t, donut.Intersects(NewRectangle(1, 1, 3, 3)))
	require.True(t, donut.Intersects(triangle))
	inHole := mustParsePolygon(t, "POLYGON ((4 4, 6 4, 6 6, 4 6, 4 4))")
	require.False(t, donut.Intersects(inHole))
	require.False(t, inHole.Intersects(donut))
}

func TestRegistry(t *testing.T) {
	parse, err := Lookup("Rect")
	require.Nil(t, err)
	s, err := parse([]byte("0,0,1,1"))
	require.Nil(t, err)
	require.Equal(t, RectangleKind, KindOf(s))

	_, err = Lookup("hexagon")
	require.IsType(t, errors.UnknownShapeError{}, err)

	Register("hexagon", ParsePoint)
	parse, err = Lookup("hexagon")
	require.Nil(t, err)
	s, err = parse([]byte("1,1"))
	require.Nil(t, err)
	require.Equal(t, PointKind, KindOf(s))
}

func TestParseLines(t *testing.T) {
	records, err := ParseLines([]byte("0,0\n1,1\n\n2,2\n"), ParsePoint)
	require.Nil(t, err)
	require.Len(t, records, 3)
	require.Equal(t, 4, records[1].Offset)
	require.Equal(t, 3, records[1].Length)
	require.Equal(t, Point{X: 2, Y: 2}, records[2].Shape)

	_, err = ParseLines([]byte("0,0\n1,1"), ParsePoint)
	require.IsType(t, errors.CorruptBufferError{}, err)
	_, err = ParseLines([]byte("0,0\nnope\n"), ParsePoint)
	require.IsType(t, errors.CorruptBufferError{}, err)
}
