package shape

import (
	"github.com/go-sif/spatial"
)

// intersects implements exact, closed intersection between the built-in shapes.
// A custom shape on the right-hand side is asked to answer for itself.
func intersects(a spatial.Shape, b spatial.Shape) bool {
	if !a.MBR().Intersects(b.MBR()) {
		return false
	}
	switch bv := b.(type) {
	case Point:
		return containsPoint(a, bv.X, bv.Y)
	case Rectangle:
		switch av := a.(type) {
		case Point, Rectangle:
			// bounding boxes already intersect
			return true
		case *Polygon:
			return polygonIntersectsRect(av, bv.Bounds)
		}
	case *Polygon:
		switch av := a.(type) {
		case Point:
			return bv.containsPoint(av.X, av.Y)
		case Rectangle:
			return polygonIntersectsRect(bv, av.Bounds)
		case *Polygon:
			return polygonsIntersect(av, bv)
		}
	}
	if KindOf(b) == CustomKind {
		return b.Intersects(a)
	}
	return false
}

func containsPoint(s spatial.Shape, x, y float64) bool {
	switch sv := s.(type) {
	case Point:
		return sv.X == x && sv.Y == y
	case Rectangle:
		return sv.Bounds.ContainsPoint(x, y)
	case *Polygon:
		return sv.containsPoint(x, y)
	default:
		return s.Intersects(Point{X: x, Y: y})
	}
}

func polygonIntersectsRect(p *Polygon, r spatial.Rect) bool {
	corners := [4][2]float64{{r.X1, r.Y1}, {r.X2, r.Y1}, {r.X2, r.Y2}, {r.X1, r.Y2}}
	for _, c := range corners {
		if p.containsPoint(c[0], c[1]) {
			return true
		}
	}
	vx, vy := p.vertex()
	if r.ContainsPoint(vx, vy) {
		return true
	}
	return p.edges(func(x1, y1, x2, y2 float64) bool {
		for i := range corners {
			j := (i + 1) % len(corners)
			if segmentsIntersect(x1, y1, x2, y2, corners[i][0], corners[i][1], corners[j][0], corners[j][1]) {
				return true
			}
		}
		return false
	})
}

func polygonsIntersect(a *Polygon, b *Polygon) bool {
	if x, y := a.vertex(); b.containsPoint(x, y) {
		return true
	}
	if x, y := b.vertex(); a.containsPoint(x, y) {
		return true
	}
	return a.edges(func(ax1, ay1, ax2, ay2 float64) bool {
		return b.edges(func(bx1, by1, bx2, by2 float64) bool {
			return segmentsIntersect(ax1, ay1, ax2, ay2, bx1, by1, bx2, by2)
		})
	})
}

// orientation returns the sign of the cross product (q-p)x(r-p)
func orientation(px, py, qx, qy, rx, ry float64) int {
	v := (qx-px)*(ry-py) - (qy-py)*(rx-px)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment returns true iff (x, y) lies on the closed segment (x1, y1)-(x2, y2)
func onSegment(x1, y1, x2, y2, x, y float64) bool {
	if orientation(x1, y1, x2, y2, x, y) != 0 {
		return false
	}
	return x >= min(x1, x2) && x <= max(x1, x2) && y >= min(y1, y2) && y <= max(y1, y2)
}

func segmentsIntersect(ax1, ay1, ax2, ay2, bx1, by1, bx2, by2 float64) bool {
	o1 := orientation(ax1, ay1, ax2, ay2, bx1, by1)
	o2 := orientation(ax1, ay1, ax2, ay2, bx2, by2)
	o3 := orientation(bx1, by1, bx2, by2, ax1, ay1)
	o4 := orientation(bx1, by1, bx2, by2, ax2, ay2)
	if o1 != o2 && o3 != o4 {
		return true
	}
	return onSegment(ax1, ay1, ax2, ay2, bx1, by1) ||
		onSegment(ax1, ay1, ax2, ay2, bx2, by2) ||
		onSegment(bx1, by1, bx2, by2, ax1, ay1) ||
		onSegment(bx1, by1, bx2, by2, ax2, ay2)
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
