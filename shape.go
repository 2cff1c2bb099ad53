package spatial

// Shape is a single spatial record. The core of the engine only relies on a
// record's minimum bounding rectangle, an exact intersection predicate, and
// a text form which serves as the record's serialized representation.
// Shapes are immutable once parsed.
type Shape interface {
	MBR() Rect                    // MBR returns the minimum bounding rectangle of this Shape
	Intersects(other Shape) bool  // Intersects returns true iff this Shape and other share at least one point
	AppendText(buf []byte) []byte // AppendText appends the serialized text form of this Shape to buf, without a trailing newline
}

// LessX orders Shapes by the lower x-coordinate of their bounding rectangles
func LessX(a, b Shape) bool {
	return a.MBR().X1 < b.MBR().X1
}

// PairSink receives intersecting pairs of Shapes produced by a spatial join.
// Returning an error aborts the join.
type PairSink func(r Shape, s Shape) error

// ShapeSink receives Shapes produced by a query. Returning an error aborts the query.
type ShapeSink func(s Shape) error
