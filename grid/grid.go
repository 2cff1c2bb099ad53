package grid

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
)

// Grid is an ordered collection of Cells which tile a global bounding box
// without gaps. Cell ids are 1-based and follow the order of Cells.
type Grid struct {
	Bounds spatial.Rect
	Cells  []spatial.Cell
	// xEdges and yEdges are set for uniform grids only
	xEdges []float64
	yEdges []float64
}

// Uniform returns true iff this Grid is a row/column tiling
func (g *Grid) Uniform() bool {
	return len(g.xEdges) > 0
}

// Rows returns the number of rows of a uniform Grid, or 0 for a packed Grid
func (g *Grid) Rows() int {
	if !g.Uniform() {
		return 0
	}
	return len(g.yEdges) - 1
}

// Cols returns the number of columns of a uniform Grid, or 0 for a packed Grid
func (g *Grid) Cols() int {
	if !g.Uniform() {
		return 0
	}
	return len(g.xEdges) - 1
}

// Cell returns the Cell with the given id
func (g *Grid) Cell(id spatial.CellID) (spatial.Cell, bool) {
	if id < 1 || int(id) > len(g.Cells) {
		return spatial.Cell{}, false
	}
	return g.Cells[id-1], true
}

// SetBlockSize assigns the storage block size of every Cell in this Grid
func (g *Grid) SetBlockSize(blockSize int64) {
	for i := range g.Cells {
		g.Cells[i].BlockSize = blockSize
	}
}

func checkBounds(bounds spatial.Rect, requireArea bool) error {
	if bounds.IsEmpty() {
		return errors.InvalidBoundsError{Bounds: bounds.String(), Reason: "empty or inverted"}
	}
	if math.IsInf(bounds.X1, 0) || math.IsInf(bounds.Y1, 0) || math.IsInf(bounds.X2, 0) || math.IsInf(bounds.Y2, 0) {
		return errors.InvalidBoundsError{Bounds: bounds.String(), Reason: "unbounded"}
	}
	if requireArea && bounds.Area() <= 0 {
		return errors.InvalidBoundsError{Bounds: bounds.String(), Reason: "zero area"}
	}
	return nil
}

// ComputeUniformGrid divides bounds into at least targetCellCount equal
// Cells. Columns and rows are added one at a time, always splitting along
// the axis whose cells are currently longer, so that Cells stay close to square.
func ComputeUniformGrid(bounds spatial.Rect, targetCellCount int) (*Grid, error) {
	if err := checkBounds(bounds, true); err != nil {
		return nil, err
	}
	if targetCellCount < 1 {
		return nil, fmt.Errorf("target cell count must be positive, was %d", targetCellCount)
	}
	cols, rows := 1, 1
	for cols*rows < targetCellCount {
		if bounds.Width()/float64(cols) > bounds.Height()/float64(rows) {
			cols++
		} else {
			rows++
		}
	}
	g := &Grid{
		Bounds: bounds,
		Cells:  make([]spatial.Cell, 0, cols*rows),
		xEdges: edges(bounds.X1, bounds.X2, cols),
		yEdges: edges(bounds.Y1, bounds.Y2, rows),
	}
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			g.Cells = append(g.Cells, spatial.Cell{
				ID:   spatial.CellID(len(g.Cells) + 1),
				Rect: spatial.Rect{X1: g.xEdges[col], Y1: g.yEdges[row], X2: g.xEdges[col+1], Y2: g.yEdges[row+1]},
			})
		}
	}
	return g, nil
}

// edges splits [lo, hi] into n intervals. The outermost edges are exactly lo and hi.
func edges(lo, hi float64, n int) []float64 {
	e := make([]float64, n+1)
	for i := 0; i < n; i++ {
		e[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	e[n] = hi
	return e
}

// ComputePackedGrid tiles the union of the given record rectangles with
// targetCellCount Cells which each hold a near-equal number of records.
// Records are sorted by the x-coordinate of their centers and cut into
// vertical strips, then each strip is sorted by y and cut into Cells. Records
// sharing a center x always fall in the same strip, and each strip receives
// Cells in proportion to its records. Cuts are placed at the center of the
// first record of each group, so Cells cover the whole bounding box rather
// than only the records they hold.
func ComputePackedGrid(records []spatial.Rect, targetCellCount int) (*Grid, error) {
	if targetCellCount < 1 {
		return nil, fmt.Errorf("target cell count must be positive, was %d", targetCellCount)
	}
	bounds := spatial.EmptyRect()
	for _, r := range records {
		bounds = bounds.Union(r)
	}
	if len(records) == 0 {
		return nil, errors.InvalidBoundsError{Bounds: bounds.String(), Reason: "no records"}
	}
	if err := checkBounds(bounds, false); err != nil {
		return nil, err
	}
	if targetCellCount > len(records) {
		targetCellCount = len(records)
	}
	cx := make([]float64, len(records))
	cy := make([]float64, len(records))
	idx := make([]int, len(records))
	for i, r := range records {
		cx[i], cy[i] = r.Center()
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return cx[idx[a]] < cx[idx[b]] })

	numStrips := int(math.Ceil(math.Sqrt(float64(targetCellCount))))
	strips, cellsPerStrip := apportion(splitRuns(idx, cx, numStrips), len(records), targetCellCount)
	// x cuts are read before any strip is re-sorted by y
	cuts := make([]float64, len(strips))
	for s := range strips {
		cuts[s] = bounds.X2
		if s+1 < len(strips) {
			cuts[s] = cx[idx[strips[s+1][0]]]
		}
	}

	g := &Grid{Bounds: bounds, Cells: make([]spatial.Cell, 0, targetCellCount)}
	x1 := bounds.X1
	for s, strip := range strips {
		members := idx[strip[0]:strip[1]]
		sort.SliceStable(members, func(a, b int) bool { return cy[members[a]] < cy[members[b]] })
		y1 := bounds.Y1
		offset := 0
		for _, size := range evenSizes(len(members), cellsPerStrip[s]) {
			offset += size
			y2 := bounds.Y2
			if offset < len(members) {
				y2 = cy[members[offset]]
			}
			g.Cells = append(g.Cells, spatial.Cell{
				ID:   spatial.CellID(len(g.Cells) + 1),
				Rect: spatial.Rect{X1: x1, Y1: y1, X2: cuts[s], Y2: y2},
			})
			y1 = y2
		}
		x1 = cuts[s]
	}
	return g, nil
}

// OverlappingCells returns the id of every Cell of g which the rectangle r
// overlaps. Along each axis, a rectangle with positive extent overlaps a Cell
// iff the open intervals intersect, so touching an edge is not overlap.
// Along an axis where r has zero extent, r is assigned to the Cell whose
// half-open interval [lo, hi) contains it, with the far edge of the Grid
// closed, so that points on a shared edge land in exactly one Cell.
func OverlappingCells(g *Grid, r spatial.Rect) ([]spatial.CellID, error) {
	if r.IsEmpty() {
		return nil, errors.InvalidBoundsError{Bounds: r.String(), Reason: "record has an empty bounding rectangle"}
	}
	if g.Uniform() {
		c1, c2, ok := span(g.xEdges, r.X1, r.X2)
		if !ok {
			return nil, nil
		}
		r1, r2, ok := span(g.yEdges, r.Y1, r.Y2)
		if !ok {
			return nil, nil
		}
		cols := g.Cols()
		ids := make([]spatial.CellID, 0, (c2-c1+1)*(r2-r1+1))
		for row := r1; row <= r2; row++ {
			for col := c1; col <= c2; col++ {
				ids = append(ids, spatial.CellID(row*cols+col+1))
			}
		}
		return ids, nil
	}
	var ids []spatial.CellID
	for _, c := range g.Cells {
		if overlapsAxis(c.Rect.X1, c.Rect.X2, r.X1, r.X2, g.Bounds.X2) &&
			overlapsAxis(c.Rect.Y1, c.Rect.Y2, r.Y1, r.Y2, g.Bounds.Y2) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

// overlapsAxis applies the overlap policy of OverlappingCells along one axis
func overlapsAxis(cellLo, cellHi, lo, hi, max float64) bool {
	if hi > lo {
		return lo < cellHi && hi > cellLo
	}
	return cellLo <= lo && (lo < cellHi || (lo == max && cellHi == max))
}

// span returns the range of intervals of a sorted edge list which [lo, hi] overlaps
func span(e []float64, lo, hi float64) (int, int, bool) {
	n := len(e) - 1
	if hi > lo {
		// first interval whose upper edge is above lo
		first := sort.Search(n, func(i int) bool { return e[i+1] > lo })
		// last interval whose lower edge is below hi
		last := sort.Search(n, func(i int) bool { return e[i] >= hi }) - 1
		if first > last || first >= n || last < 0 {
			return 0, 0, false
		}
		return first, last, true
	}
	if lo < e[0] || lo > e[n] {
		return 0, 0, false
	}
	if lo == e[n] {
		return n - 1, n - 1, true
	}
	i := sort.Search(n, func(i int) bool { return e[i+1] > lo })
	return i, i, true
}

// FromCells rebuilds a Grid from a list of Cells, such as one decoded from a
// job configuration. The Grid's bounds are the union of its Cells.
func FromCells(cells []spatial.Cell) (*Grid, error) {
	bounds := spatial.EmptyRect()
	for i, c := range cells {
		if c.ID != spatial.CellID(i+1) {
			return nil, fmt.Errorf("cell ids must be sequential from 1, found %d at position %d", c.ID, i)
		}
		bounds = bounds.Union(c.Rect)
	}
	if err := checkBounds(bounds, false); err != nil {
		return nil, err
	}
	return &Grid{Bounds: bounds, Cells: cells}, nil
}
