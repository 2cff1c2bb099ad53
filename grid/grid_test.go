package grid

import (
	"math/rand"
	"testing"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	"github.com/stretchr/testify/require"
)

func areaOf(cells []spatial.Cell) float64 {
	total := 0.0
	for _, c := range cells {
		total += c.Rect.Area()
	}
	return total
}

func requireTiles(t *testing.T, g *Grid) {
	union := spatial.EmptyRect()
	for i, a := range g.Cells {
		require.Equal(t, spatial.CellID(i+1), a.ID)
		union = union.Union(a.Rect)
		for _, b := range g.Cells[i+1:] {
			require.False(t, a.Rect.InteriorIntersects(b.Rect), "%s overlaps %s", a, b)
		}
	}
	require.Equal(t, g.Bounds, union)
	require.InDelta(t, g.Bounds.Area(), areaOf(g.Cells), 1e-6*g.Bounds.Area())
}

func TestComputeUniformGrid(t *testing.T) {
	bounds := spatial.NewRect(0, 0, 100, 50)
	g, err := ComputeUniformGrid(bounds, 2)
	require.Nil(t, err)
	require.True(t, g.Uniform())
	require.Equal(t, 2, g.Cols())
	require.Equal(t, 1, g.Rows())
	require.Equal(t, spatial.NewRect(0, 0, 50, 50), g.Cells[0].Rect)
	require.Equal(t, spatial.NewRect(50, 0, 100, 50), g.Cells[1].Rect)

	g, err = ComputeUniformGrid(bounds, 8)
	require.Nil(t, err)
	require.Equal(t, 4, g.Cols())
	require.Equal(t, 2, g.Rows())
	require.Len(t, g.Cells, 8)
	require.Equal(t, spatial.NewRect(0, 0, 25, 25), g.Cells[0].Rect)
	require.Equal(t, spatial.NewRect(75, 25, 100, 50), g.Cells[7].Rect)
	requireTiles(t, g)
}

func TestComputeUniformGridTilesBounds(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 10, 33, 100} {
		g, err := ComputeUniformGrid(spatial.NewRect(-3.3, 1.7, 12.9, 44.1), n)
		require.Nil(t, err)
		require.GreaterOrEqual(t, len(g.Cells), n)
		requireTiles(t, g)
	}
}

func TestComputeUniformGridRejectsDegenerateBounds(t *testing.T) {
	_, err := ComputeUniformGrid(spatial.NewRect(0, 0, 10, 0), 4)
	require.IsType(t, errors.InvalidBoundsError{}, err)
	_, err = ComputeUniformGrid(spatial.EmptyRect(), 4)
	require.IsType(t, errors.InvalidBoundsError{}, err)
	_, err = ComputeUniformGrid(spatial.NewRect(0, 0, 1, 1), 0)
	require.NotNil(t, err)
}

func TestOverlappingCellsReplicatesStraddlingRecords(t *testing.T) {
	g, err := ComputeUniformGrid(spatial.NewRect(0, 0, 10, 10), 4)
	require.Nil(t, err)
	ids, err := OverlappingCells(g, spatial.NewRect(4, 4, 6, 6))
	require.Nil(t, err)
	require.ElementsMatch(t, []spatial.CellID{1, 2, 3, 4}, ids)
	ids, err = OverlappingCells(g, spatial.NewRect(1, 1, 2, 2))
	require.Nil(t, err)
	require.Equal(t, []spatial.CellID{1}, ids)
}

func TestOverlappingCellsExcludesTouchingEdges(t *testing.T) {
	g, err := ComputeUniformGrid(spatial.NewRect(0, 0, 10, 10), 4)
	require.Nil(t, err)
	// right edge of the record lies on the boundary between cells 1 and 2
	ids, err := OverlappingCells(g, spatial.NewRect(1, 1, 5, 2))
	require.Nil(t, err)
	require.Equal(t, []spatial.CellID{1}, ids)
	// left edge of the record lies on the same boundary
	ids, err = OverlappingCells(g, spatial.NewRect(5, 1, 7, 2))
	require.Nil(t, err)
	require.Equal(t, []spatial.CellID{2}, ids)
	// a record entirely outside, touching the grid's edge
	ids, err = OverlappingCells(g, spatial.NewRect(10, 1, 12, 2))
	require.Nil(t, err)
	require.Empty(t, ids)
}

func TestOverlappingCellsAssignsPointsOnce(t *testing.T) {
	g, err := ComputeUniformGrid(spatial.NewRect(0, 0, 10, 10), 4)
	require.Nil(t, err)
	cases := map[[2]float64][]spatial.CellID{
		{5, 5}:   {4},
		{0, 0}:   {1},
		{10, 10}: {4},
		{10, 0}:  {2},
		{5, 2}:   {2},
	}
	for p, expected := range cases {
		ids, err := OverlappingCells(g, spatial.NewRect(p[0], p[1], p[0], p[1]))
		require.Nil(t, err)
		require.Equal(t, expected, ids, "point %v", p)
	}
	// a horizontal segment on the boundary between rows belongs to the upper row
	ids, err := OverlappingCells(g, spatial.NewRect(1, 5, 9, 5))
	require.Nil(t, err)
	require.Equal(t, []spatial.CellID{3, 4}, ids)
}

func TestOverlappingCellsRejectsEmptyRecords(t *testing.T) {
	g, err := ComputeUniformGrid(spatial.NewRect(0, 0, 10, 10), 4)
	require.Nil(t, err)
	_, err = OverlappingCells(g, spatial.Rect{X1: 3, Y1: 3, X2: 2, Y2: 4})
	require.IsType(t, errors.InvalidBoundsError{}, err)
}

func randomRecords(rnd *rand.Rand, n int, skewed bool) []spatial.Rect {
	records := make([]spatial.Rect, n)
	for i := range records {
		x, y := rnd.Float64()*100, rnd.Float64()*100
		if skewed && i%4 != 0 {
			x, y = rnd.Float64()*10, rnd.Float64()*10
		}
		if i%3 == 0 {
			records[i] = spatial.NewRect(x, y, x, y)
		} else {
			records[i] = spatial.NewRect(x, y, x+rnd.Float64()*5, y+rnd.Float64()*5)
		}
	}
	return records
}

func TestOverlappingCellsCoversEveryRecord(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	records := randomRecords(rnd, 500, false)
	bounds := spatial.EmptyRect()
	for _, r := range records {
		bounds = bounds.Union(r)
	}
	uniform, err := ComputeUniformGrid(bounds, 13)
	require.Nil(t, err)
	packed, err := ComputePackedGrid(records, 13)
	require.Nil(t, err)
	for _, g := range []*Grid{uniform, packed} {
		union := spatial.EmptyRect()
		for _, r := range records {
			ids, err := OverlappingCells(g, r)
			require.Nil(t, err)
			require.NotEmpty(t, ids, "record %s was dropped", r)
			cover := spatial.EmptyRect()
			for _, id := range ids {
				c, ok := g.Cell(id)
				require.True(t, ok)
				cover = cover.Union(c.Rect)
			}
			require.True(t, cover.ContainsRect(r), "cells %v do not cover %s", ids, r)
			union = union.Union(cover)
		}
		require.Equal(t, bounds, union)
	}
}

func TestUniformAndScanAgree(t *testing.T) {
	rnd := rand.New(rand.NewSource(11))
	g, err := ComputeUniformGrid(spatial.NewRect(0, 0, 100, 100), 9)
	require.Nil(t, err)
	scan := &Grid{Bounds: g.Bounds, Cells: g.Cells}
	records := randomRecords(rnd, 300, false)
	// include records aligned with cell edges
	records = append(records, spatial.NewRect(100.0/3, 0, 100.0/3, 100), spatial.NewRect(0, 0, 100, 100))
	for _, r := range records {
		fast, err := OverlappingCells(g, r)
		require.Nil(t, err)
		slow, err := OverlappingCells(scan, r)
		require.Nil(t, err)
		require.ElementsMatch(t, slow, fast, "record %s", r)
	}
}

func TestComputePackedGridBalancesSkewedData(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	records := randomRecords(rnd, 1000, true)
	g, err := ComputePackedGrid(records, 16)
	require.Nil(t, err)
	require.Len(t, g.Cells, 16)
	require.False(t, g.Uniform())
	requireTiles(t, g)
	counts := make(map[spatial.CellID]int)
	for _, r := range records {
		x, y := r.Center()
		ids, err := OverlappingCells(g, spatial.NewRect(x, y, x, y))
		require.Nil(t, err)
		require.Len(t, ids, 1)
		counts[ids[0]]++
	}
	for _, c := range g.Cells {
		// each cell should hold close to 1000/16 record centers
		require.InDelta(t, 62.5, counts[c.ID], 10, "cell %s", c)
	}
}

func TestComputePackedGridBalancesTiedCoordinates(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	var records []spatial.Rect
	for i := 0; i < 90; i++ {
		y := rnd.Float64() * 100
		records = append(records, spatial.NewRect(0, y, 0, y))
	}
	for i := 1; i <= 10; i++ {
		x, y := float64(i), rnd.Float64()*100
		records = append(records, spatial.NewRect(x, y, x, y))
	}
	g, err := ComputePackedGrid(records, 9)
	require.Nil(t, err)
	require.Len(t, g.Cells, 9)
	requireTiles(t, g)
	counts := make(map[spatial.CellID]int)
	for _, r := range records {
		ids, err := OverlappingCells(g, r)
		require.Nil(t, err)
		require.Len(t, ids, 1)
		counts[ids[0]]++
	}
	for _, c := range g.Cells {
		require.Greater(t, c.Rect.Width(), 0.0, "cell %s", c)
		require.GreaterOrEqual(t, counts[c.ID], 10, "cell %s", c)
		require.LessOrEqual(t, counts[c.ID], 12, "cell %s", c)
	}
}

func TestSplitRunsKeepsTiesTogether(t *testing.T) {
	idx := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	ranges := splitRuns(idx, []float64{0, 0, 0, 0, 0, 0, 1, 2, 2, 3}, 3)
	require.Equal(t, [][2]int{{0, 6}, {6, 10}}, ranges)
	merged, counts := apportion(ranges, len(idx), 3)
	require.Equal(t, ranges, merged)
	require.Equal(t, []int{2, 1}, counts)

	// the boundary moves back to the closer end of the run
	ranges = splitRuns(idx, []float64{0, 1, 1, 1, 1, 1, 1, 1, 1, 1}, 3)
	require.Equal(t, [][2]int{{0, 1}, {1, 10}}, ranges)
	merged, counts = apportion(ranges, len(idx), 3)
	require.Equal(t, [][2]int{{0, 10}}, merged)
	require.Equal(t, []int{3}, counts)
}

func TestComputePackedGridErrors(t *testing.T) {
	_, err := ComputePackedGrid(nil, 4)
	require.IsType(t, errors.InvalidBoundsError{}, err)
	_, err = ComputePackedGrid([]spatial.Rect{spatial.NewRect(0, 0, 1, 1)}, 0)
	require.NotNil(t, err)
	g, err := ComputePackedGrid([]spatial.Rect{spatial.NewRect(0, 0, 1, 1), spatial.NewRect(2, 2, 3, 3)}, 10)
	require.Nil(t, err)
	require.Len(t, g.Cells, 2)
}

func TestPackGroupSizes(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	records := randomRecords(rnd, 103, false)
	degree := 4
	groups := (len(records) + degree - 1) / degree
	slices := Pack(records, groups)
	seen := make(map[int]bool)
	total := 0
	for _, s := range slices {
		for _, group := range s.Groups {
			require.GreaterOrEqual(t, len(group), 2)
			require.LessOrEqual(t, len(group), degree)
			for _, i := range group {
				require.False(t, seen[i])
				seen[i] = true
			}
			total++
		}
	}
	require.Equal(t, groups, total)
	require.Len(t, seen, len(records))
}

func TestFromCells(t *testing.T) {
	g, err := ComputeUniformGrid(spatial.NewRect(0, 0, 10, 10), 4)
	require.Nil(t, err)
	rebuilt, err := FromCells(g.Cells)
	require.Nil(t, err)
	require.Equal(t, g.Bounds, rebuilt.Bounds)
	ids, err := OverlappingCells(rebuilt, spatial.NewRect(4, 4, 6, 6))
	require.Nil(t, err)
	require.ElementsMatch(t, []spatial.CellID{1, 2, 3, 4}, ids)
	_, err = FromCells([]spatial.Cell{{ID: 2, Rect: spatial.NewRect(0, 0, 1, 1)}})
	require.NotNil(t, err)
}
