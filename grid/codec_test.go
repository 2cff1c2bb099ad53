package grid

import (
	"testing"

	"github.com/go-sif/spatial"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCells(t *testing.T) {
	g, err := ComputeUniformGrid(spatial.NewRect(-1.5, 0, 10, 20.25), 6)
	require.Nil(t, err)
	encoded, err := EncodeCells(g.Cells)
	require.Nil(t, err)
	decoded, err := DecodeCells(encoded, 4096)
	require.Nil(t, err)
	require.Len(t, decoded, len(g.Cells))
	for i, c := range decoded {
		require.Equal(t, g.Cells[i].ID, c.ID)
		require.Equal(t, g.Cells[i].Rect, c.Rect)
		require.EqualValues(t, 4096, c.BlockSize)
	}
}

func TestDecodeCellsRejectsMalformedInput(t *testing.T) {
	_, err := DecodeCells(`{"id":1}`, 1024)
	require.NotNil(t, err)
	_, err = DecodeCells(`[{"id":1,"x1":0,"y1":0,"x2":1}]`, 1024)
	require.NotNil(t, err)
	_, err = DecodeCells(`[{"id":1,`, 1024)
	require.NotNil(t, err)
	cells, err := DecodeCells(`[]`, 1024)
	require.Nil(t, err)
	require.Empty(t, cells)
}

func TestEstimateCellCount(t *testing.T) {
	n, err := EstimateCellCount(SizeEstimate{Bytes: 10000}, 1024, 0.001, nil)
	require.Nil(t, err)
	require.Equal(t, 10, n)
	n, err = EstimateCellCount(SizeEstimate{Bytes: 0}, 1024, 0.001, nil)
	require.Nil(t, err)
	require.Equal(t, 1, n)

	perBlock := func(blockSize int64, recordSize int64) int64 { return 8 }
	n, err = EstimateCellCount(SizeEstimate{Bytes: 10000, AvgRecordSize: 100}, 1024, 0, perBlock)
	require.Nil(t, err)
	require.Equal(t, 13, n)

	_, err = EstimateCellCount(SizeEstimate{Bytes: 10000, AvgRecordSize: 100}, 1024, 0,
		func(int64, int64) int64 { return 0 })
	require.NotNil(t, err)
	_, err = EstimateCellCount(SizeEstimate{Bytes: 10}, 0, 0, nil)
	require.NotNil(t, err)
}
