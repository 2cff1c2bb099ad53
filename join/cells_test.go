package join

import (
	"context"
	"testing"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/cellfile"
	"github.com/go-sif/spatial/shape"
	"github.com/go-sif/spatial/storage"
	"github.com/go-sif/spatial/writer"
	"github.com/stretchr/testify/require"
)

func TestCells(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemFS(4096)
	w, err := writer.New(&writer.Options{FS: fs, Dir: "/cells", Degree: 4})
	require.Nil(t, err)
	require.Nil(t, w.Write(ctx, 1, []byte("0,0,10,10")))
	require.Nil(t, w.Write(ctx, 2, []byte("5,5,15,15")))
	require.Nil(t, w.Write(ctx, 2, []byte("20,20,30,30")))
	require.Nil(t, w.CloseAll(ctx))
	files := w.Files()
	require.Len(t, files, 2)

	var pairs []pair
	count, err := Cells(
		cellfile.NewReader(fs, files[0].Path, 0),
		cellfile.NewReader(fs, files[1].Path, 0),
		shape.ParseRectangle,
		func(r, s spatial.Shape) error {
			pairs = append(pairs, pair{string(r.AppendText(nil)), string(s.AppendText(nil))})
			return nil
		})
	require.Nil(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, []pair{{"0,0,10,10", "5,5,15,15"}}, pairs)
}
