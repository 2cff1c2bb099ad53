package writer

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"testing"
	"time"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	"github.com/go-sif/spatial/internal/metrics"
	"github.com/go-sif/spatial/internal/spill"
	"github.com/go-sif/spatial/logging"
	"github.com/go-sif/spatial/rtree"
	"github.com/go-sif/spatial/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// record returns a 99-byte rectangle record, which occupies 100 bytes with its newline
func record(i int) []byte {
	v := float64(i)
	return []byte(fmt.Sprintf("%024.6f,%024.6f,%024.6f,%024.6f", v, v, v+1, v+1))
}

func readAll(t *testing.T, fs storage.FileSystem, path string) []byte {
	f, err := fs.Open(path)
	require.Nil(t, err)
	defer f.Close()
	buf, err := ioutil.ReadAll(f)
	require.Nil(t, err)
	return buf
}

func newWriter(t *testing.T, fs storage.FileSystem, opts *Options) *CellWriter {
	if opts == nil {
		opts = &Options{}
	}
	opts.FS = fs
	opts.Dir = "/out"
	w, err := New(opts)
	require.Nil(t, err)
	return w
}

func TestFlushBeforeBlockOverflow(t *testing.T) {
	require.Len(t, record(1), 99)
	ctx := context.Background()
	fs := storage.NewMemFS(1024)
	reg := prometheus.NewRegistry()
	w := newWriter(t, fs, &Options{Degree: 4, Metrics: metrics.NewMetrics(reg)})
	require.EqualValues(t, 1024, w.BlockSize())

	for i := 0; i < 8; i++ {
		require.Nil(t, w.Write(ctx, 1, record(i)))
	}
	require.Equal(t, Buffering, w.State(1))
	exists, err := fs.Exists("/out/part-00001")
	require.Nil(t, err)
	require.False(t, exists)

	// the 9th record would project past 1024 bytes, so the first 8 are flushed first
	require.Nil(t, w.Write(ctx, 1, record(8)))
	size, err := fs.Size("/out/part-00001")
	require.Nil(t, err)
	require.EqualValues(t, 1024, size)
	require.Equal(t, float64(1), testutil.ToFloat64(w.opts.Metrics.Flushes.WithLabelValues("indexed")))

	require.Nil(t, w.Close(ctx, 1))
	require.Equal(t, Closed, w.State(1))
	content := readAll(t, fs, "/out/part-00001")
	require.Len(t, content, 2048)

	first, err := rtree.Open(content[:1024])
	require.Nil(t, err)
	require.Equal(t, 8, first.Len())
	require.Equal(t, 2, first.Height())
	second, err := rtree.Open(content[1024:])
	require.Nil(t, err)
	require.Equal(t, 1, second.Len())
	require.Equal(t, append(record(8), '\n'), second.Data())

	require.Equal(t, float64(9), testutil.ToFloat64(w.opts.Metrics.RecordsWritten))
	require.Equal(t, float64(0), testutil.ToFloat64(w.opts.Metrics.OpenCells))
	snap := w.opts.Stats.Snapshot()
	require.EqualValues(t, 2, snap.Flushes)
	require.EqualValues(t, 900, snap.BytesWritten)
	require.EqualValues(t, 2048-first.Size()-second.Size(), snap.PaddingWritten)
}

func TestClosedCellRejectsWrites(t *testing.T) {
	ctx := context.Background()
	w := newWriter(t, storage.NewMemFS(1024), nil)
	require.Nil(t, w.Write(ctx, 3, []byte("0,0,1,1")))
	// an empty record closes the cell
	require.Nil(t, w.Write(ctx, 3, nil))
	require.Equal(t, Closed, w.State(3))
	err := w.Write(ctx, 3, []byte("0,0,1,1"))
	require.Equal(t, errors.ClosedCellError{CellID: 3}, err)
	require.IsType(t, errors.ClosedCellError{}, w.Flush(ctx, 3))
	require.Nil(t, w.Close(ctx, 3))
}

func TestWritersShareFlushLimit(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemFS(1024)
	limit := semaphore.NewWeighted(1)
	a := newWriter(t, fs, &Options{Prefix: "a", FlushLimit: limit})
	b := newWriter(t, fs, &Options{Prefix: "b", FlushLimit: limit})
	require.Nil(t, a.Write(ctx, 1, record(1)))
	require.Nil(t, b.Write(ctx, 1, record(2)))

	// while the shared limit is taken, neither writer may flush
	require.Nil(t, limit.Acquire(ctx, 1))
	for _, w := range []*CellWriter{a, b} {
		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		err := w.Flush(tctx, 1)
		cancel()
		require.Equal(t, context.DeadlineExceeded, err)
		require.Equal(t, Buffering, w.State(1))
	}
	limit.Release(1)
	require.Nil(t, a.Flush(ctx, 1))
	require.Nil(t, b.Flush(ctx, 1))
	require.Nil(t, a.CloseAll(ctx))
	require.Nil(t, b.CloseAll(ctx))
}

func TestCapacityExceeded(t *testing.T) {
	ctx := context.Background()
	w := newWriter(t, storage.NewMemFS(256), &Options{Degree: 4})
	err := w.Write(ctx, 1, bytes.Repeat([]byte("1"), 250))
	require.IsType(t, errors.CapacityExceededError{}, err)
	require.Equal(t, Empty, w.State(1))

	flat := newWriter(t, storage.NewMemFS(256), &Options{Flat: true})
	require.Nil(t, flat.Write(ctx, 1, bytes.Repeat([]byte("1"), 255)))
	err = flat.Write(ctx, 2, bytes.Repeat([]byte("1"), 256))
	require.Equal(t, errors.CapacityExceededError{RecordSize: 257, BlockSize: 256}, err)
}

func TestRejectsEmbeddedNewlines(t *testing.T) {
	w := newWriter(t, storage.NewMemFS(1024), nil)
	err := w.Write(context.Background(), 1, []byte("0,0\n1,1"))
	require.IsType(t, errors.CorruptBufferError{}, err)
}

func TestFlatCells(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemFS(64)
	w := newWriter(t, fs, &Options{Flat: true})
	lines := []string{"1,2", "3,4", "5,6"}
	for _, l := range lines {
		require.Nil(t, w.Write(ctx, 7, []byte(l)))
	}
	require.Nil(t, w.CloseAll(ctx))
	content := readAll(t, fs, "/out/part-00007")
	require.Len(t, content, 64)
	require.Equal(t, "1,2\n3,4\n5,6\n", string(bytes.TrimRight(content, "\x00")))
	require.Equal(t, []CellFile{{ID: 7, Path: "/out/part-00007", Size: 64}}, w.Files())
}

func TestFlushOfEmptyCellWritesNothing(t *testing.T) {
	ctx := context.Background()
	fs := storage.NewMemFS(1024)
	w := newWriter(t, fs, nil)
	require.Nil(t, w.Flush(ctx, 5))
	require.Nil(t, w.Close(ctx, 5))
	exists, err := fs.Exists("/out/part-00005")
	require.Nil(t, err)
	require.False(t, exists)
	require.Empty(t, w.Files())
}

func TestCorruptRecordsFailTheFlush(t *testing.T) {
	ctx := context.Background()
	w := newWriter(t, storage.NewMemFS(1024), nil)
	require.Nil(t, w.Write(ctx, 1, []byte("not a rectangle")))
	err := w.Close(ctx, 1)
	require.NotNil(t, err)
	var corrupt errors.CorruptBufferError
	require.ErrorAs(t, err, &corrupt)
}

func TestPadding(t *testing.T) {
	require.EqualValues(t, 0, PaddingFor(0, 1024))
	require.EqualValues(t, 1023, PaddingFor(1, 1024))
	require.EqualValues(t, 0, PaddingFor(2048, 1024))
	require.EqualValues(t, 24, PaddingFor(1000, 1024))

	var out bytes.Buffer
	out.Write(bytes.Repeat([]byte("x"), 5000))
	n, err := Pad(&out, int64(out.Len()), 4096)
	require.Nil(t, err)
	require.EqualValues(t, 3192, n)
	require.Equal(t, 8192, out.Len())
	// padding an aligned output changes nothing
	n, err = Pad(&out, int64(out.Len()), 4096)
	require.Nil(t, err)
	require.EqualValues(t, 0, n)
	require.Equal(t, 8192, out.Len())
}

func TestConcurrentCellsWithSpilledBuffers(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	fs := storage.NewMemFS(4096)
	store, err := spill.NewDiskStore(afero.NewMemMapFs(), "/spill", spill.LZ4)
	require.Nil(t, err)
	var logs bytes.Buffer
	w := newWriter(t, fs, &Options{
		Degree:               11,
		Mode:                 spatial.BuildAccurate,
		Spill:                store,
		MaxConcurrentFlushes: 2,
		Logger:               logging.NewLogger(&logs, logging.DebugLevel),
	})
	g, gctx := errgroup.WithContext(ctx)
	for c := 1; c <= 8; c++ {
		id := spatial.CellID(c)
		g.Go(func() error {
			for i := 0; i < 300; i++ {
				if err := w.Write(gctx, id, record(i)); err != nil {
					return err
				}
			}
			return w.Write(gctx, id, nil)
		})
	}
	require.Nil(t, g.Wait())
	require.Nil(t, w.CloseAll(ctx))

	files := w.Files()
	require.Len(t, files, 8)
	for _, f := range files {
		content := readAll(t, fs, f.Path)
		require.Zero(t, len(content)%4096)
		require.EqualValues(t, len(content), f.Size)
		total := 0
		for block := 0; block < len(content); block += 4096 {
			tree, err := rtree.Open(content[block : block+4096])
			require.Nil(t, err)
			total += tree.Len()
		}
		require.Equal(t, 300, total)
	}
	require.Contains(t, logs.String(), "msg=\"flushed cell\"")
	require.Contains(t, logs.String(), "msg=\"closed cell\"")
}

func TestOptionsFromConfig(t *testing.T) {
	conf := &spatial.Config{RTreeDegree: 4, BuildMode: spatial.BuildAccurate, TargetBlockSize: 2048}
	opts, err := OptionsFromConfig(conf, storage.NewMemFS(0), "/out")
	require.Nil(t, err)
	w, err := New(opts)
	require.Nil(t, err)
	require.EqualValues(t, 2048, w.BlockSize())
	require.Equal(t, 4, w.opts.Degree)
	require.Equal(t, spatial.BuildAccurate, w.opts.Mode)

	_, err = New(&Options{Dir: "/out"})
	require.NotNil(t, err)
	_, err = OptionsFromConfig(&spatial.Config{RTreeDegree: 1}, storage.NewMemFS(0), "/out")
	require.NotNil(t, err)
}
