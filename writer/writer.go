// Package writer buffers the records of each cell and materializes them
// into block-aligned cell files, optionally indexed by packed R-trees.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/pkg/locker"
	"github.com/go-kit/log/level"
	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	"github.com/go-sif/spatial/internal/spill"
	iutil "github.com/go-sif/spatial/internal/util"
	"github.com/go-sif/spatial/rtree"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"
)

// State is the lifecycle stage of one cell
type State int

const (
	// Empty cells hold no buffered records
	Empty State = iota
	// Buffering cells hold at least one buffered record
	Buffering
	// Flushing cells are moving their buffer into their cell file
	Flushing
	// Closed cells are final, and reject further writes
	Closed
)

// String returns the name of a State
func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Buffering:
		return "buffering"
	case Flushing:
		return "flushing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// CellFile describes the output of one cell
type CellFile struct {
	ID   spatial.CellID
	Path string
	Size int64
}

type cell struct {
	id     spatial.CellID
	state  State
	buffer spill.Buffer
	count  int
	path   string
	out    io.WriteCloser
	size   int64
}

// CellWriter routes records to per-cell buffers, and flushes each buffer to
// its cell file before the projected size of the cell would exceed one
// storage block. Every flush pads the cell file to a multiple of the block
// size. Writes to different cells may happen concurrently, but flushes are
// limited by Options.FlushLimit, which several writers may share.
type CellWriter struct {
	opts       *Options
	cellLocks  *locker.Locker
	flushLimit *semaphore.Weighted
	cellsLock  sync.Mutex
	cells      map[spatial.CellID]*cell
}

// New creates a CellWriter
func New(opts *Options) (*CellWriter, error) {
	if err := ensureDefaultOptionsValues(opts); err != nil {
		return nil, err
	}
	opts.Stats.Start()
	return &CellWriter{
		opts:       opts,
		cellLocks:  locker.New(),
		flushLimit: opts.FlushLimit,
		cells:      make(map[spatial.CellID]*cell),
	}, nil
}

// BlockSize returns the size which cell files are aligned to
func (w *CellWriter) BlockSize() int64 {
	return w.opts.BlockSize
}

// State returns the lifecycle stage of a cell
func (w *CellWriter) State(id spatial.CellID) State {
	key := lockKey(id)
	w.cellLocks.Lock(key)
	defer w.cellLocks.Unlock(key)
	w.cellsLock.Lock()
	c, ok := w.cells[id]
	w.cellsLock.Unlock()
	if !ok {
		return Empty
	}
	return c.state
}

func lockKey(id spatial.CellID) string {
	return strconv.FormatInt(int64(id), 10)
}

// getCell fetches or creates the state of a cell. The caller must hold the cell's lock.
func (w *CellWriter) getCell(id spatial.CellID) *cell {
	w.cellsLock.Lock()
	defer w.cellsLock.Unlock()
	c, ok := w.cells[id]
	if !ok {
		c = &cell{
			id:   id,
			path: filepath.Join(w.opts.Dir, fmt.Sprintf("%s-%05d", w.opts.Prefix, id)),
		}
		w.cells[id] = c
	}
	return c
}

// projectedSize returns the unpadded size of a flush of the cell's buffer
// once a record of recordSize bytes has been added to it
func (w *CellWriter) projectedSize(c *cell, recordSize int64) int64 {
	buffered := int64(0)
	if c.buffer != nil {
		buffered = c.buffer.Len()
	}
	if w.opts.Flat {
		return buffered + recordSize
	}
	return rtree.SignatureSize + rtree.StorageOverhead(c.count+1, w.opts.Degree) + buffered + recordSize
}

// Write appends a record, given without its trailing newline, to a cell.
// If the cell's projected size would exceed the block size, the cell is
// flushed first. An empty record closes the cell instead.
func (w *CellWriter) Write(ctx context.Context, id spatial.CellID, record []byte) error {
	if len(record) == 0 {
		return w.Close(ctx, id)
	}
	if bytes.IndexByte(record, '\n') >= 0 {
		return errors.CorruptBufferError{Offset: bytes.IndexByte(record, '\n'), Reason: "record contains a newline"}
	}
	key := lockKey(id)
	w.cellLocks.Lock(key)
	defer w.cellLocks.Unlock(key)
	c := w.getCell(id)
	if c.state == Closed {
		return errors.ClosedCellError{CellID: int64(id)}
	}
	recordSize := int64(len(record)) + 1
	if w.projectedSize(&cell{}, recordSize) > w.opts.BlockSize {
		return errors.CapacityExceededError{RecordSize: recordSize, BlockSize: w.opts.BlockSize}
	}
	if c.count > 0 && w.projectedSize(c, recordSize) > w.opts.BlockSize {
		if err := w.flush(ctx, c); err != nil {
			return err
		}
	}
	if c.buffer == nil {
		name, err := uuid.NewV4()
		if err != nil {
			return err
		}
		buf, err := w.opts.Spill.NewBuffer(fmt.Sprintf("%s-%d-%s", w.opts.Prefix, id, name.String()))
		if err != nil {
			return fmt.Errorf("unable to create buffer for cell %d: %w", id, err)
		}
		c.buffer = buf
		w.opts.Metrics.OpenCells.Inc()
	}
	if _, err := c.buffer.Write(record); err != nil {
		return err
	}
	if _, err := c.buffer.Write([]byte{'\n'}); err != nil {
		return err
	}
	c.count++
	c.state = Buffering
	w.opts.Stats.RecordWritten(int(recordSize))
	w.opts.Metrics.RecordsWritten.Inc()
	return nil
}

// Flush moves a cell's buffered records into its cell file
func (w *CellWriter) Flush(ctx context.Context, id spatial.CellID) error {
	key := lockKey(id)
	w.cellLocks.Lock(key)
	defer w.cellLocks.Unlock(key)
	c := w.getCell(id)
	if c.state == Closed {
		return errors.ClosedCellError{CellID: int64(id)}
	}
	return w.flush(ctx, c)
}

// flush must be called while holding the cell's lock
func (w *CellWriter) flush(ctx context.Context, c *cell) (err error) {
	if c.buffer == nil {
		return nil
	}
	if err := w.flushLimit.Acquire(ctx, 1); err != nil {
		return err
	}
	defer w.flushLimit.Release(1)
	start := w.opts.Stats.StartFlush()
	previous := c.state
	c.state = Flushing
	buffer := c.buffer
	count := c.count
	// the buffer is discarded whether or not the flush succeeds
	defer func() {
		if rerr := buffer.Release(); rerr != nil && err == nil {
			err = rerr
		}
		c.buffer = nil
		c.count = 0
		w.opts.Metrics.OpenCells.Dec()
		if err != nil {
			c.state = previous
		} else {
			c.state = Empty
		}
	}()

	raw, err := buffer.Bytes()
	if err != nil {
		return fmt.Errorf("unable to read buffer of cell %d: %w", c.id, err)
	}
	data := raw
	layout := "flat"
	if !w.opts.Flat {
		layout = "indexed"
		data, err = rtree.BulkLoad(raw, w.opts.Degree, w.opts.Mode, w.opts.Parser)
		if err != nil {
			return fmt.Errorf("unable to index cell %d: %w", c.id, err)
		}
	}
	if c.out == nil {
		out, err := w.opts.FS.Create(c.path)
		if err != nil {
			return fmt.Errorf("unable to create cell file %s: %w", c.path, err)
		}
		c.out = out
	}
	if _, err := c.out.Write(data); err != nil {
		return fmt.Errorf("unable to write cell file %s: %w", c.path, err)
	}
	c.size += int64(len(data))
	padding, err := Pad(c.out, c.size, w.opts.BlockSize)
	if err != nil {
		return fmt.Errorf("unable to pad cell file %s: %w", c.path, err)
	}
	c.size += padding

	w.opts.Stats.EndFlush(start, padding)
	w.opts.Metrics.Flushes.WithLabelValues(layout).Inc()
	w.opts.Metrics.BytesWritten.Add(float64(len(data)))
	w.opts.Metrics.PaddingBytes.Add(float64(padding))
	w.opts.Metrics.FlushDuration.Observe(time.Since(start).Seconds())
	level.Debug(w.opts.Logger).Log("msg", "flushed cell", "cell", c.id, "records", count, "bytes", len(data), "padding", padding, "size", c.size)
	return nil
}

// Close flushes any records remaining in a cell and finalizes its cell file.
// Closing a closed cell does nothing.
func (w *CellWriter) Close(ctx context.Context, id spatial.CellID) error {
	key := lockKey(id)
	w.cellLocks.Lock(key)
	defer w.cellLocks.Unlock(key)
	return w.close(ctx, w.getCell(id))
}

func (w *CellWriter) close(ctx context.Context, c *cell) error {
	if c.state == Closed {
		return nil
	}
	if err := w.flush(ctx, c); err != nil {
		return err
	}
	if c.out != nil {
		if err := c.out.Close(); err != nil {
			return fmt.Errorf("unable to close cell file %s: %w", c.path, err)
		}
	}
	c.state = Closed
	w.opts.Stats.CellClosed()
	level.Info(w.opts.Logger).Log("msg", "closed cell", "cell", c.id, "path", c.path, "size", c.size)
	return nil
}

// CloseAll closes every cell which has been written to, collecting failures
func (w *CellWriter) CloseAll(ctx context.Context) error {
	var errs *multierror.Error
	for _, id := range w.ids() {
		if err := w.Close(ctx, id); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	w.opts.Stats.Finish()
	if err := errs.ErrorOrNil(); err != nil {
		level.Error(w.opts.Logger).Log("msg", "unable to close cells", "errors", iutil.FormatMultiError(errs.Errors))
		return err
	}
	return nil
}

func (w *CellWriter) ids() []spatial.CellID {
	w.cellsLock.Lock()
	defer w.cellsLock.Unlock()
	ids := make([]spatial.CellID, 0, len(w.cells))
	for id := range w.cells {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Files returns the cell files of every closed cell which holds data, ordered by cell id
func (w *CellWriter) Files() []CellFile {
	var files []CellFile
	for _, id := range w.ids() {
		key := lockKey(id)
		w.cellLocks.Lock(key)
		c := w.getCell(id)
		if c.state == Closed && c.size > 0 {
			files = append(files, CellFile{ID: id, Path: c.path, Size: c.size})
		}
		w.cellLocks.Unlock(key)
	}
	return files
}

// PaddingFor returns the number of zero bytes which align size to blockSize
func PaddingFor(size int64, blockSize int64) int64 {
	return (blockSize - size%blockSize) % blockSize
}

// Pad writes the zero bytes which align an output of size bytes to blockSize
func Pad(out io.Writer, size int64, blockSize int64) (int64, error) {
	padding := PaddingFor(size, blockSize)
	if padding == 0 {
		return 0, nil
	}
	zeros := make([]byte, 4096)
	remaining := padding
	for remaining > 0 {
		n := int64(len(zeros))
		if remaining < n {
			n = remaining
		}
		if _, err := out.Write(zeros[:n]); err != nil {
			return padding - remaining, err
		}
		remaining -= n
	}
	return padding, nil
}
