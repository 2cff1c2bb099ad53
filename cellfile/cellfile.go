// Package cellfile reads finished cell files back, block by block. A cell
// file is a sequence of blocks, each holding either a packed R-tree or flat
// newline-terminated records, followed by zero padding.
package cellfile

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	iutil "github.com/go-sif/spatial/internal/util"
	"github.com/go-sif/spatial/rtree"
	"github.com/go-sif/spatial/shape"
	"github.com/go-sif/spatial/storage"
)

// Reader reads one cell file
type Reader struct {
	fs        storage.FileSystem
	path      string
	blockSize int64
}

// NewReader creates a Reader for the cell file at path. A blockSize of 0
// selects the block size of fs at path.
func NewReader(fs storage.FileSystem, path string, blockSize int64) *Reader {
	if blockSize <= 0 {
		blockSize = fs.BlockSize(path)
	}
	return &Reader{fs: fs, path: path, blockSize: blockSize}
}

// Path returns the location of the cell file
func (r *Reader) Path() string {
	return r.path
}

// Blocks calls fn with each block of the cell file, in order. The block
// slice is reused between calls.
func (r *Reader) Blocks(fn func(index int, block []byte) error) error {
	f, err := r.fs.Open(r.path)
	if err != nil {
		return err
	}
	defer f.Close()
	buf := make([]byte, r.blockSize)
	for i := 0; ; i++ {
		n, err := io.ReadFull(f, buf)
		if err == io.EOF {
			return nil
		} else if err != nil && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("unable to read block %d of %s: %w", i, r.path, err)
		}
		if err := fn(i, buf[:n]); err != nil {
			return err
		}
		if n < len(buf) {
			return nil
		}
	}
}

// forEachFlat calls fn with each record of a flat block
func forEachFlat(block []byte, fn func(record []byte) error) error {
	data := bytes.TrimRight(block, "\x00")
	for len(data) > 0 {
		end := bytes.IndexByte(data, '\n')
		if end < 0 {
			return errors.CorruptBufferError{Offset: len(block) - len(data), Reason: "partial trailing record"}
		}
		if end > 0 {
			if err := fn(data[:end]); err != nil {
				return err
			}
		}
		data = data[end+1:]
	}
	return nil
}

// ForEach calls fn with the text of every record in the cell file
func (r *Reader) ForEach(fn func(record []byte) error) error {
	return r.Blocks(func(index int, block []byte) error {
		if !rtree.IsPacked(block) {
			return forEachFlat(block, fn)
		}
		tree, err := rtree.Open(block)
		if err != nil {
			return fmt.Errorf("block %d of %s: %w", index, r.path, err)
		}
		return tree.ForEach(fn)
	})
}

// Shapes parses every record in the cell file
func (r *Reader) Shapes(parse shape.Parser) ([]spatial.Shape, error) {
	var shapes []spatial.Shape
	err := r.ForEach(func(record []byte) error {
		s, err := parse(record)
		if err != nil {
			return errors.CorruptBufferError{Offset: -1, Reason: err.Error()}
		}
		shapes = append(shapes, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shapes, nil
}

// RangeQuery calls sink with every record of the cell file which exactly
// intersects query, and returns the number of such records. Indexed blocks
// are searched through their R-tree, and flat blocks are scanned.
func (r *Reader) RangeQuery(query spatial.Rect, parse shape.Parser, sink spatial.ShapeSink) (int, error) {
	if query.IsEmpty() {
		return 0, errors.InvalidBoundsError{Bounds: query.String(), Reason: "empty query"}
	}
	count := 0
	sink = iutil.SafeShapeSink(sink)
	report := func(s spatial.Shape) error {
		count++
		if sink == nil {
			return nil
		}
		return sink(s)
	}
	region := shape.NewRectangle(query.X1, query.Y1, query.X2, query.Y2)
	err := r.Blocks(func(index int, block []byte) error {
		if rtree.IsPacked(block) {
			tree, err := rtree.Open(block)
			if err != nil {
				return fmt.Errorf("block %d of %s: %w", index, r.path, err)
			}
			return tree.Query(query, parse, report)
		}
		return forEachFlat(block, func(record []byte) error {
			s, err := parse(record)
			if err != nil {
				return errors.CorruptBufferError{Offset: -1, Reason: err.Error()}
			}
			if s.MBR().Intersects(query) && s.Intersects(region) {
				return report(s)
			}
			return nil
		})
	})
	return count, err
}
