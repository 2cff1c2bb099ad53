package rtree

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	"github.com/go-sif/spatial/shape"
)

// IsPacked returns true iff block begins with a packed R-tree signature
func IsPacked(block []byte) bool {
	return len(block) >= SignatureSize && binary.BigEndian.Uint64(block) == Signature
}

// Tree is a read-only view over a packed block
type Tree struct {
	block       []byte
	indexSize   int
	height      int
	degree      int
	recordCount int
	nodeCount   int
	dataSize    int
}

// Open parses the header of a packed block. The block may be followed by
// padding or by further blocks, which are ignored.
func Open(block []byte) (*Tree, error) {
	if !IsPacked(block) {
		return nil, errors.CorruptBufferError{Offset: 0, Reason: "missing R-tree signature"}
	}
	if len(block) < SignatureSize+HeaderSize {
		return nil, errors.CorruptBufferError{Offset: SignatureSize, Reason: "truncated R-tree header"}
	}
	var fields [6]int
	for i := range fields {
		fields[i] = int(binary.BigEndian.Uint32(block[SignatureSize+4*i:]))
	}
	t := &Tree{
		indexSize:   fields[0],
		height:      fields[1],
		degree:      fields[2],
		recordCount: fields[3],
		nodeCount:   fields[4],
		dataSize:    fields[5],
	}
	if t.indexSize != HeaderSize+NodeSize*t.nodeCount+LeafEntrySize*t.recordCount {
		return nil, errors.CorruptBufferError{Offset: SignatureSize, Reason: "inconsistent R-tree header"}
	}
	if len(block) < t.Size() {
		return nil, errors.CorruptBufferError{Offset: len(block), Reason: "truncated R-tree block"}
	}
	t.block = block[:t.Size()]
	return t, nil
}

// Size returns the length of the packed block, excluding any padding
func (t *Tree) Size() int {
	return SignatureSize + t.indexSize + t.dataSize
}

// Len returns the number of records indexed by this Tree
func (t *Tree) Len() int { return t.recordCount }

// Height returns the number of levels of this Tree
func (t *Tree) Height() int { return t.height }

// Degree returns the maximum fan-out of this Tree
func (t *Tree) Degree() int { return t.degree }

// NodeCount returns the number of nodes of this Tree
func (t *Tree) NodeCount() int { return t.nodeCount }

// Data returns the raw records stored in this Tree, in their original order
func (t *Tree) Data() []byte {
	return t.block[SignatureSize+t.indexSize:]
}

// Bounds returns the bounding rectangle of every record in this Tree
func (t *Tree) Bounds() spatial.Rect {
	if t.nodeCount == 0 {
		return spatial.EmptyRect()
	}
	mbr, _, _ := t.node(0)
	return mbr
}

func (t *Tree) node(i int) (spatial.Rect, int, int) {
	pos := SignatureSize + HeaderSize + NodeSize*i
	b := t.block[pos : pos+NodeSize]
	mbr := spatial.Rect{
		X1: math.Float64frombits(binary.BigEndian.Uint64(b)),
		Y1: math.Float64frombits(binary.BigEndian.Uint64(b[8:])),
		X2: math.Float64frombits(binary.BigEndian.Uint64(b[16:])),
		Y2: math.Float64frombits(binary.BigEndian.Uint64(b[24:])),
	}
	return mbr, int(binary.BigEndian.Uint32(b[32:])), int(binary.BigEndian.Uint32(b[36:]))
}

func (t *Tree) record(entry int) ([]byte, error) {
	pos := SignatureSize + HeaderSize + NodeSize*t.nodeCount + LeafEntrySize*entry
	offset := int(binary.BigEndian.Uint32(t.block[pos:]))
	length := int(binary.BigEndian.Uint32(t.block[pos+4:]))
	data := t.Data()
	if offset+length > len(data) {
		return nil, errors.CorruptBufferError{Offset: pos, Reason: "leaf entry points outside of the data section"}
	}
	return data[offset : offset+length], nil
}

// Search calls fn with the text of every record whose bounding rectangle
// may intersect query. Callers test exact intersection themselves.
// Traversal stops at the first error returned by fn.
func (t *Tree) Search(query spatial.Rect, fn func(record []byte) error) error {
	if t.nodeCount == 0 || query.IsEmpty() {
		return nil
	}
	type frame struct{ index, depth int }
	stack := []frame{{0, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		mbr, first, count := t.node(f.index)
		if !mbr.Intersects(query) {
			continue
		}
		if f.depth == t.height-1 {
			if first+count > t.recordCount {
				return errors.CorruptBufferError{Offset: f.index, Reason: "leaf references missing entries"}
			}
			for e := first; e < first+count; e++ {
				rec, err := t.record(e)
				if err != nil {
					return err
				}
				if err := fn(rec); err != nil {
					return err
				}
			}
			continue
		}
		if first <= f.index || first+count > t.nodeCount {
			return errors.CorruptBufferError{Offset: f.index, Reason: "node references missing children"}
		}
		// push in reverse so that children are visited in order
		for c := first + count - 1; c >= first; c-- {
			stack = append(stack, frame{c, f.depth + 1})
		}
	}
	return nil
}

// ForEach calls fn with the text of every record in this Tree, in original order
func (t *Tree) ForEach(fn func(record []byte) error) error {
	data := t.Data()
	for len(data) > 0 {
		end := bytes.IndexByte(data, '\n')
		if end < 0 {
			return errors.CorruptBufferError{Offset: t.Size() - len(data), Reason: "partial trailing record"}
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

// Query parses the candidates produced by Search and calls fn with every
// record which exactly intersects query
func (t *Tree) Query(query spatial.Rect, parse shape.Parser, fn spatial.ShapeSink) error {
	region := shape.NewRectangle(query.X1, query.Y1, query.X2, query.Y2)
	return t.Search(query, func(rec []byte) error {
		s, err := parse(rec)
		if err != nil {
			return errors.CorruptBufferError{Offset: -1, Reason: err.Error()}
		}
		if !s.MBR().Intersects(query) || !s.Intersects(region) {
			return nil
		}
		return fn(s)
	})
}
