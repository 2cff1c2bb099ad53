package rtree

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/grid"
	"github.com/go-sif/spatial/shape"
)

type node struct {
	mbr      spatial.Rect
	children []*node
	records  []int // indices of records, for leaves only
	first    int
}

// BulkLoad parses a buffer of newline-terminated records and returns a
// packed block holding an R-tree over them followed by the buffer itself.
// In accurate mode, every level of the tree is packed with Sort-Tile-Recursive
// grouping so that leaves hold between ceil(degree/2) and degree records.
// In fast mode, records are sorted once by lower x and sliced into runs of
// degree, and upper levels group consecutive nodes in the same way.
func BulkLoad(raw []byte, degree int, mode spatial.BuildMode, parse shape.Parser) ([]byte, error) {
	if degree < 2 {
		return nil, fmt.Errorf("R-tree degree must be at least 2, was %d", degree)
	}
	if uint64(len(raw)) > math.MaxUint32 {
		return nil, fmt.Errorf("buffer of %d bytes is too large to index", len(raw))
	}
	records, err := shape.ParseLines(raw, parse)
	if err != nil {
		return nil, err
	}
	var group func(rects []spatial.Rect) [][]int
	switch mode {
	case spatial.BuildAccurate:
		group = func(rects []spatial.Rect) [][]int {
			return strGroups(rects, degree)
		}
	case spatial.BuildFast:
		group = func(rects []spatial.Rect) [][]int {
			return runGroups(len(rects), degree)
		}
	default:
		return nil, fmt.Errorf("unknown build mode %q", mode)
	}

	mbrs := make([]spatial.Rect, len(records))
	for i, r := range records {
		mbrs[i] = r.Shape.MBR()
	}
	var level []*node
	if len(records) > 0 {
		order := make([]int, len(records))
		for i := range order {
			order[i] = i
		}
		if mode == spatial.BuildFast {
			sort.SliceStable(order, func(a, b int) bool { return mbrs[order[a]].X1 < mbrs[order[b]].X1 })
		}
		sorted := make([]spatial.Rect, len(order))
		for i, idx := range order {
			sorted[i] = mbrs[idx]
		}
		for _, g := range group(sorted) {
			leaf := &node{mbr: spatial.EmptyRect(), records: make([]int, len(g))}
			for i, member := range g {
				leaf.records[i] = order[member]
				leaf.mbr = leaf.mbr.Union(sorted[member])
			}
			level = append(level, leaf)
		}
	}
	height := 0
	if len(level) > 0 {
		height = 1
	}
	for len(level) > 1 {
		rects := make([]spatial.Rect, len(level))
		for i, n := range level {
			rects[i] = n.mbr
		}
		groups := group(rects)
		parents := make([]*node, 0, len(groups))
		for _, g := range groups {
			parent := &node{mbr: spatial.EmptyRect(), children: make([]*node, len(g))}
			for i, member := range g {
				parent.children[i] = level[member]
				parent.mbr = parent.mbr.Union(level[member].mbr)
			}
			parents = append(parents, parent)
		}
		level = parents
		height++
	}
	return encode(level, height, degree, records, raw), nil
}

// strGroups packs rects into ceil(len/degree) groups
func strGroups(rects []spatial.Rect, degree int) [][]int {
	groups := make([][]int, 0, (len(rects)+degree-1)/degree)
	for _, slice := range grid.Pack(rects, (len(rects)+degree-1)/degree) {
		groups = append(groups, slice.Groups...)
	}
	return groups
}

// runGroups slices n consecutive items into runs of degree
func runGroups(n int, degree int) [][]int {
	groups := make([][]int, 0, (n+degree-1)/degree)
	for start := 0; start < n; start += degree {
		end := start + degree
		if end > n {
			end = n
		}
		g := make([]int, end-start)
		for i := range g {
			g[i] = start + i
		}
		groups = append(groups, g)
	}
	return groups
}

// encode lays out the tree rooted in roots breadth-first, followed by the leaf entries and the raw data
func encode(roots []*node, height int, degree int, records []shape.Record, raw []byte) []byte {
	nodes := append([]*node(nil), roots...)
	leafEntries := 0
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		if n.children != nil {
			n.first = len(nodes)
			nodes = append(nodes, n.children...)
		} else {
			n.first = leafEntries
			leafEntries += len(n.records)
		}
	}
	indexSize := HeaderSize + NodeSize*len(nodes) + LeafEntrySize*len(records)
	out := make([]byte, SignatureSize+indexSize+len(raw))
	binary.BigEndian.PutUint64(out, Signature)
	header := out[SignatureSize:]
	for i, v := range []int{indexSize, height, degree, len(records), len(nodes), len(raw)} {
		binary.BigEndian.PutUint32(header[4*i:], uint32(v))
	}
	pos := SignatureSize + HeaderSize
	for _, n := range nodes {
		binary.BigEndian.PutUint64(out[pos:], math.Float64bits(n.mbr.X1))
		binary.BigEndian.PutUint64(out[pos+8:], math.Float64bits(n.mbr.Y1))
		binary.BigEndian.PutUint64(out[pos+16:], math.Float64bits(n.mbr.X2))
		binary.BigEndian.PutUint64(out[pos+24:], math.Float64bits(n.mbr.Y2))
		binary.BigEndian.PutUint32(out[pos+32:], uint32(n.first))
		count := len(n.children)
		if n.children == nil {
			count = len(n.records)
		}
		binary.BigEndian.PutUint32(out[pos+36:], uint32(count))
		pos += NodeSize
	}
	for _, n := range nodes {
		for _, r := range n.records {
			binary.BigEndian.PutUint32(out[pos:], uint32(records[r].Offset))
			binary.BigEndian.PutUint32(out[pos+4:], uint32(records[r].Length))
			pos += LeafEntrySize
		}
	}
	copy(out[pos:], raw)
	return out
}
