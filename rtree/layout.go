package rtree

const (
	// Signature marks the beginning of a packed R-tree block
	Signature uint64 = 0x5254726565000001
	// SignatureSize is the length of the signature, in bytes
	SignatureSize = 8
	// HeaderSize is the length of the tree header which follows the signature
	HeaderSize = 24
	// NodeSize is the length of one serialized node
	NodeSize = 40
	// LeafEntrySize is the length of one serialized reference from a leaf to a record
	LeafEntrySize = 8
)

// levelSizes returns the number of nodes on each level of a packed tree,
// from the leaves up to the root
func levelSizes(recordCount int, degree int) []int {
	var sizes []int
	for n := recordCount; n > 0; {
		n = (n + degree - 1) / degree
		sizes = append(sizes, n)
		if n == 1 {
			break
		}
	}
	return sizes
}

// Height returns the number of levels of a packed tree holding recordCount
// records. A single record still needs a root leaf, so its tree has height 1.
func Height(recordCount int, degree int) int {
	return len(levelSizes(recordCount, degree))
}

// StorageOverhead returns the exact number of bytes of index metadata (tree
// header, nodes and leaf entries) stored alongside recordCount records,
// without building the tree. It is non-decreasing in recordCount.
func StorageOverhead(recordCount int, degree int) int64 {
	nodes := 0
	for _, n := range levelSizes(recordCount, degree) {
		nodes += n
	}
	return HeaderSize + NodeSize*int64(nodes) + LeafEntrySize*int64(recordCount)
}

// BlockCapacity returns the largest number of records of recordSize bytes
// (including their newline) which fit, with their index, within one block
func BlockCapacity(blockSize int64, degree int, recordSize int64) int64 {
	if recordSize <= 0 || blockSize <= SignatureSize+HeaderSize {
		return 0
	}
	fits := func(n int64) bool {
		return SignatureSize+StorageOverhead(int(n), degree)+n*recordSize <= blockSize
	}
	lo, hi := int64(0), blockSize/recordSize
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
