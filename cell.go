package spatial

import "fmt"

// CellID identifies a Cell within a grid layout
type CellID int64

// Cell is one output partition: an identifier, the spatial extent which it
// covers, and the size of the storage blocks its file is aligned to.
// Cells are produced once per partitioning job and are read-only thereafter.
type Cell struct {
	ID        CellID
	Rect      Rect
	BlockSize int64
}

// String returns a human-readable representation of this Cell
func (c Cell) String() string {
	return fmt.Sprintf("cell #%d [%s]", c.ID, c.Rect.String())
}
