package errors

import (
	"fmt"
)

// InvalidBoundsError occurs when a degenerate or inverted bounding rectangle is supplied to partitioning
type InvalidBoundsError struct {
	Bounds string
	Reason string
}

// Error returns a textual representation of this InvalidBoundsError
func (e InvalidBoundsError) Error() string {
	return fmt.Sprintf("Invalid bounds [%s]: %s", e.Bounds, e.Reason)
}

// ClosedCellError occurs when a write is attempted after a Cell's output was finalized
type ClosedCellError struct{ CellID int64 }

// Error returns a textual representation of this ClosedCellError
func (e ClosedCellError) Error() string {
	return fmt.Sprintf("Cell %d is closed", e.CellID)
}

// CorruptBufferError occurs when a raw cell buffer does not parse into whole records
type CorruptBufferError struct {
	Offset int
	Reason string
}

// Error returns a textual representation of this CorruptBufferError
func (e CorruptBufferError) Error() string {
	return fmt.Sprintf("Corrupt buffer at offset %d: %s", e.Offset, e.Reason)
}

// CapacityExceededError occurs when a single record cannot fit within a storage block
type CapacityExceededError struct {
	RecordSize int64
	BlockSize  int64
}

// Error returns a textual representation of this CapacityExceededError
func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("Record of %d bytes cannot fit within a block of %d bytes", e.RecordSize, e.BlockSize)
}

// ConvergenceFailureError occurs when a sampling estimate does not converge within its round budget.
// The best available range is returned alongside this error, so it is not fatal.
type ConvergenceFailureError struct {
	Rounds int
	Limit1 float64
	Limit2 float64
}

// Error returns a textual representation of this ConvergenceFailureError
func (e ConvergenceFailureError) Error() string {
	return fmt.Sprintf("Estimate did not converge after %d rounds. Last range: [%f, %f]", e.Rounds, e.Limit1, e.Limit2)
}

// UnknownShapeError occurs when a shape type name has no registered constructor
type UnknownShapeError struct{ Name string }

// Error returns a textual representation of this UnknownShapeError
func (e UnknownShapeError) Error() string {
	return fmt.Sprintf("Unknown shape type %s", e.Name)
}
