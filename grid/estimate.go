package grid

import (
	"fmt"
	"math"
)

// SizeEstimate describes the expected volume of a dataset
type SizeEstimate struct {
	Bytes         int64   // Bytes is the total size of the serialized records
	AvgRecordSize float64 // AvgRecordSize is the mean serialized size of one record, including its newline
}

// BlockCapacity reports how many records of a given size fit within one indexed block
type BlockCapacity func(blockSize int64, recordSize int64) int64

// EstimateCellCount returns the number of Cells needed to store a dataset so
// that each Cell fits within one storage block, after inflating the dataset
// by replicationOverhead. Flat layouts pass a nil capacity and are sized by
// bytes alone. Indexed layouts are sized by record count, using capacity to
// account for the index stored alongside the records of each block.
func EstimateCellCount(size SizeEstimate, blockSize int64, replicationOverhead float64, capacity BlockCapacity) (int, error) {
	if blockSize <= 0 {
		return 0, fmt.Errorf("block size must be positive, was %d", blockSize)
	}
	if size.Bytes <= 0 {
		return 1, nil
	}
	inflated := float64(size.Bytes) * (1 + replicationOverhead)
	if capacity == nil {
		return atLeastOne(math.Ceil(inflated / float64(blockSize))), nil
	}
	if size.AvgRecordSize <= 0 {
		return 0, fmt.Errorf("average record size must be positive, was %f", size.AvgRecordSize)
	}
	perBlock := capacity(blockSize, int64(math.Ceil(size.AvgRecordSize)))
	if perBlock < 1 {
		return 0, fmt.Errorf("a block of %d bytes cannot hold a record of %.1f bytes", blockSize, size.AvgRecordSize)
	}
	records := inflated / size.AvgRecordSize
	return atLeastOne(math.Ceil(records / float64(perBlock))), nil
}

func atLeastOne(v float64) int {
	if v < 1 {
		return 1
	}
	return int(v)
}
