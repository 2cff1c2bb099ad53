package stats

import (
	"sync"
	"time"
)

const statisticRollingWindows = 5

// BuildStatistics contains statistics about a running cell build
type BuildStatistics struct {
	lock                    sync.Mutex
	started                 bool
	finished                bool
	startTime               time.Time
	totalRuntime            int64
	recordsWritten          int64
	bytesWritten            int64
	paddingWritten          int64
	flushes                 int64
	cellsClosed             int64
	recentFlushRuntimes     []int64 // for rolling average of recent flush times
	recentFlushRuntimesHead int
}

// Snapshot is a point-in-time copy of BuildStatistics
type Snapshot struct {
	Started          bool
	Finished         bool
	StartTime        time.Time
	Runtime          int64
	RecordsWritten   int64
	BytesWritten     int64
	PaddingWritten   int64
	Flushes          int64
	CellsClosed      int64
	CurrentFlushTime int64
}

// Start triggers statistics tracking, if it hasn't been started already
func (bs *BuildStatistics) Start() {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	if !bs.started {
		bs.started = true
		bs.startTime = time.Now()
		bs.recentFlushRuntimes = make([]int64, statisticRollingWindows)
	}
}

// Finish completes statistics tracking
func (bs *BuildStatistics) Finish() {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	bs.finished = true
	bs.totalRuntime = time.Since(bs.startTime).Nanoseconds()
}

// RecordWritten tracks one record appended to a cell buffer
func (bs *BuildStatistics) RecordWritten(size int) {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	bs.recordsWritten++
	bs.bytesWritten += int64(size)
}

// StartFlush tracks the beginning of a flush, returning the time at which it began
func (bs *BuildStatistics) StartFlush() time.Time {
	return time.Now()
}

// EndFlush tracks the end of a flush which began at start and wrote padding zero bytes
func (bs *BuildStatistics) EndFlush(start time.Time, padding int64) {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	if len(bs.recentFlushRuntimes) == 0 {
		bs.recentFlushRuntimes = make([]int64, statisticRollingWindows)
	}
	bs.recentFlushRuntimes[bs.recentFlushRuntimesHead] = time.Since(start).Nanoseconds()
	bs.recentFlushRuntimesHead = (bs.recentFlushRuntimesHead + 1) % len(bs.recentFlushRuntimes)
	bs.flushes++
	bs.paddingWritten += padding
}

// CellClosed tracks the finalization of a cell
func (bs *BuildStatistics) CellClosed() {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	bs.cellsClosed++
}

// GetRuntime returns the running time of the build
func (bs *BuildStatistics) GetRuntime() int64 {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	return bs.runtime()
}

func (bs *BuildStatistics) runtime() int64 {
	if bs.finished {
		return bs.totalRuntime
	}
	if !bs.started {
		return 0
	}
	return time.Since(bs.startTime).Nanoseconds()
}

// GetCurrentFlushTime returns a rolling average of flush time
func (bs *BuildStatistics) GetCurrentFlushTime() int64 {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	return bs.currentFlushTime()
}

func (bs *BuildStatistics) currentFlushTime() int64 {
	var total int64
	for _, d := range bs.recentFlushRuntimes {
		total += d
	}
	return total / statisticRollingWindows
}

// Snapshot returns a copy of the current statistics
func (bs *BuildStatistics) Snapshot() Snapshot {
	bs.lock.Lock()
	defer bs.lock.Unlock()
	return Snapshot{
		Started:          bs.started,
		Finished:         bs.finished,
		StartTime:        bs.startTime,
		Runtime:          bs.runtime(),
		RecordsWritten:   bs.recordsWritten,
		BytesWritten:     bs.bytesWritten,
		PaddingWritten:   bs.paddingWritten,
		Flushes:          bs.flushes,
		CellsClosed:      bs.cellsClosed,
		CurrentFlushTime: bs.currentFlushTime(),
	}
}
