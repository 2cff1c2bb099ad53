// Package job runs a complete repartitioning of a dataset on the local
// machine: it discovers the dataset's bounds, sizes and lays out a grid,
// maps every record to the cells it overlaps, and reduces each cell into a
// block-aligned cell file. Map and reduce tasks run in parallel.
package job

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand"
	"path"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/adapter"
	"github.com/go-sif/spatial/grid"
	"github.com/go-sif/spatial/internal/metrics"
	"github.com/go-sif/spatial/internal/stats"
	"github.com/go-sif/spatial/logging"
	"github.com/go-sif/spatial/shape"
	"github.com/go-sif/spatial/storage"
	"github.com/go-sif/spatial/writer"
	"github.com/gofrs/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Job describes one repartitioning of a dataset
type Job struct {
	Config   *spatial.Config       // build parameters. Defaults to spatial.DefaultConfig().
	FS       storage.FileSystem    // [REQUIRED] where inputs are read from and output is written to
	Inputs   []string              // [REQUIRED] glob patterns of input files, each holding one record per line
	Output   string                // [REQUIRED] path of the final, concatenated cell file
	Shape    string                // registered shape name of the records. Defaults to "rectangle".
	Bounds   *spatial.Rect         // global bounds of the dataset. Computed with an extra pass when nil.
	Packed   bool                  // iff true, cells are laid out with a packed grid rather than a uniform one
	Cells    int                   // number of cells. Estimated from the size of the inputs when 0.
	Workers  int                   // number of parallel map and reduce tasks. Defaults to runtime.NumCPU().
	Logger   log.Logger            // defaults to a no-op logger
	Registry prometheus.Registerer // receives cell writer metrics, if supplied
	Seed     int64                 // seeds the random sampling used to size the grid
}

// Result summarizes a completed Job
type Result struct {
	ID         string
	Output     string
	Grid       *grid.Grid
	Records    int64 // records read from the inputs
	Emitted    int64 // records written to cells, including replicas
	Dropped    int64 // records which overlapped no cell
	CellFiles  []writer.CellFile
	Statistics stats.Snapshot
	Runtime    time.Duration
}

// emitted is one map output record
type emitted struct {
	cell spatial.CellID
	text []byte
}

func (j *Job) ensureDefaults() error {
	if j.FS == nil {
		return fmt.Errorf("Job.FS must be supplied")
	}
	if len(j.Inputs) == 0 {
		return fmt.Errorf("Job.Inputs must name at least one input")
	}
	if len(j.Output) == 0 {
		return fmt.Errorf("Job.Output must name the output file")
	}
	if j.Config == nil {
		j.Config = spatial.DefaultConfig()
	}
	j.Config.EnsureDefaults()
	if err := j.Config.Validate(); err != nil {
		return err
	}
	if len(j.Shape) == 0 {
		j.Shape = "rectangle"
	}
	if j.Workers <= 0 {
		j.Workers = runtime.NumCPU()
	}
	j.Logger = logging.OrNop(j.Logger)
	return nil
}

// Run executes this Job
func (j *Job) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	if err := j.ensureDefaults(); err != nil {
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	logger := log.With(j.Logger, "job", id.String())
	parse, err := shape.Lookup(j.Shape)
	if err != nil {
		return nil, err
	}
	inputs, err := resolveInputs(j.FS, j.Inputs)
	if err != nil {
		return nil, err
	}
	blockSize := j.Config.TargetBlockSize
	if blockSize == 0 {
		blockSize = j.FS.BlockSize(j.Output)
	}

	// plan the layout
	var bounds spatial.Rect
	var mbrs []spatial.Rect
	if j.Bounds != nil && !j.Packed {
		bounds = *j.Bounds
	} else {
		bounds, mbrs, err = scanBounds(ctx, j.FS, inputs, parse, j.Workers, j.Packed)
		if err != nil {
			return nil, err
		}
		if j.Bounds != nil {
			bounds = *j.Bounds
		}
	}
	numCells := j.Cells
	if numCells == 0 {
		numCells, err = partitionCount(ctx, j.FS, inputs, j.Config, blockSize, rand.New(rand.NewSource(j.Seed)), logger)
		if err != nil {
			return nil, err
		}
	}
	var layout *grid.Grid
	if j.Packed {
		layout, err = grid.ComputePackedGrid(mbrs, numCells)
	} else {
		layout, err = grid.ComputeUniformGrid(bounds, numCells)
	}
	if err != nil {
		return nil, err
	}
	layout.SetBlockSize(blockSize)
	level.Info(logger).Log("msg", "planned grid", "inputs", len(inputs), "bounds", bounds.String(), "cells", len(layout.Cells), "packed", j.Packed, "blockSize", blockSize)

	// the layout travels to tasks in encoded form, as it would inside a job configuration
	encoded, err := grid.EncodeCells(layout.Cells)
	if err != nil {
		return nil, err
	}

	result := &Result{ID: id.String(), Output: j.Output, Grid: layout}
	shuffle, err := j.mapPhase(ctx, inputs, parse, encoded, blockSize, result)
	if err != nil {
		return nil, err
	}
	level.Info(logger).Log("msg", "map phase complete", "records", result.Records, "emitted", result.Emitted, "dropped", result.Dropped)

	temp := path.Join(path.Dir(j.Output), "_temporary", id.String())
	buildStats := &stats.BuildStatistics{}
	files, err := j.reducePhase(ctx, shuffle, temp, blockSize, parse, buildStats, logger)
	if err != nil {
		return nil, err
	}
	if err := j.commit(files); err != nil {
		return nil, err
	}
	result.CellFiles = files
	result.Statistics = buildStats.Snapshot()
	result.Runtime = time.Since(start)
	level.Info(logger).Log("msg", "job complete", "output", j.Output, "cells", len(files), "runtime", result.Runtime)
	return result, nil
}

// reducerFor assigns a cell to one of n reduce tasks
func reducerFor(cell spatial.CellID, n int) int {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(cell))
	return int(xxhash.Sum64(key[:]) % uint64(n))
}

// mapPhase routes every record of every input to the cells it overlaps,
// partitioning the output by reduce task
func (j *Job) mapPhase(ctx context.Context, inputs []input, parse shape.Parser, encoded string, blockSize int64, result *Result) ([][]emitted, error) {
	var lock sync.Mutex
	shuffle := make([][]emitted, j.Workers)
	g, gctx := errgroup.WithContext(ctx)
	limit := semaphore.NewWeighted(int64(j.Workers))
	for _, in := range inputs {
		in := in
		g.Go(func() error {
			if err := limit.Acquire(gctx, 1); err != nil {
				return err
			}
			defer limit.Release(1)
			cells, err := grid.DecodeCells(encoded, blockSize)
			if err != nil {
				return err
			}
			layout, err := grid.FromCells(cells)
			if err != nil {
				return err
			}
			local := make([][]emitted, j.Workers)
			var records, emits, dropped int64
			err = forEachShape(gctx, j.FS, in.path, parse, func(s spatial.Shape, line []byte) error {
				ids, err := grid.OverlappingCells(layout, s.MBR())
				if err != nil {
					return err
				}
				records++
				if len(ids) == 0 {
					dropped++
					return nil
				}
				text := append([]byte(nil), line...)
				for _, id := range ids {
					r := reducerFor(id, j.Workers)
					local[r] = append(local[r], emitted{cell: id, text: text})
				}
				emits += int64(len(ids))
				return nil
			})
			if err != nil {
				return err
			}
			lock.Lock()
			defer lock.Unlock()
			for r := range local {
				shuffle[r] = append(shuffle[r], local[r]...)
			}
			result.Records += records
			result.Emitted += emits
			result.Dropped += dropped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shuffle, nil
}

// reducePhase writes the records of each reduce task into cell files under temp
func (j *Job) reducePhase(ctx context.Context, shuffle [][]emitted, temp string, blockSize int64, parse shape.Parser, buildStats *stats.BuildStatistics, logger log.Logger) ([]writer.CellFile, error) {
	var lock sync.Mutex
	var files []writer.CellFile
	m := metrics.NewMetrics(j.Registry)
	// every reducer runs in this process, so they share one flush limit
	flushLimit := semaphore.NewWeighted(j.Config.MaxConcurrentFlushes)
	g, gctx := errgroup.WithContext(ctx)
	for r, records := range shuffle {
		r, records := r, records
		if len(records) == 0 {
			continue
		}
		g.Go(func() error {
			opts, err := writer.OptionsFromConfig(j.Config, j.FS, temp)
			if err != nil {
				return err
			}
			opts.Parser = parse
			opts.BlockSize = blockSize
			opts.Prefix = fmt.Sprintf("r%03d", r)
			opts.Logger = log.With(logger, "reducer", r)
			opts.Metrics = m
			opts.Stats = buildStats
			opts.FlushLimit = flushLimit
			cells, err := writer.New(opts)
			if err != nil {
				return err
			}
			out := adapter.NewGridRecordWriter(cells, nil)
			// records of one cell are reduced together, in the order they were mapped
			sort.SliceStable(records, func(a, b int) bool { return records[a].cell < records[b].cell })
			for i, rec := range records {
				if err := out.WriteText(gctx, rec.cell, rec.text); err != nil {
					return err
				}
				if i+1 == len(records) || records[i+1].cell != rec.cell {
					if err := out.Write(gctx, rec.cell, nil); err != nil {
						return err
					}
				}
			}
			if err := out.Close(gctx); err != nil {
				return err
			}
			lock.Lock()
			defer lock.Unlock()
			files = append(files, out.Files()...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(files, func(a, b int) bool { return files[a].ID < files[b].ID })
	return files, nil
}

// commit moves the cell files into the output path
func (j *Job) commit(files []writer.CellFile) error {
	switch len(files) {
	case 0:
		w, err := j.FS.Create(j.Output)
		if err != nil {
			return err
		}
		return w.Close()
	case 1:
		return j.FS.Rename(files[0].Path, j.Output)
	default:
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.Path
		}
		return j.FS.Concat(j.Output, paths)
	}
}
