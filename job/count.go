package job

import (
	"context"
	goerrors "errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	"github.com/go-sif/spatial/estimator"
	"github.com/go-sif/spatial/grid"
	"github.com/go-sif/spatial/rtree"
	"github.com/go-sif/spatial/storage"
)

// ApproxLineCount estimates the number of lines in a file from the lengths
// of randomly sampled lines. If sampling does not converge, the estimate from
// the last sampling round is returned along with a ConvergenceFailureError.
func ApproxLineCount(ctx context.Context, fs storage.FileSystem, path string, tolerance float64, rnd *rand.Rand) (int64, error) {
	size, err := fs.Size(path)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	rng, err := sampleLineLength(ctx, fs, []input{{path: path, size: size}}, tolerance, rnd)
	if rng.Limit1 <= 0 || rng.Limit2 <= 0 {
		return 0, err
	}
	count := (float64(size)/rng.Limit1 + float64(size)/rng.Limit2) / 2
	return int64(math.Round(count)), err
}

// sampleLineLength estimates the mean line length across inputs, sampling
// each file in proportion to its size
func sampleLineLength(ctx context.Context, fs storage.FileSystem, inputs []input, tolerance float64, rnd *rand.Rand) (estimator.Range, error) {
	var files []storage.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	var samplers []estimator.SampleFunction
	var offsets []int64
	total := int64(0)
	for _, in := range inputs {
		if in.size == 0 {
			continue
		}
		f, err := fs.Open(in.path)
		if err != nil {
			return estimator.Range{}, err
		}
		files = append(files, f)
		samplers = append(samplers, estimator.LineLengthSampler(f, in.size, rnd))
		total += in.size
		offsets = append(offsets, total)
	}
	if total == 0 {
		return estimator.Range{}, fmt.Errorf("cannot sample empty inputs")
	}
	est, err := estimator.New(&estimator.Conf{
		Tolerance: tolerance,
		Sample: func() (float64, error) {
			pos := rnd.Int63n(total)
			i := sort.Search(len(offsets), func(i int) bool { return offsets[i] > pos })
			return samplers[i]()
		},
	})
	if err != nil {
		return estimator.Range{}, err
	}
	return est.Estimate(ctx)
}

// partitionCount decides how many cells a dataset needs
func partitionCount(ctx context.Context, fs storage.FileSystem, inputs []input, conf *spatial.Config, blockSize int64, rnd *rand.Rand, logger log.Logger) (int, error) {
	total := int64(0)
	for _, in := range inputs {
		total += in.size
	}
	if conf.Flat {
		return grid.EstimateCellCount(grid.SizeEstimate{Bytes: total}, blockSize, conf.ReplicationOverhead, nil)
	}
	rng, err := sampleLineLength(ctx, fs, inputs, conf.EstimatorTolerance, rnd)
	var convergence errors.ConvergenceFailureError
	if goerrors.As(err, &convergence) {
		level.Warn(logger).Log("msg", "line length estimate did not converge, using the last range", "limit1", rng.Limit1, "limit2", rng.Limit2)
	} else if err != nil {
		return 0, err
	}
	capacity := func(blockSize int64, recordSize int64) int64 {
		return rtree.BlockCapacity(blockSize, conf.RTreeDegree, recordSize)
	}
	count := 0
	// each limit implies its own record count, and the larger cell count is the safer one
	for _, avg := range []float64{rng.Limit1, rng.Limit2} {
		n, err := grid.EstimateCellCount(grid.SizeEstimate{Bytes: total, AvgRecordSize: avg}, blockSize, conf.ReplicationOverhead, capacity)
		if err != nil {
			return 0, err
		}
		if n > count {
			count = n
		}
	}
	level.Debug(logger).Log("msg", "estimated partition count", "bytes", total, "limit1", rng.Limit1, "limit2", rng.Limit2, "cells", count)
	return count, nil
}
