package job

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-sif/spatial"
	"github.com/go-sif/spatial/errors"
	"github.com/go-sif/spatial/shape"
	"github.com/go-sif/spatial/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// input is one file of records, which is handled in its entirety by one map task
type input struct {
	path string
	size int64
}

// resolveInputs expands glob patterns into the list of input files
func resolveInputs(fs storage.FileSystem, patterns []string) ([]input, error) {
	var inputs []input
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := fs.Glob(pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("glob %s produced 0 files", pattern)
		}
		for _, path := range matches {
			if seen[path] {
				continue
			}
			seen[path] = true
			size, err := fs.Size(path)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, input{path: path, size: size})
		}
	}
	return inputs, nil
}

// forEachLine calls fn with every non-empty line of a file, without its terminator
func forEachLine(ctx context.Context, fs storage.FileSystem, path string, fn func(line []byte) error) error {
	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	br := bufio.NewReader(f)
	for n := 0; ; n++ {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("unable to read %s: %w", path, err)
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

// forEachShape parses every line of a file
func forEachShape(ctx context.Context, fs storage.FileSystem, path string, parse shape.Parser, fn func(s spatial.Shape, line []byte) error) error {
	return forEachLine(ctx, fs, path, func(line []byte) error {
		s, err := parse(line)
		if err != nil {
			return fmt.Errorf("unable to parse record %q in %s: %w", line, path, err)
		}
		return fn(s, line)
	})
}

// scanBounds computes the union of the bounding rectangles of every record.
// When collect is true, the rectangles themselves are returned as well.
func scanBounds(ctx context.Context, fs storage.FileSystem, inputs []input, parse shape.Parser, workers int, collect bool) (spatial.Rect, []spatial.Rect, error) {
	bounds := make([]spatial.Rect, len(inputs))
	mbrs := make([][]spatial.Rect, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	limit := semaphore.NewWeighted(int64(workers))
	for i, in := range inputs {
		i, in := i, in
		bounds[i] = spatial.EmptyRect()
		g.Go(func() error {
			if err := limit.Acquire(gctx, 1); err != nil {
				return err
			}
			defer limit.Release(1)
			return forEachShape(gctx, fs, in.path, parse, func(s spatial.Shape, _ []byte) error {
				mbr := s.MBR()
				bounds[i] = bounds[i].Union(mbr)
				if collect {
					mbrs[i] = append(mbrs[i], mbr)
				}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return spatial.Rect{}, nil, err
	}
	total := spatial.EmptyRect()
	var all []spatial.Rect
	for i := range inputs {
		total = total.Union(bounds[i])
		all = append(all, mbrs[i]...)
	}
	if total.IsEmpty() {
		return total, nil, errors.InvalidBoundsError{Bounds: total.String(), Reason: "input holds no records"}
	}
	return total, all, nil
}
