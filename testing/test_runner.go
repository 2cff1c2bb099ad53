package testing

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/go-sif/spatial/job"
	"github.com/go-sif/spatial/storage"
)

// WriteLines writes a file of newline-terminated records
func WriteLines(fs storage.FileSystem, path string, lines []string) error {
	w, err := fs.Create(path)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// LocalRunJob writes each set of input lines to its path on the Job's
// FileSystem, and then runs the Job with a certain number of workers
func LocalRunJob(ctx context.Context, j *job.Job, inputs map[string][]string, numWorkers int) (result *job.Result, err error) {
	// handle panics
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = anErr
			} else {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}
	}()

	if j.FS == nil {
		j.FS = storage.NewMemFS(storage.DefaultBlockSize)
	}
	paths := make([]string, 0, len(inputs))
	for path, lines := range inputs {
		if err := WriteLines(j.FS, path, lines); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	if len(j.Inputs) == 0 {
		sort.Strings(paths)
		j.Inputs = paths
	}
	j.Workers = numWorkers
	return j.Run(ctx)
}
