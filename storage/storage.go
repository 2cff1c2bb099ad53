// Package storage describes the block-structured file system which cell
// files are written to, and provides an implementation backed by afero.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// DefaultBlockSize is the block size reported by an AferoFS which was not given one
const DefaultBlockSize int64 = 64 * 1024 * 1024

// File is a file opened for reading
type File interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// FileSystem is the set of primitives which partitioning jobs need from
// the underlying storage
type FileSystem interface {
	// Create opens a new file for sequential writing, truncating any existing file
	Create(path string) (io.WriteCloser, error)
	// Append opens an existing file for sequential writing at its end
	Append(path string) (io.WriteCloser, error)
	// Open opens a file for sequential and random-access reading
	Open(path string) (File, error)
	// Size returns the length of a file in bytes
	Size(path string) (int64, error)
	// Exists returns true iff a file exists at path
	Exists(path string) (bool, error)
	// Rename atomically moves a file
	Rename(from string, to string) error
	// Concat joins the sources, in order, into target and deletes them
	Concat(target string, sources []string) error
	// Delete removes a file. Deleting a missing file is not an error.
	Delete(path string) error
	// Glob returns the sorted paths of files matching a pattern
	Glob(pattern string) ([]string, error)
	// BlockSize returns the physical block size configured for a path
	BlockSize(path string) int64
}

// AferoFS is a FileSystem over an afero.Fs
type AferoFS struct {
	fs        afero.Fs
	blockSize int64
}

// NewAferoFS wraps an afero.Fs. A blockSize of 0 selects DefaultBlockSize.
func NewAferoFS(fs afero.Fs, blockSize int64) *AferoFS {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return &AferoFS{fs: fs, blockSize: blockSize}
}

// NewOsFS returns a FileSystem over the local disk
func NewOsFS(blockSize int64) *AferoFS {
	return NewAferoFS(afero.NewOsFs(), blockSize)
}

// NewMemFS returns a FileSystem held entirely in memory
func NewMemFS(blockSize int64) *AferoFS {
	return NewAferoFS(afero.NewMemMapFs(), blockSize)
}

// Fs returns the underlying afero.Fs
func (a *AferoFS) Fs() afero.Fs {
	return a.fs
}

func (a *AferoFS) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "/" {
		return nil
	}
	return a.fs.MkdirAll(dir, 0755)
}

// Create opens a new file for sequential writing
func (a *AferoFS) Create(path string) (io.WriteCloser, error) {
	if err := a.ensureDir(path); err != nil {
		return nil, err
	}
	return a.fs.Create(path)
}

// Append opens an existing file for sequential writing at its end
func (a *AferoFS) Append(path string) (io.WriteCloser, error) {
	return a.fs.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0644)
}

// Open opens a file for reading
func (a *AferoFS) Open(path string) (File, error) {
	return a.fs.Open(path)
}

// Size returns the length of a file in bytes
func (a *AferoFS) Size(path string) (int64, error) {
	info, err := a.fs.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Exists returns true iff a file exists at path
func (a *AferoFS) Exists(path string) (bool, error) {
	return afero.Exists(a.fs, path)
}

// Rename moves a file
func (a *AferoFS) Rename(from string, to string) error {
	if err := a.ensureDir(to); err != nil {
		return err
	}
	return a.fs.Rename(from, to)
}

// Concat copies the sources, in order, into a new target file and deletes them
func (a *AferoFS) Concat(target string, sources []string) (err error) {
	for _, src := range sources {
		if src == target {
			return fmt.Errorf("cannot concatenate %s into itself", target)
		}
	}
	out, err := a.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	for _, src := range sources {
		in, err := a.fs.Open(src)
		if err != nil {
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			return fmt.Errorf("unable to concatenate %s into %s: %w", src, target, err)
		}
	}
	for _, src := range sources {
		if err := a.Delete(src); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a file
func (a *AferoFS) Delete(path string) error {
	err := a.fs.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Glob returns the sorted paths of files matching a pattern
func (a *AferoFS) Glob(pattern string) ([]string, error) {
	matches, err := afero.Glob(a.fs, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// BlockSize returns the block size of this FileSystem, which is the same for every path
func (a *AferoFS) BlockSize(path string) int64 {
	return a.blockSize
}
