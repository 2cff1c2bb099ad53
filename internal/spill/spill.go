// Package spill holds the raw buffers of cells which are still being
// written, either in memory or compressed on local disk.
package spill

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/spf13/afero"
)

// Codec names a compression algorithm for spilled buffers
type Codec string

const (
	// LZ4 compresses spilled buffers with lz4
	LZ4 Codec = "lz4"
	// Zstd compresses spilled buffers with zstandard
	Zstd Codec = "zstd"
	// None writes spilled buffers verbatim
	None Codec = "none"
)

// Buffer accumulates the raw bytes of one cell
type Buffer interface {
	io.Writer
	// Len returns the number of uncompressed bytes written so far
	Len() int64
	// Bytes returns everything written to this Buffer. No further writes are permitted.
	Bytes() ([]byte, error)
	// Release discards this Buffer and any storage it holds
	Release() error
}

// Store creates Buffers
type Store interface {
	NewBuffer(name string) (Buffer, error)
}

// NewStore returns a memory Store if dir is empty, and a disk Store otherwise
func NewStore(dir string, codec Codec) (Store, error) {
	if len(dir) == 0 {
		return NewMemoryStore(), nil
	}
	return NewDiskStore(afero.NewOsFs(), dir, codec)
}

type memoryStore struct{}

// NewMemoryStore returns a Store which keeps Buffers in memory
func NewMemoryStore() Store {
	return memoryStore{}
}

func (memoryStore) NewBuffer(name string) (Buffer, error) {
	return &memoryBuffer{}, nil
}

type memoryBuffer struct {
	buf    *bytes.Buffer
	sealed bool
}

func (m *memoryBuffer) Write(p []byte) (int, error) {
	if m.sealed {
		return 0, fmt.Errorf("buffer has already been read")
	}
	if m.buf == nil {
		m.buf = new(bytes.Buffer)
	}
	return m.buf.Write(p)
}

func (m *memoryBuffer) Len() int64 {
	if m.buf == nil {
		return 0
	}
	return int64(m.buf.Len())
}

func (m *memoryBuffer) Bytes() ([]byte, error) {
	m.sealed = true
	if m.buf == nil {
		return nil, nil
	}
	return m.buf.Bytes(), nil
}

func (m *memoryBuffer) Release() error {
	m.buf = nil
	return nil
}

type diskStore struct {
	fs    afero.Fs
	dir   string
	codec Codec
}

// NewDiskStore returns a Store which spills Buffers into files under dir
func NewDiskStore(fs afero.Fs, dir string, codec Codec) (Store, error) {
	switch codec {
	case LZ4, Zstd, None:
	default:
		return nil, fmt.Errorf("unknown spill codec %q", codec)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create spill directory %s: %w", dir, err)
	}
	return &diskStore{fs: fs, dir: dir, codec: codec}, nil
}

func (d *diskStore) NewBuffer(name string) (Buffer, error) {
	path := filepath.Join(d.dir, name)
	f, err := d.fs.Create(path)
	if err != nil {
		return nil, err
	}
	b := &diskBuffer{fs: d.fs, path: path, codec: d.codec, file: f, w: f}
	switch d.codec {
	case LZ4:
		b.w = lz4.NewWriter(f)
	case Zstd:
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		if err != nil {
			f.Close()
			return nil, err
		}
		b.w = enc
	}
	return b, nil
}

type diskBuffer struct {
	fs     afero.Fs
	path   string
	codec  Codec
	file   afero.File
	w      io.Writer
	length int64
	sealed bool
}

func (d *diskBuffer) Write(p []byte) (int, error) {
	if d.sealed {
		return 0, fmt.Errorf("buffer %s has already been read", d.path)
	}
	n, err := d.w.Write(p)
	d.length += int64(n)
	return n, err
}

func (d *diskBuffer) Len() int64 {
	return d.length
}

// seal flushes the compressor and closes the spill file
func (d *diskBuffer) seal() error {
	if d.sealed {
		return nil
	}
	d.sealed = true
	if c, ok := d.w.(io.Closer); ok && d.codec != None {
		if err := c.Close(); err != nil {
			d.file.Close()
			return err
		}
	}
	return d.file.Close()
}

func (d *diskBuffer) Bytes() ([]byte, error) {
	if err := d.seal(); err != nil {
		return nil, err
	}
	f, err := d.fs.Open(d.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var r io.Reader = f
	switch d.codec {
	case LZ4:
		r = lz4.NewReader(f)
	case Zstd:
		dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	buf := bytes.NewBuffer(make([]byte, 0, d.length))
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read spilled buffer %s: %w", d.path, err)
	}
	return buf.Bytes(), nil
}

func (d *diskBuffer) Release() error {
	sealErr := d.seal()
	err := d.fs.Remove(d.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return sealErr
}
