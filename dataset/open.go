package dataset

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Open opens a training file, transparently decompressing ".gz", ".zst" and
// ".lz4" files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	rc, err := Decompress(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return rc, nil
}

// Decompress wraps f according to the extension of name. Closing the result
// closes f.
func Decompress(f io.ReadCloser, name string) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(f, 64<<10)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip":
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("dataset: gzip %s: %w", name, err)
		}
		return &stack{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("dataset: zstd %s: %w", name, err)
		}
		return &stack{Reader: zr, closers: []io.Closer{closerFunc(zr.Close), f}}, nil
	case ".lz4":
		return &stack{Reader: lz4.NewReader(br), closers: []io.Closer{f}}, nil
	default:
		return &stack{Reader: br, closers: []io.Closer{f}}, nil
	}
}

type closerFunc func()

func (fn closerFunc) Close() error {
	fn()
	return nil
}

// stack closes its closers in order and reports the first error.
type stack struct {
	io.Reader
	closers []io.Closer
}

func (s *stack) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
