package mmap

import (
	"errors"
	"os"
	"sync"
)

var (
	// ErrClosed is returned by a Region after Close.
	ErrClosed = errors.New("mmap: region is closed")
	// ErrTooLarge is returned for files that do not fit the address space.
	ErrTooLarge = errors.New("mmap: file too large to map")
)

// Region is a read-only mapping of an entire snapshot file.
type Region struct {
	mu     sync.RWMutex
	data   []byte
	size   int64
	closed bool
	unmap  func([]byte) error
}

// Map maps the file at path read-only. Snapshots are decoded front to back,
// so the kernel is told to read ahead aggressively.
func Map(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &Region{}, nil
	}
	if int64(int(size)) != size {
		return nil, ErrTooLarge
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	osAdviseSequential(data)

	return &Region{data: data, size: size, unmap: unmap}, nil
}

// Bytes returns the mapped file. The slice must not be used after Close.
func (r *Region) Bytes() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}
	return r.data, nil
}

// Size returns the file size in bytes. It stays valid after Close.
func (r *Region) Size() int64 { return r.size }

// Close unmaps the file. Closing twice is a no-op.
func (r *Region) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	data := r.data
	r.data = nil
	if r.unmap == nil || data == nil {
		return nil
	}
	return r.unmap(data)
}
