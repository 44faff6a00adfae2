package blobstore

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
)

const (
	defaultChunkSize = 8 << 20
	defaultFetchers  = 8
)

// CachingStore mirrors blobs of a remote store into a LocalStore on first
// open. Snapshot blobs are immutable, so a cached copy never goes stale;
// CURRENT is always read from the remote.
type CachingStore struct {
	remote    BlobStore
	local     *LocalStore
	chunkSize int64
	fetchers  int
}

// NewCachingStore creates a new CachingStore.
// chunkSize defaults to 8MB if <= 0.
func NewCachingStore(remote BlobStore, local *LocalStore, chunkSize int64) *CachingStore {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &CachingStore{
		remote:    remote,
		local:     local,
		chunkSize: chunkSize,
		fetchers:  defaultFetchers,
	}
}

// Open serves name from the local mirror, downloading it first if needed.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	if name == CurrentName {
		return s.remote.Open(ctx, name)
	}

	b, err := s.local.Open(ctx, name)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.fetch(ctx, name); err != nil {
		return nil, err
	}
	return s.local.Open(ctx, name)
}

// fetch downloads name in parallel ranged reads and stores it locally.
func (s *CachingStore) fetch(ctx context.Context, name string) error {
	src, err := s.remote.Open(ctx, name)
	if err != nil {
		return err
	}
	defer src.Close()

	size := src.Size()
	buf := make([]byte, size)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchers)

	for off := int64(0); off < size; off += s.chunkSize {
		end := min(off+s.chunkSize, size)
		g.Go(func() error {
			n, err := src.ReadAt(gctx, buf[off:end], off)
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if int64(n) != end-off {
				return io.ErrUnexpectedEOF
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return s.local.Put(ctx, name, buf)
}

// Put writes through to the remote and drops any stale local copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.remote.Put(ctx, name, data); err != nil {
		return err
	}
	if name == CurrentName {
		return nil
	}
	return s.local.Delete(ctx, name)
}

// Delete removes name from both stores.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	if err := s.remote.Delete(ctx, name); err != nil {
		return err
	}
	if name == CurrentName {
		return nil
	}
	return s.local.Delete(ctx, name)
}

// List lists the remote store.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.remote.List(ctx, prefix)
}
