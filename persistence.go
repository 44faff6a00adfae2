package flash

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/flash/blobstore"
	"github.com/hupe1980/flash/internal/registry"
	"github.com/hupe1980/flash/snapshot"
)

// Save writes a snapshot named name to store and points CURRENT at it.
// An empty name generates a unique one. It returns the name written.
//
// Save waits for a running training call so the snapshot holds whole records.
func (f *Flash) Save(ctx context.Context, store blobstore.BlobStore, name string) (string, error) {
	if f.closed.Load() {
		return "", ErrClosed
	}
	if name == "" {
		name = snapshotName(time.Now())
	}

	start := time.Now()
	size, err := f.save(ctx, store, name)
	f.logger.LogSnapshot(ctx, "saved", name, size, err)
	f.metrics.RecordSnapshot(size, time.Since(start), err)
	if err != nil {
		return "", err
	}
	return name, nil
}

func (f *Flash) save(ctx context.Context, store blobstore.BlobStore, name string) (int, error) {
	f.trainMu.Lock()
	data, err := snapshot.Encode(snapshot.State{
		Config: f.cfg,
		Labels: f.labels.Snapshot(),
		Bank:   f.bank,
	}, f.compression)
	f.trainMu.Unlock()
	if err != nil {
		return 0, err
	}

	if err := store.Put(ctx, name, data); err != nil {
		return 0, &IOError{Op: "put", Path: name, cause: err}
	}
	if err := blobstore.WriteCurrent(ctx, store, name); err != nil {
		return 0, &IOError{Op: "commit", Path: name, cause: err}
	}
	return len(data), nil
}

// Load restores an index from store. An empty name follows CURRENT.
//
// Runtime options (workers, limits, logging, metrics, compression, label
// delimiter and input column) apply; options that change the table shape are
// ignored.
func Load(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (*Flash, error) {
	o := applyOptions(optFns)

	start := time.Now()
	f, size, err := load(ctx, store, name, o)
	o.logger.LogSnapshot(ctx, "loaded", name, size, err)
	o.metricsCollector.RecordSnapshot(size, time.Since(start), err)
	return f, err
}

func load(ctx context.Context, store blobstore.BlobStore, name string, o options) (*Flash, int, error) {
	if name == "" {
		cur, err := blobstore.ReadCurrent(ctx, store)
		if err != nil {
			return nil, 0, &IOError{Op: "resolve", Path: blobstore.CurrentName, cause: err}
		}
		name = cur
	}

	data, err := blobstore.Get(ctx, store, name)
	if err != nil {
		return nil, 0, &IOError{Op: "get", Path: name, cause: err}
	}

	st, err := snapshot.Decode(data, o.workers)
	if err != nil {
		return nil, len(data), &IOError{Op: "decode", Path: name, cause: err}
	}

	labels, err := registry.Restore(st.Labels)
	if err != nil {
		return nil, len(data), &IOError{Op: "decode", Path: name, cause: err}
	}

	cfg := st.Config
	applyRuntimeOptions(&cfg, o)
	if o.inputColumn != nil {
		cfg.InputColumn = *o.inputColumn
	}
	if err := cfg.Validate(); err != nil {
		return nil, len(data), translateError(err)
	}

	f := newFlash(cfg, st.Bank, labels, o)
	if err := f.rc.ChargeMemory(st.Bank.MemoryUsage()); err != nil {
		return nil, len(data), err
	}
	return f, len(data), nil
}

// snapshotName returns a sortable, unique blob name.
func snapshotName(t time.Time) string {
	return fmt.Sprintf("index-%s-%s.flsh", t.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}
