package flash

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/flash/dataset"
	"github.com/hupe1980/flash/internal/resource"
	"github.com/hupe1980/flash/lsh"
)

// TrainStats summarizes one training run.
type TrainStats struct {
	// Records is the number of records inserted into the tables.
	Records int
	// Skipped is the number of malformed records.
	Skipped int
	// Empty is the number of records whose sample produced no features.
	// Their labels are registered but nothing is inserted.
	Empty int
	// Labels is the number of labels registered for the first time. Labels
	// are registered when their row is read, so IDs follow file order; a run
	// that stops early may register labels whose rows were never inserted.
	Labels int
	// Bytes is the number of file bytes read.
	Bytes int64
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Record is one training sample with its labels.
type Record = dataset.Record

// job is a record whose labels are already resolved to IDs.
type job struct {
	sample string
	ids    []uint32
}

// TrainOnFile streams a delimited training file into the index.
//
// The header must name the target column and, if configured, the input
// column; otherwise a *ConfigurationError is returned before anything is
// inserted. Malformed rows are skipped and counted. A missing or unreadable
// file is an *IOError. Records processed before an error or a cancellation
// stay in the index; each record is inserted into all tables or none.
func (f *Flash) TrainOnFile(ctx context.Context, filename string) (TrainStats, error) {
	if f.closed.Load() {
		return TrainStats{}, ErrClosed
	}

	f.trainMu.Lock()
	defer f.trainMu.Unlock()

	start := time.Now()
	st, err := f.trainFile(ctx, filename)
	st.Duration = time.Since(start)

	f.logger.WithFile(filename).LogTrain(ctx, st, err)
	f.metrics.RecordTrain(st.Records, st.Skipped, st.Duration, err)
	return st, err
}

func (f *Flash) trainFile(ctx context.Context, filename string) (TrainStats, error) {
	rc, err := dataset.Open(filename)
	if err != nil {
		return TrainStats{}, &IOError{Op: "open", Path: filename, cause: err}
	}
	defer rc.Close()

	src := resource.NewRateLimitedReader(ctx, rc, f.rc)
	r, err := dataset.NewReader(src, f.Schema())
	if err != nil {
		var col *dataset.ColumnError
		if errors.As(err, &col) {
			return TrainStats{}, translateError(err)
		}
		return TrainStats{}, &IOError{Op: "read", Path: filename, cause: err}
	}

	st, err := f.ingest(ctx, r.Next)
	st.Bytes = src.BytesRead()
	var ioErr *IOError
	if errors.As(err, &ioErr) {
		ioErr.Path = filename
	}
	return st, err
}

// Train inserts records directly. Labels are used as given apart from
// dropping empty and repeated ones; a record without labels is skipped.
func (f *Flash) Train(ctx context.Context, records []Record) (TrainStats, error) {
	if f.closed.Load() {
		return TrainStats{}, ErrClosed
	}

	f.trainMu.Lock()
	defer f.trainMu.Unlock()

	start := time.Now()
	i := 0
	st, err := f.ingest(ctx, func() (dataset.Record, error) {
		if i == len(records) {
			return dataset.Record{}, io.EOF
		}
		rec := records[i]
		i++
		labels := make([]string, 0, len(rec.Labels))
		for _, l := range rec.Labels {
			if l != "" && !slices.Contains(labels, l) {
				labels = append(labels, l)
			}
		}
		if len(labels) == 0 {
			return dataset.Record{}, &dataset.MalformedRecordError{Line: rec.Line, Reason: "empty label list"}
		}
		rec.Labels = labels
		return rec, nil
	})
	st.Duration = time.Since(start)

	f.logger.LogTrain(ctx, st, err)
	f.metrics.RecordTrain(st.Records, st.Skipped, st.Duration, err)
	return st, err
}

// ingest drives one training run. The calling goroutine reads records and
// mints label IDs in source order; workers encode and insert. Callers hold
// trainMu.
func (f *Flash) ingest(ctx context.Context, next func() (dataset.Record, error)) (TrainStats, error) {
	var (
		st       TrainStats
		inserted atomic.Int64
		empty    atomic.Int64
	)
	labelsBefore := f.labels.Len()

	g, gctx := errgroup.WithContext(ctx)
	workers := f.rc.Workers()
	batches := make(chan []job, workers)

	for range workers {
		g.Go(func() error {
			if err := f.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer f.rc.ReleaseWorker()

			for batch := range batches {
				for _, j := range batch {
					if err := gctx.Err(); err != nil {
						return err
					}
					added, ok := f.insert(j)
					if !ok {
						empty.Add(1)
						continue
					}
					inserted.Add(1)
					if err := f.rc.ChargeMemory(lsh.EntryBytes(added)); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(batches)

		batch := make([]job, 0, f.cfg.BatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([]job, 0, f.cfg.BatchSize)
			return nil
		}

		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := next()
			if errors.Is(err, io.EOF) {
				return flush()
			}
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					return cerr
				}
				var mre *dataset.MalformedRecordError
				if errors.As(err, &mre) {
					st.Skipped++
					f.logger.LogSkippedRecord(gctx, err)
					continue
				}
				return &IOError{Op: "read", cause: err}
			}

			j := job{sample: rec.Sample, ids: make([]uint32, 0, len(rec.Labels))}
			for _, l := range rec.Labels {
				id, err := f.labels.Mint(l)
				if err != nil {
					return err
				}
				j.ids = append(j.ids, id)
			}
			batch = append(batch, j)
			if len(batch) == cap(batch) {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()

	st.Records = int(inserted.Load())
	st.Empty = int(empty.Load())
	st.Labels = f.labels.Len() - labelsBefore
	if err != nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return st, err
}

// insert encodes the sample and adds every label of j to all tables.
// It reports the number of new bucket entries and false for empty samples.
func (f *Flash) insert(j job) (int, bool) {
	fs := f.enc.Encode(j.sample)
	if fs.Empty() {
		return 0, false
	}
	added := f.bank.Insert(fs, j.ids...)
	tables := uint64(f.bank.NumTables())
	for _, id := range j.ids {
		f.labels.AddInserts(id, tables)
	}
	return added, true
}
