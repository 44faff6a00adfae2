package flash

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordTrain is called after each training run.
	// records is the number of inserted records, skipped the number of
	// malformed ones.
	RecordTrain(records, skipped int, duration time.Duration, err error)

	// RecordPredict is called after each query.
	RecordPredict(k int, duration time.Duration, err error)

	// RecordSnapshot is called after each save or load.
	RecordSnapshot(bytes int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordTrain(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordPredict(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordSnapshot(int, time.Duration, error)   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	TrainCount     atomic.Int64
	TrainErrors    atomic.Int64
	TrainRecords   atomic.Int64
	TrainSkipped   atomic.Int64
	PredictCount   atomic.Int64
	PredictErrors  atomic.Int64
	PredictNanos   atomic.Int64
	SnapshotCount  atomic.Int64
	SnapshotErrors atomic.Int64
	SnapshotBytes  atomic.Int64
}

// RecordTrain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordTrain(records, skipped int, _ time.Duration, err error) {
	b.TrainCount.Add(1)
	b.TrainRecords.Add(int64(records))
	b.TrainSkipped.Add(int64(skipped))
	if err != nil {
		b.TrainErrors.Add(1)
	}
}

// RecordPredict implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPredict(_ int, duration time.Duration, err error) {
	b.PredictCount.Add(1)
	b.PredictNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PredictErrors.Add(1)
	}
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(bytes int, _ time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		TrainCount:     b.TrainCount.Load(),
		TrainErrors:    b.TrainErrors.Load(),
		TrainRecords:   b.TrainRecords.Load(),
		TrainSkipped:   b.TrainSkipped.Load(),
		PredictCount:   b.PredictCount.Load(),
		PredictErrors:  b.PredictErrors.Load(),
		SnapshotCount:  b.SnapshotCount.Load(),
		SnapshotErrors: b.SnapshotErrors.Load(),
		SnapshotBytes:  b.SnapshotBytes.Load(),
	}
	if s.PredictCount > 0 {
		s.PredictAvgNanos = b.PredictNanos.Load() / s.PredictCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	TrainCount      int64
	TrainErrors     int64
	TrainRecords    int64
	TrainSkipped    int64
	PredictCount    int64
	PredictErrors   int64
	PredictAvgNanos int64
	SnapshotCount   int64
	SnapshotErrors  int64
	SnapshotBytes   int64
}
