package flash

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/dataset"
	"github.com/hupe1980/flash/encoder"
	"github.com/hupe1980/flash/internal/registry"
	"github.com/hupe1980/flash/internal/resource"
	"github.com/hupe1980/flash/lsh"
	"github.com/hupe1980/flash/snapshot"
)

// Flash is an LSH index mapping samples to labels.
//
// All methods are safe for concurrent use. Training runs are serialized so
// label IDs follow file order; queries never block on training.
type Flash struct {
	cfg    config.Config
	enc    *encoder.Encoder
	bank   *lsh.Bank
	labels *registry.Registry
	rc     *resource.Controller

	compression snapshot.Compression
	logger      *Logger
	metrics     MetricsCollector

	trainMu sync.Mutex
	closed  atomic.Bool
}

// Make creates an empty index.
//
// inputColumn selects the encoded column; nil uses the whole row minus the
// target. size is one of "small", "medium" or "large". An unknown size or an
// empty target column is a *ConfigurationError.
func Make(inputColumn *string, targetColumn, size string, optFns ...Option) (*Flash, error) {
	ds, err := config.ParseDatasetSize(size)
	if err != nil {
		return nil, translateError(err)
	}
	if inputColumn != nil {
		optFns = append([]Option{WithInputColumn(*inputColumn)}, optFns...)
	}
	return New(targetColumn, ds, optFns...)
}

// New creates an empty index from a dataset-size preset.
func New(targetColumn string, size config.DatasetSize, optFns ...Option) (*Flash, error) {
	o := applyOptions(optFns)

	var cfg config.Config
	if o.config != nil {
		cfg = *o.config
	} else {
		p, err := config.Preset(size)
		if err != nil {
			return nil, translateError(err)
		}
		cfg = p
	}
	for _, fn := range o.tune {
		fn(&cfg)
	}

	if targetColumn != "" {
		cfg.TargetColumn = targetColumn
	}
	if cfg.TargetColumn == "" {
		return nil, &ConfigurationError{Reason: "target column must not be empty"}
	}
	if o.inputColumn != nil {
		cfg.InputColumn = *o.inputColumn
	}
	if cfg.InputColumn != "" && cfg.InputColumn == cfg.TargetColumn {
		return nil, &ConfigurationError{Reason: "input and target column must differ"}
	}
	if o.seed != nil {
		cfg.Seed = *o.seed
	}
	for cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}
	applyRuntimeOptions(&cfg, o)

	if err := cfg.Validate(); err != nil {
		return nil, translateError(err)
	}

	bank, err := lsh.New(lsh.Options{
		NumTables:        cfg.NumTables,
		HashesPerTable:   cfg.HashesPerTable,
		RangePow:         cfg.RangePow,
		MaxFeatureWeight: cfg.MaxFeatureWeight,
		Stripes:          cfg.Stripes,
		Workers:          cfg.Workers,
		Seed:             cfg.Seed,
	})
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error(), cause: err}
	}

	return newFlash(cfg, bank, registry.New(), o), nil
}

// applyRuntimeOptions folds options that never change the table shape into
// cfg. They also apply to loaded snapshots.
func applyRuntimeOptions(cfg *config.Config, o options) {
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.labelDelimiter != "" {
		cfg.LabelDelimiter = o.labelDelimiter
	}
}

func newFlash(cfg config.Config, bank *lsh.Bank, labels *registry.Registry, o options) *Flash {
	return &Flash{
		cfg: cfg,
		enc: encoder.New(encoder.Options{
			FeatureBits: cfg.FeatureBits,
			CharNGram:   cfg.CharNGram,
			WordNGram:   cfg.WordNGram,
		}),
		bank:   bank,
		labels: labels,
		rc: resource.NewController(resource.Limits{
			MemoryBytes:   o.memoryLimit,
			Workers:       cfg.Workers,
			IOBytesPerSec: o.ioLimit,
		}),
		compression: o.compression,
		logger:      o.logger,
		metrics:     o.metricsCollector,
	}
}

// Config returns the resolved configuration, including the drawn seed.
func (f *Flash) Config() config.Config { return f.cfg }

// Schema returns the column layout used to read training files.
func (f *Flash) Schema() dataset.Schema {
	return dataset.Schema{
		InputColumn:    f.cfg.InputColumn,
		TargetColumn:   f.cfg.TargetColumn,
		LabelDelimiter: f.cfg.LabelDelimiter,
		Comma:          f.cfg.FieldRune(),
	}
}

// Labels returns every known label in first-seen order.
func (f *Flash) Labels() []string { return f.labels.Labels() }

// Stats describes the size of an index.
type Stats struct {
	Tables      int
	Buckets     int
	Entries     int
	Labels      int
	MemoryBytes int64
}

// Stats returns the current table statistics.
func (f *Flash) Stats() Stats {
	bs := f.bank.Stats()
	return Stats{
		Tables:      bs.Tables,
		Buckets:     bs.Buckets,
		Entries:     bs.Entries,
		Labels:      f.labels.Len(),
		MemoryBytes: f.bank.MemoryUsage(),
	}
}

// Close marks the index closed. Later calls to TrainOnFile, Query or Save
// return ErrClosed. Close is idempotent.
func (f *Flash) Close() error {
	if f == nil || f.closed.Swap(true) {
		return nil
	}
	f.rc.ReleaseMemory(f.rc.MemoryUsage())
	return nil
}
