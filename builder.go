package flash

import (
	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/snapshot"
)

// Small creates a builder for the small preset (256 tables).
//
// Example:
//
//	idx, err := flash.Small("label").
//	    InputColumn("text").
//	    Seed(7).
//	    Build()
func Small(targetColumn string) Builder { return newBuilder(targetColumn, config.Small) }

// Medium creates a builder for the medium preset (384 tables).
func Medium(targetColumn string) Builder { return newBuilder(targetColumn, config.Medium) }

// Large creates a builder for the large preset (512 tables, word bigrams).
func Large(targetColumn string) Builder { return newBuilder(targetColumn, config.Large) }

func newBuilder(targetColumn string, size config.DatasetSize) Builder {
	return Builder{targetColumn: targetColumn, size: size}
}

// Builder is an immutable fluent builder for Flash indexes.
// Each method returns a new builder with the updated configuration.
type Builder struct {
	targetColumn string
	size         config.DatasetSize
	opts         []Option
}

func (b Builder) with(o Option) Builder {
	opts := make([]Option, len(b.opts), len(b.opts)+1)
	copy(opts, b.opts)
	b.opts = append(opts, o)
	return b
}

// InputColumn selects the encoded column.
func (b Builder) InputColumn(name string) Builder { return b.with(WithInputColumn(name)) }

// Seed fixes the master seed.
func (b Builder) Seed(seed uint64) Builder { return b.with(WithSeed(seed)) }

// Workers bounds training and query parallelism.
func (b Builder) Workers(n int) Builder { return b.with(WithWorkers(n)) }

// LabelDelimiter sets the multi-label separator.
func (b Builder) LabelDelimiter(d string) Builder { return b.with(WithLabelDelimiter(d)) }

// MemoryLimit sets the soft bucket memory limit in bytes.
func (b Builder) MemoryLimit(bytes int64) Builder { return b.with(WithMemoryLimit(bytes)) }

// IOLimit throttles training file reads.
func (b Builder) IOLimit(bytesPerSec int64) Builder { return b.with(WithIOLimit(bytesPerSec)) }

// Compression selects the snapshot compression.
func (b Builder) Compression(c snapshot.Compression) Builder { return b.with(WithCompression(c)) }

// Logger sets the logger.
func (b Builder) Logger(l *Logger) Builder { return b.with(WithLogger(l)) }

// Metrics sets the metrics collector.
func (b Builder) Metrics(mc MetricsCollector) Builder { return b.with(WithMetricsCollector(mc)) }

// Tune adjusts the preset before validation, for example to change the
// number of tables.
//
//	flash.Medium("label").Tune(func(c *config.Config) { c.NumTables = 96 })
func (b Builder) Tune(fn func(*config.Config)) Builder {
	return b.with(func(o *options) {
		if fn != nil {
			o.tune = append(o.tune, fn)
		}
	})
}

// Build creates the index.
func (b Builder) Build() (*Flash, error) {
	return New(b.targetColumn, b.size, b.opts...)
}

// MustBuild creates the index, panicking on error.
func (b Builder) MustBuild() *Flash {
	f, err := b.Build()
	if err != nil {
		panic(err)
	}
	return f
}
