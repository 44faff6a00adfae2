package flash

import (
	"log/slog"

	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/snapshot"
)

type options struct {
	inputColumn      *string
	config           *config.Config
	tune             []func(*config.Config)
	seed             *uint64
	workers          int
	labelDelimiter   string
	memoryLimit      int64
	ioLimit          int64
	compression      snapshot.Compression
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Flash constructor/load behavior.
//
// Options that change the table shape (WithConfig, WithSeed) only apply to new
// indexes; a loaded snapshot keeps the shape it was trained with.
type Option func(*options)

// WithInputColumn selects the column whose text is encoded as the sample.
// An empty name uses every column except the target.
func WithInputColumn(name string) Option {
	return func(o *options) {
		o.inputColumn = &name
	}
}

// WithConfig replaces the dataset-size preset with an explicit configuration.
// The configuration is validated when the index is created.
//
// Example:
//
//	cfg := config.MustPreset(config.Medium)
//	cfg.NumTables = 96
//	idx, _ := flash.New("label", config.Medium, flash.WithConfig(cfg))
func WithConfig(cfg config.Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// WithSeed fixes the master seed of all tables. Indexes built with the same
// seed and configuration produce identical bucket codes.
// A zero seed draws a random one.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithWorkers bounds the goroutines used for training and for fanning out
// queries over the tables.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLabelDelimiter sets the separator of multiple labels in the target
// column. Default: ";".
func WithLabelDelimiter(d string) Option {
	return func(o *options) {
		o.labelDelimiter = d
	}
}

// WithMemoryLimit sets a soft limit on bucket entry memory in bytes.
// Training stops with ErrMemoryLimitExceeded once the limit is crossed;
// records inserted until then stay in the index. 0 disables the limit.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithIOLimit throttles reading of training files to bytesPerSec.
// 0 disables throttling.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		o.ioLimit = bytesPerSec
	}
}

// WithCompression selects the block compression used by Save.
// Default: snapshot.CompressionLZ4.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &flash.BasicMetricsCollector{}
//	idx, _ := flash.Make(nil, "label", "small", flash.WithMetricsCollector(metrics))
//	// ... train and query ...
//	fmt.Println(metrics.GetStats().PredictAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := flash.NewJSONLogger(slog.LevelInfo)
//	idx, _ := flash.Make(nil, "label", "small", flash.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		compression:      snapshot.CompressionLZ4,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
