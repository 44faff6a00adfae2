// Package config resolves dataset-size presets into the concrete parameters
// used by the hash table bank and the feature encoder.
//
// A Config is fixed once an index is created: the number of tables, the
// bucket-code width and the feature space never change afterwards.
package config

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// ErrInvalid is matched by every *ConfigError.
var ErrInvalid = errors.New("invalid configuration")

// ConfigError reports a configuration field that cannot be used.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalid.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalid }

// DatasetSize is the size hint used to pick a preset.
type DatasetSize uint8

const (
	// Small suits up to tens of thousands of labels.
	Small DatasetSize = iota
	// Medium suits up to a few hundred thousand labels.
	Medium
	// Large suits millions of labels.
	Large
)

// String returns the lowercase name of the size.
func (s DatasetSize) String() string {
	switch s {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return fmt.Sprintf("DatasetSize(%d)", uint8(s))
	}
}

// ParseDatasetSize parses "small", "medium" or "large" (case-insensitive).
func ParseDatasetSize(s string) (DatasetSize, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "small", "s":
		return Small, nil
	case "medium", "m":
		return Medium, nil
	case "large", "l":
		return Large, nil
	default:
		return 0, &ConfigError{Field: "dataset_size", Reason: fmt.Sprintf("unknown value %q", s)}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s DatasetSize) MarshalText() ([]byte, error) {
	if s > Large {
		return nil, &ConfigError{Field: "dataset_size", Reason: fmt.Sprintf("unknown value %d", uint8(s))}
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DatasetSize) UnmarshalText(text []byte) error {
	v, err := ParseDatasetSize(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Config holds all tunables of an index.
type Config struct {
	// Size is the preset this config was derived from.
	Size DatasetSize `yaml:"dataset_size"`

	// NumTables is the number of independent LSH tables.
	NumTables int `yaml:"num_tables"`

	// HashesPerTable is the number of base MinHash functions combined into
	// one bucket code. Higher values make buckets more selective.
	HashesPerTable int `yaml:"hashes_per_table"`

	// RangePow is the bucket-code width in bits.
	RangePow int `yaml:"range_pow"`

	// FeatureBits sets the encoder feature space to 2^FeatureBits.
	FeatureBits int `yaml:"feature_bits"`

	// CharNGram is the character n-gram length. 0 disables character grams.
	CharNGram int `yaml:"char_ngram"`

	// WordNGram is 1 (unigrams) or 2 (unigrams and bigrams).
	WordNGram int `yaml:"word_ngram"`

	// MaxFeatureWeight caps how many copies of a repeated feature enter the
	// MinHash multiset.
	MaxFeatureWeight int `yaml:"max_feature_weight"`

	// Seed is the master seed for all table seeds. 0 draws one at creation.
	Seed uint64 `yaml:"seed"`

	// Stripes is the number of bucket locks per table. Must be a power of two.
	Stripes int `yaml:"stripes"`

	// BatchSize is the number of records the builder hands to workers at once.
	BatchSize int `yaml:"batch_size"`

	// Workers bounds the goroutines used for training and table fan-out.
	Workers int `yaml:"workers"`

	// LabelDelimiter separates multiple labels inside the target column.
	LabelDelimiter string `yaml:"label_delimiter"`

	// FieldDelimiter is the CSV field separator.
	FieldDelimiter string `yaml:"field_delimiter"`

	// InputColumn names the sample column. Empty uses every non-target column.
	InputColumn string `yaml:"input_column,omitempty"`

	// TargetColumn names the label column.
	TargetColumn string `yaml:"target_column,omitempty"`
}

// Validate checks that every parameter is usable.
func (c Config) Validate() error {
	switch {
	case c.Size > Large:
		return &ConfigError{Field: "dataset_size", Reason: fmt.Sprintf("unknown value %d", uint8(c.Size))}
	case c.NumTables <= 0:
		return &ConfigError{Field: "num_tables", Reason: "must be positive"}
	case c.HashesPerTable <= 0:
		return &ConfigError{Field: "hashes_per_table", Reason: "must be positive"}
	case c.RangePow <= 0 || c.RangePow > 32:
		return &ConfigError{Field: "range_pow", Reason: "must be in [1, 32]"}
	case c.FeatureBits <= 0 || c.FeatureBits > 32:
		return &ConfigError{Field: "feature_bits", Reason: "must be in [1, 32]"}
	case c.CharNGram < 0:
		return &ConfigError{Field: "char_ngram", Reason: "must not be negative"}
	case c.WordNGram != 1 && c.WordNGram != 2:
		return &ConfigError{Field: "word_ngram", Reason: "must be 1 or 2"}
	case c.MaxFeatureWeight <= 0:
		return &ConfigError{Field: "max_feature_weight", Reason: "must be positive"}
	case c.Stripes <= 0 || bits.OnesCount(uint(c.Stripes)) != 1:
		return &ConfigError{Field: "stripes", Reason: "must be a positive power of two"}
	case c.BatchSize <= 0:
		return &ConfigError{Field: "batch_size", Reason: "must be positive"}
	case c.Workers <= 0:
		return &ConfigError{Field: "workers", Reason: "must be positive"}
	case c.LabelDelimiter == "":
		return &ConfigError{Field: "label_delimiter", Reason: "must not be empty"}
	case len([]rune(c.FieldDelimiter)) != 1:
		return &ConfigError{Field: "field_delimiter", Reason: "must be a single character"}
	}
	if strings.ContainsAny(c.FieldDelimiter, "\"\r\n") {
		return &ConfigError{Field: "field_delimiter", Reason: "must not be a quote or newline"}
	}
	return nil
}

// FieldRune returns the CSV field separator as a rune.
func (c Config) FieldRune() rune {
	for _, r := range c.FieldDelimiter {
		return r
	}
	return ','
}
