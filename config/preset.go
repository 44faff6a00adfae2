package config

import "runtime"

// Preset returns the configuration for a dataset size.
//
// Larger presets trade memory for precision: more hashes per table and wider
// codes keep buckets small for large label sets, and more tables keep the
// vote counts of near neighbours apart. Small uses one hash per table so that
// short samples with a modest similarity gap still rank reliably.
func Preset(size DatasetSize) (Config, error) {
	c := Config{
		Size:             size,
		CharNGram:        4,
		WordNGram:        1,
		MaxFeatureWeight: 4,
		Stripes:          16,
		BatchSize:        1024,
		Workers:          defaultWorkers(),
		LabelDelimiter:   ";",
		FieldDelimiter:   ",",
	}

	switch size {
	case Small:
		c.NumTables = 256
		c.HashesPerTable = 1
		c.RangePow = 16
		c.FeatureBits = 18
	case Medium:
		c.NumTables = 384
		c.HashesPerTable = 2
		c.RangePow = 18
		c.FeatureBits = 20
		c.Stripes = 32
	case Large:
		c.NumTables = 512
		c.HashesPerTable = 2
		c.RangePow = 20
		c.FeatureBits = 22
		c.WordNGram = 2
		c.Stripes = 64
		c.BatchSize = 4096
	default:
		return Config{}, &ConfigError{Field: "dataset_size", Reason: "unknown preset " + size.String()}
	}

	return c, nil
}

// MustPreset is like Preset but panics on unknown sizes.
func MustPreset(size DatasetSize) Config {
	c, err := Preset(size)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n > 8 {
		return 8
	}
	return n
}
