package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatasetSize(t *testing.T) {
	tests := []struct {
		in   string
		want DatasetSize
	}{
		{"small", Small},
		{"Medium", Medium},
		{" LARGE ", Large},
		{"s", Small},
	}
	for _, tt := range tests {
		got, err := ParseDatasetSize(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseDatasetSize("huge")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestPreset(t *testing.T) {
	prev := 0
	for _, size := range []DatasetSize{Small, Medium, Large} {
		c, err := Preset(size)
		require.NoError(t, err)
		require.NoError(t, c.Validate(), size.String())
		assert.Equal(t, size, c.Size)
		assert.Greater(t, c.NumTables, prev, "larger presets use more tables")
		prev = c.NumTables
	}

	_, err := Preset(DatasetSize(9))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	base := MustPreset(Small)

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"tables", func(c *Config) { c.NumTables = 0 }, "num_tables"},
		{"hashes", func(c *Config) { c.HashesPerTable = -1 }, "hashes_per_table"},
		{"range", func(c *Config) { c.RangePow = 33 }, "range_pow"},
		{"features", func(c *Config) { c.FeatureBits = 0 }, "feature_bits"},
		{"word ngram", func(c *Config) { c.WordNGram = 3 }, "word_ngram"},
		{"stripes", func(c *Config) { c.Stripes = 12 }, "stripes"},
		{"workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"label delimiter", func(c *Config) { c.LabelDelimiter = "" }, "label_delimiter"},
		{"field delimiter", func(c *Config) { c.FieldDelimiter = "ab" }, "field_delimiter"},
		{"quote delimiter", func(c *Config) { c.FieldDelimiter = "\"" }, "field_delimiter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestDecode(t *testing.T) {
	c, err := Decode(strings.NewReader("dataset_size: medium\nnum_tables: 32\nlabel_delimiter: \"|\"\n"))
	require.NoError(t, err)

	assert.Equal(t, Medium, c.Size)
	assert.Equal(t, 32, c.NumTables)
	assert.Equal(t, "|", c.LabelDelimiter)
	assert.Equal(t, MustPreset(Medium).RangePow, c.RangePow)

	_, err = Decode(strings.NewReader("dataset_size: gigantic\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Decode(strings.NewReader("num_tables: -4\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEncodeLoadFile(t *testing.T) {
	want := MustPreset(Large)
	want.Seed = 42

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, want))

	path := filepath.Join(t.TempDir(), "flash.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
