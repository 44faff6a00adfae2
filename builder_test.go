package flash_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flash"
	"github.com/hupe1980/flash/config"
)

func TestBuilder_Presets(t *testing.T) {
	for _, tc := range []struct {
		b      flash.Builder
		size   config.DatasetSize
		tables int
	}{
		{flash.Small("label"), config.Small, 64},
		{flash.Medium("label"), config.Medium, 128},
		{flash.Large("label"), config.Large, 256},
	} {
		idx := tc.b.MustBuild()
		assert.Equal(t, tc.size, idx.Config().Size)
		assert.Equal(t, tc.tables, idx.Stats().Tables)
	}
}

func TestBuilder_Options(t *testing.T) {
	idx, err := flash.Small("category").
		InputColumn("title").
		Seed(99).
		Workers(3).
		LabelDelimiter("|").
		Tune(func(c *config.Config) { c.NumTables = 16 }).
		Build()
	require.NoError(t, err)

	cfg := idx.Config()
	assert.Equal(t, "title", cfg.InputColumn)
	assert.Equal(t, "category", cfg.TargetColumn)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "|", cfg.LabelDelimiter)
	assert.Equal(t, 16, cfg.NumTables)
	assert.Equal(t, "|", idx.Schema().LabelDelimiter)
}

func TestBuilder_Immutable(t *testing.T) {
	base := flash.Small("label").Seed(1)
	a := base.Workers(1)
	b := base.Workers(2)

	assert.Equal(t, 1, a.MustBuild().Config().Workers)
	assert.Equal(t, 2, b.MustBuild().Config().Workers)
}

func TestBuilder_Invalid(t *testing.T) {
	_, err := flash.Small("label").Tune(func(c *config.Config) { c.Stripes = 3 }).Build()
	assert.ErrorIs(t, err, flash.ErrConfiguration)

	assert.Panics(t, func() { flash.Small("").MustBuild() })
}
