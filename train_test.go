package flash_test

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flash"
	"github.com/hupe1980/flash/config"
)

func syntheticCSV(rows int) string {
	var sb strings.Builder
	sb.WriteString("id,text,label\n")
	for i := range rows {
		fmt.Fprintf(&sb, "%d,item %d of group %d,group-%d\n", i, i, i%10, i%10)
	}
	return sb.String()
}

func TestTrain_ConcurrentQueries(t *testing.T) {
	ctx := context.Background()
	idx, err := flash.Small("label").InputColumn("text").Seed(5).Workers(4).Build()
	require.NoError(t, err)
	path := writeFile(t, "train.csv", syntheticCSV(2000))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		st, err := idx.TrainOnFile(ctx, path)
		assert.NoError(t, err)
		assert.Equal(t, 2000, st.Records)
	}()

	for r := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				got, err := idx.PredictSimple(ctx, fmt.Sprintf("item %d of group %d", i, r), 3)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(got), 3)
			}
		}()
	}
	wg.Wait()

	got, err := idx.PredictSimple(ctx, "item 42 of group 2", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"group-2"}, got)
	assert.Len(t, idx.Labels(), 10)
}

func TestTrain_SerializedRunsKeepFileOrder(t *testing.T) {
	ctx := context.Background()
	idx, err := flash.Small("label").InputColumn("text").Workers(8).Build()
	require.NoError(t, err)

	st, err := idx.TrainOnFile(ctx, writeFile(t, "train.csv", syntheticCSV(500)))
	require.NoError(t, err)
	assert.Equal(t, 10, st.Labels)

	want := make([]string, 10)
	for i := range want {
		want[i] = fmt.Sprintf("group-%d", i)
	}
	assert.Equal(t, want, idx.Labels())
}

func TestTrain_Cancelled(t *testing.T) {
	idx, err := flash.Make(nil, "label", "small")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := idx.TrainOnFile(ctx, writeFile(t, "train.csv", animalsCSV))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, st.Records)
	assert.Zero(t, idx.Stats().Entries)
}

func TestTrain_MemoryLimit(t *testing.T) {
	idx, err := flash.Small("label").Workers(1).MemoryLimit(1).Build()
	require.NoError(t, err)

	st, err := idx.TrainOnFile(context.Background(), writeFile(t, "train.csv", animalsCSV))
	require.ErrorIs(t, err, flash.ErrMemoryLimitExceeded)
	assert.Equal(t, 1, st.Records, "the record that crossed the limit stays")
	assert.Equal(t, idx.Config().NumTables, idx.Stats().Entries)

	// All rows were read before the first insert, so every label is
	// registered even though only the first row reached the tables.
	assert.Equal(t, 2, st.Labels)
	assert.Equal(t, []string{"animals", "electronics"}, idx.Labels())

	preds, err := idx.Query("laptop charger").Labels("electronics").Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, preds)
}

func TestTrain_IOLimit(t *testing.T) {
	idx, err := flash.Small("label").IOLimit(1 << 20).Build()
	require.NoError(t, err)

	st, err := idx.TrainOnFile(context.Background(), writeFile(t, "train.csv", animalsCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, st.Records)
}

func TestTrain_CustomDelimiters(t *testing.T) {
	ctx := context.Background()
	cfgCSV := "label\ttext\nfruit|food\tred apple\n"

	idx, err := flash.Small("label").
		LabelDelimiter("|").
		Tune(func(c *config.Config) { c.FieldDelimiter = "\t" }).
		Build()
	require.NoError(t, err)

	st, err := idx.TrainOnFile(ctx, writeFile(t, "train.tsv", cfgCSV))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, []string{"fruit", "food"}, idx.Labels())
}

func TestTrain_MetricsAndLogging(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	metrics := &flash.BasicMetricsCollector{}

	idx, err := flash.Make(nil, "label", "small",
		flash.WithMetricsCollector(metrics),
		flash.WithLogger(flash.NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))),
	)
	require.NoError(t, err)

	_, err = idx.TrainOnFile(ctx, writeFile(t, "train.csv", animalsCSV+"only\n"))
	require.NoError(t, err)
	_, err = idx.PredictSimple(ctx, "cat", 1)
	require.NoError(t, err)
	_, err = idx.PredictSimple(ctx, "dog", 1)
	require.NoError(t, err)

	st := metrics.GetStats()
	assert.Equal(t, int64(1), st.TrainCount)
	assert.Equal(t, int64(3), st.TrainRecords)
	assert.Equal(t, int64(1), st.TrainSkipped)
	assert.Equal(t, int64(2), st.PredictCount)
	assert.Zero(t, st.PredictErrors)

	out := buf.String()
	assert.Contains(t, out, "record skipped")
	assert.Contains(t, out, "training completed with skipped records")
	assert.Contains(t, out, "predict completed")
}
