package integration_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flash"
	"github.com/hupe1980/flash/config"
)

func newIndex(t *testing.T, opts ...flash.Option) *flash.Flash {
	t.Helper()
	opts = append([]flash.Option{flash.WithInputColumn("text"), flash.WithSeed(1)}, opts...)
	idx, err := flash.New("label", config.Small, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestEdge_HeaderOnly(t *testing.T) {
	idx := newIndex(t)

	st, err := idx.TrainOnFile(context.Background(), writeCompressed(t, "empty.csv", []byte("text,label\n")))
	require.NoError(t, err)
	assert.Zero(t, st.Records)
	assert.Empty(t, idx.Labels())

	got, err := idx.PredictSimple(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEdge_EmptyFile(t *testing.T) {
	idx := newIndex(t)

	_, err := idx.TrainOnFile(context.Background(), writeCompressed(t, "empty.csv", nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, flash.ErrConfiguration), "no header means no target column")
}

func TestEdge_Dialect(t *testing.T) {
	data := "\ufefftext,label\r\n" +
		"\"red, ripe apple\",fruit\r\n" +
		"\"say \"\"cheese\"\" please\",dairy\r\n" +
		"!!! ???,fruit\r\n"

	idx := newIndex(t)
	st, err := idx.TrainOnFile(context.Background(), writeCompressed(t, "dialect.csv", []byte(data)))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 1, st.Empty, "punctuation only yields no features")
	assert.Equal(t, []string{"fruit", "dairy"}, idx.Labels())

	got, err := idx.PredictSimple(context.Background(), "cheese please", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"dairy"}, got)
}

func TestEdge_Unicode(t *testing.T) {
	data := "text,label\n" +
		"Größe Straße München,de\n" +
		"東京 タワー 観光,ja\n" +
		"ﬁnance ＡＢＣ,en\n"

	idx := newIndex(t)
	_, err := idx.TrainOnFile(context.Background(), writeCompressed(t, "unicode.csv.gz", []byte(data)))
	require.NoError(t, err)

	for _, tc := range []struct{ sample, want string }{
		{sample: "größe straße", want: "de"},
		{sample: "東京 タワー", want: "ja"},
		{sample: "finance abc", want: "en"},
		{sample: "MÜNCHEN Straße", want: "de"},
	} {
		got, err := idx.PredictSimple(context.Background(), tc.sample, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{tc.want}, got, tc.sample)
	}
}

func TestEdge_RepeatedLabels(t *testing.T) {
	data := "text,label\n" +
		"espresso machine,kitchen;kitchen; coffee ;\n"

	idx := newIndex(t)
	st, err := idx.TrainOnFile(context.Background(), writeCompressed(t, "multi.csv", []byte(data)))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Records)
	assert.Equal(t, []string{"kitchen", "coffee"}, idx.Labels())

	preds, err := idx.Query("espresso machine").TopK(5).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, preds[0].Inserts, preds[1].Inserts, "each label is inserted once per table")
}

func TestEdge_ShortRows(t *testing.T) {
	data := "label,extra,text\n" +
		"a,x,alpha beta\n" +
		"b\n" +
		"c,y\n" +
		"d,z,delta gamma\n"

	idx := newIndex(t)
	st, err := idx.TrainOnFile(context.Background(), writeCompressed(t, "short.csv", []byte(data)))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 2, st.Skipped)
}
