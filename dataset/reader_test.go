package dataset

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) ([]Record, []*MalformedRecordError) {
	t.Helper()
	var (
		recs []Record
		bad  []*MalformedRecordError
	)
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return recs, bad
		}
		var me *MalformedRecordError
		if errors.As(err, &me) {
			bad = append(bad, me)
			continue
		}
		require.NoError(t, err)
		recs = append(recs, rec)
	}
}

func TestReader_AllNonTargetFields(t *testing.T) {
	src := "title,label,brand\n" +
		"cat food,animals,acme\n" +
		"dog leash,animals;pets; animals ,\n" +
		"laptop charger,electronics,volt\n"

	r, err := NewReader(strings.NewReader(src), Schema{TargetColumn: "label"})
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "label", "brand"}, r.Header())

	recs, bad := readAll(t, r)
	assert.Empty(t, bad)
	assert.Equal(t, []Record{
		{Line: 2, Sample: "cat food acme", Labels: []string{"animals"}},
		{Line: 3, Sample: "dog leash", Labels: []string{"animals", "pets"}},
		{Line: 4, Sample: "laptop charger volt", Labels: []string{"electronics"}},
	}, recs)
}

func TestReader_InputColumn(t *testing.T) {
	src := "id\ttext\ttags\n1\tgarden hose\toutdoor|tools\n"

	r, err := NewReader(strings.NewReader(src), Schema{
		InputColumn:    "text",
		TargetColumn:   "tags",
		LabelDelimiter: "|",
		Comma:          '\t',
	})
	require.NoError(t, err)

	recs, _ := readAll(t, r)
	require.Len(t, recs, 1)
	assert.Equal(t, "garden hose", recs[0].Sample)
	assert.Equal(t, []string{"outdoor", "tools"}, recs[0].Labels)
}

func TestReader_TargetOnlyColumn(t *testing.T) {
	src := "\ufeffentity\nAcme Corp\n\"Globex, Inc\"\n"

	r, err := NewReader(strings.NewReader(src), Schema{TargetColumn: "entity"})
	require.NoError(t, err)

	recs, _ := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, "Acme Corp", recs[0].Sample)
	assert.Equal(t, []string{"Acme Corp"}, recs[0].Labels)
	assert.Equal(t, "Globex, Inc", recs[1].Sample)
}

func TestReader_MissingColumns(t *testing.T) {
	_, err := NewReader(strings.NewReader("text,category\nx,y\n"), Schema{TargetColumn: "label"})
	var ce *ColumnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "target", ce.Role)
	assert.Equal(t, "label", ce.Column)
	assert.Equal(t, []string{"text", "category"}, ce.Header)

	_, err = NewReader(strings.NewReader("text,label\n"), Schema{InputColumn: "body", TargetColumn: "label"})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "input", ce.Role)

	_, err = NewReader(strings.NewReader(""), Schema{TargetColumn: "label"})
	require.ErrorAs(t, err, &ce)
}

func TestReader_MalformedRowsAreSkippable(t *testing.T) {
	src := "text,label\n" +
		"cat food,animals\n" +
		"no label here\n" +
		"bad \"quote,animals\n" +
		"blank labels, ; ;\n" +
		"dog leash,animals\n"

	r, err := NewReader(strings.NewReader(src), Schema{TargetColumn: "label"})
	require.NoError(t, err)

	recs, bad := readAll(t, r)
	require.Len(t, recs, 2)
	assert.Equal(t, "cat food", recs[0].Sample)
	assert.Equal(t, "dog leash", recs[1].Sample)

	require.Len(t, bad, 3)
	assert.Equal(t, 3, bad[0].Line)
	assert.Contains(t, bad[0].Error(), "too few fields")
	assert.Equal(t, "unparsable row", bad[1].Reason)
	assert.Error(t, errors.Unwrap(bad[1]))
	assert.Equal(t, "empty label list", bad[2].Reason)
}

func TestSplitLabels(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitLabels(" a ;b;a;; ", ";"))
	assert.Equal(t, []string{"x,y"}, SplitLabels("x,y", ""))
	assert.Empty(t, SplitLabels(" ; ", ";"))
}
