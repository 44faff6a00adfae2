package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeCSV(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const trainCSV = "text,label\ncat food,animals\ndog leash,animals\nlaptop charger,electronics\n"

func TestRootCommand_Definition(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "flash", root.Use)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"train", "predict", "inspect"}, names)

	store := root.PersistentFlags().Lookup("store")
	require.NotNil(t, store)
	assert.Equal(t, "./flash-data", store.DefValue)
}

func TestTrainPredictInspect(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	file := writeCSV(t, dir, trainCSV)

	out, err := run(t, "", "train", "--store", store, "--target", "label", "--seed", "42", "--name", "v1.flsh", file)
	require.NoError(t, err)
	assert.Contains(t, out, "3 records")
	assert.Contains(t, out, "saved v1.flsh")

	out, err = run(t, "", "predict", "--store", store, "-k", "1", "cat leash")
	require.NoError(t, err)
	assert.Equal(t, "cat leash\tanimals\n", out)

	out, err = run(t, "dog leash\n\nlaptop charger\n", "predict", "--store", store, "-k", "1", "--json")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var got predictOutput
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "laptop charger", got.Sample)
	require.Len(t, got.Predictions, 1)
	assert.Equal(t, "electronics", got.Predictions[0].Label)
	assert.Equal(t, 256, got.Predictions[0].Votes)

	out, err = run(t, "", "inspect", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "v1.flsh")
	assert.Contains(t, out, "256 x 1 hashes")
	assert.Contains(t, out, "seed:")
	assert.Regexp(t, `labels:\s+2`, out)

	out, err = run(t, "", "inspect", "--store", store, "--list")
	require.NoError(t, err)
	assert.Equal(t, "* v1.flsh\n", out)

	_, err = run(t, "", "inspect", "--store", store, "--history", "5")
	assert.ErrorContains(t, err, "no commit history")
}

func TestTrain_Resume(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	file := writeCSV(t, dir, trainCSV)

	_, err := run(t, "", "train", "--store", store, "-t", "label", "--compression", "zstd", file)
	require.NoError(t, err)

	more := filepath.Join(dir, "more.csv")
	require.NoError(t, os.WriteFile(more, []byte("text,label\nphone case,accessories\n"), 0o600))
	out, err := run(t, "", "train", "--store", store, "--resume", more)
	require.NoError(t, err)
	assert.Contains(t, out, "1 new labels")

	out, err = run(t, "", "predict", "--store", store, "--scores", "-k", "1", "phone case")
	require.NoError(t, err)
	assert.Contains(t, out, "accessories(64,1.000)")
}

func TestTrain_Errors(t *testing.T) {
	dir := t.TempDir()
	file := writeCSV(t, dir, trainCSV)
	store := filepath.Join(dir, "store")

	_, err := run(t, "", "train", "--store", store, "-t", "category", file)
	assert.ErrorContains(t, err, "configuration error")

	_, err = run(t, "", "train", "--store", store, "-t", "label", "--size", "tiny", file)
	assert.Error(t, err)

	_, err = run(t, "", "train", "--store", store, "-t", "label", "--memory-limit", "lots", file)
	assert.ErrorContains(t, err, "--memory-limit")

	_, err = run(t, "", "train", "--store", "ftp://host/x", "-t", "label", file)
	assert.ErrorContains(t, err, "unsupported store scheme")

	_, err = run(t, "", "predict", "--store", filepath.Join(dir, "empty"), "x")
	assert.Error(t, err)
}

func TestTrain_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := writeCSV(t, dir, trainCSV)
	cfgPath := filepath.Join(dir, "flash.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("dataset_size: medium\nnum_tables: 32\ntarget_column: label\n"), 0o600))
	store := filepath.Join(dir, "store")

	_, err := run(t, "", "train", "--store", store, "--config", cfgPath, "--memory-limit", "64MiB", file)
	require.NoError(t, err)

	out, err := run(t, "", "inspect", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "32 x 3 hashes")
	assert.Regexp(t, `preset:\s+medium`, out)
}

func TestKeyPrefix(t *testing.T) {
	assert.Equal(t, "", keyPrefix("/"))
	assert.Equal(t, "a/b/", keyPrefix("/a/b/"))
	assert.Equal(t, "idx/", keyPrefix("idx"))
}
