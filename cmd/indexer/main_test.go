package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/boolean-search/internal/indexer/segment"
)

const corpus = `{"url": "http://a", "html_content": "<p>red car</p>"}
not json
{"url": "http://b", "html_content": "<p>red bike red</p>"}
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildAndZipf(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, corpus, "build", "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 2 (skipped 1)")
	assert.Contains(t, out, "Index written to "+dir)

	for _, name := range []string{segment.ForwardFile, segment.InvertedFile, "zipf.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	out, err = run(t, "", "zipf", "--data-dir", dir, "--top", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Top 1 terms:")
	assert.Contains(t, out, "Hapax legomena:")
	assert.Contains(t, out, "Mean relative error against C/rank:")
}

func TestBuildFromFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(t.TempDir(), "records.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(corpus), 0o644))

	out, err := run(t, "", "build", "--data-dir", dir, "--input", input)
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 2")
}

func TestBuildRejectsUnknownSource(t *testing.T) {
	_, err := run(t, "", "build", "--data-dir", t.TempDir(), "--source", "ftp")
	assert.ErrorContains(t, err, `unknown source "ftp"`)
}

func TestZipfRejectsNegativeTop(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, corpus, "build", "--data-dir", dir)
	require.NoError(t, err)

	_, err = run(t, "", "zipf", "--data-dir", dir, "--top=-1")
	assert.ErrorContains(t, err, "--top must be non-negative")
}

func TestBuildSkipsOnlyRecordsWithoutHTML(t *testing.T) {
	input := `{"html_content": "no url here"}
{"url": "http://only-url"}
`
	out, err := run(t, input, "build", "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Documents: 1 (skipped 1)")
}

func TestZipfMissingReport(t *testing.T) {
	_, err := run(t, "", "zipf", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "opening frequency report")
}

func TestRunsNeedsPostgres(t *testing.T) {
	t.Setenv("BS_POSTGRES_HOST", "")
	_, err := run(t, "", "runs", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "postgres.host")
}

func TestPublishNeedsKafka(t *testing.T) {
	t.Setenv("BS_KAFKA_BROKERS", "")
	_, err := run(t, corpus, "publish", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "kafka.brokers")
}
