package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"murmur/internal/config"
	"murmur/internal/dataset"
)

func TestParseCleanFlags(t *testing.T) {
	cfg := &config.Config{TextField: "body", SimilarityThreshold: 0.25, EmbeddingEnabled: true}

	t.Run("Defaults From Config", func(t *testing.T) {
		f, err := parseCleanFlags(cfg, []string{"--input", "in.csv", "--output", "out.json"})
		require.NoError(t, err)
		assert.Equal(t, "body", f.textField)
		assert.Equal(t, 0.25, f.threshold)
		assert.False(t, f.noEmbed)
		assert.Equal(t, string(dataset.FormatJSON), f.format)
	})

	t.Run("Overrides", func(t *testing.T) {
		f, err := parseCleanFlags(cfg, []string{
			"--input", "in.json", "--output", "out.txt", "--format", "csv",
			"--text-field", "comment", "--threshold", "0.4", "--no-embed",
		})
		require.NoError(t, err)
		assert.Equal(t, "comment", f.textField)
		assert.Equal(t, 0.4, f.threshold)
		assert.True(t, f.noEmbed)
		assert.Equal(t, "csv", f.format)
	})

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"Missing Input", []string{"--output", "out.csv"}, errUsage},
		{"Threshold Out Of Range", []string{"--input", "a.csv", "--output", "b.csv", "--threshold", "1.5"}, config.ErrInvalidValue},
		{"Unknown Extension", []string{"--input", "a.csv", "--output", "b.xlsx"}, dataset.ErrUnsupportedFormat},
		{"Unknown Format", []string{"--input", "a.csv", "--output", "b.csv", "--format", "xml"}, dataset.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCleanFlags(cfg, tt.args)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExecute_Usage(t *testing.T) {
	assert.ErrorIs(t, execute(&config.Config{}, nil), errUsage)
	assert.ErrorIs(t, execute(&config.Config{}, []string{"explode"}), errUsage)
}

func TestParseFetchFlags(t *testing.T) {
	t.Run("Writes Both Exports By Default", func(t *testing.T) {
		f, err := parseFetchFlags(&config.Config{}, []string{"--video-id", "abc"})
		require.NoError(t, err)
		assert.Equal(t, "data/raw/youtube_comments.json", f.outJSON)
		assert.Equal(t, "data/raw/youtube_comments.csv", f.outCSV)
	})

	t.Run("Both Exports Skipped Without Publisher", func(t *testing.T) {
		_, err := parseFetchFlags(&config.Config{}, []string{"--video-id", "abc", "--out-json=", "--out-csv="})
		assert.ErrorIs(t, err, errUsage)
	})

	t.Run("Both Exports Skipped With Publisher", func(t *testing.T) {
		f, err := parseFetchFlags(&config.Config{EnablePublisher: true}, []string{"--video-id", "abc", "--out-json=", "--out-csv="})
		require.NoError(t, err)
		assert.Empty(t, f.outJSON)
	})
}

func TestFetchCommand_Validation(t *testing.T) {
	err := execute(&config.Config{}, []string{"fetch", "--out-json", "x.json"})
	assert.ErrorIs(t, err, errUsage)

	err = execute(&config.Config{}, []string{"fetch", "--video-id", "abc", "--out-json", "x.json"})
	assert.ErrorIs(t, err, config.ErrMissingRequired)
}

func TestCleanCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping lexicon load in short mode")
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "comments.csv")
	output := filepath.Join(dir, "out", "clean.csv")
	csv := "author,comment\n" +
		"ann,Great guitar solo tonight!!! http://x.co\n" +
		"bob,ok\n" +
		"cat,\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o600))

	cfg := &config.Config{
		MinTokens:             2,
		StopwordLanguages:     []string{"en"},
		NormalizerMode:        "ascii",
		RepairCodec:           "windows-1252",
		GibberishMinAlnumRun:  30,
		GibberishMinSymbolRun: 5,
		CleanConcurrency:      2,
		SimilarityThreshold:   0.25,
		RunLogPath:            filepath.Join(dir, "runs.log"),
	}

	require.NoError(t, execute(cfg, []string{"clean", "--input", input, "--output", output, "--no-embed"}))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "author,comment,clean_text", lines[0])
	assert.Equal(t, "ann,Great guitar solo tonight!!! http://x.co,great guitar solo tonight", lines[1])

	report, err := os.ReadFile(cfg.RunLogPath)
	require.NoError(t, err)
	assert.Contains(t, string(report), `"source":"`+input+`"`)
}
