package fs_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/fs"
	"github.com/fwojciec/furnitron/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *furnitron.Report {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &furnitron.Report{
		ID:         "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(125 * time.Second),
		URLs: []*furnitron.URLReport{
			{URL: "https://shop.example/tables", Outcome: furnitron.OutcomeSucceeded, Attempts: 1, Candidates: 4,
				Names: []string{"Oslo Oak Dining Table", "Bergen Side Table"}},
			{URL: "https://shop.example/down", Position: 1, Outcome: furnitron.OutcomeSkipped,
				Reason: furnitron.ReasonExhaustedRetries, Attempts: 3, Names: []string{}},
			{URL: "https://shop.example/chairs", Position: 2, Outcome: furnitron.OutcomeDegraded, Attempts: 1,
				Names: []string{"Aalto Lounge Chair"}, Degraded: []string{"Nordic Bar Stool"}},
		},
	}
}

func TestTextFormatter_FormatReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := fs.TextFormatter{}.FormatReport(&buf, sampleReport())

	require.NoError(t, err)
	assert.Equal(t, "\nURL: https://shop.example/tables\n"+
		"Oslo Oak Dining Table\n"+
		"Bergen Side Table\n"+
		"\nURL: https://shop.example/chairs\n"+
		"Aalto Lounge Chair\n", buf.String())
}

func TestJSONFormatter_FormatReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, fs.JSONFormatter{}.FormatReport(&buf, sampleReport()))

	var got furnitron.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got.ID)
	require.Len(t, got.URLs, 3)
	assert.Equal(t, furnitron.ReasonExhaustedRetries, got.URLs[1].Reason)
	assert.Equal(t, []string{"Nordic Bar Stool"}, got.URLs[2].Degraded)
	assert.Contains(t, buf.String(), `"names": []`)
}

func TestWriteReportFile(t *testing.T) {
	t.Parallel()

	t.Run("writes through a temporary file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "out", "products.txt")

		require.NoError(t, fs.WriteReportFile(path, fs.TextFormatter{}, sampleReport()))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "URL: https://shop.example/tables")

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary file should be renamed away")
	})

	t.Run("keeps the old file when formatting fails", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "products.txt")
		require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

		failing := &mock.ReportFormatter{
			FormatReportFn: func(w io.Writer, report *furnitron.Report) error {
				_, _ = w.Write([]byte("partial"))
				return errors.New("disk full")
			},
		}
		err := fs.WriteReportFile(path, failing, sampleReport())

		require.Error(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "previous", string(data))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
