package fs

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/fwojciec/furnitron"
)

// Ensure formatters implement furnitron.ReportFormatter at compile time.
var (
	_ furnitron.ReportFormatter = TextFormatter{}
	_ furnitron.ReportFormatter = JSONFormatter{}
)

// TextFormatter writes the line-oriented product list: for every URL with at
// least one name, a blank line, "URL: <url>", then one name per line.
// URLs without names are omitted.
type TextFormatter struct{}

// FormatReport writes report to w.
func (TextFormatter) FormatReport(w io.Writer, report *furnitron.Report) error {
	bw := bufio.NewWriter(w)
	for _, u := range report.URLs {
		if len(u.Names) == 0 {
			continue
		}
		bw.WriteString("\nURL: ")
		bw.WriteString(u.URL)
		bw.WriteByte('\n')
		for _, name := range u.Names {
			bw.WriteString(name)
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// JSONFormatter writes the full report as indented JSON.
type JSONFormatter struct{}

// FormatReport writes report to w.
func (JSONFormatter) FormatReport(w io.Writer, report *furnitron.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteReportFile formats report into the file at path. The file is written
// to a temporary sibling first and renamed into place, so an interrupted
// write never leaves a truncated report behind.
func WriteReportFile(path string, f furnitron.ReportFormatter, report *furnitron.Report) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := f.FormatReport(tmp, report); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
