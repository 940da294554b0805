// Package fs reads URL lists and writes report files.
package fs

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/furnitron"
)

// ReadURLs reads a URL list with one URL per line. Lines are taken whole, so
// commas inside a URL's query are kept. Blank lines and lines starting with #
// are skipped, and a leading "url" header is ignored. A header that names
// more columns, like "url,category", marks the list as CSV and the first
// field of each following record is the URL. Repeated URLs are dropped,
// keeping the first occurrence.
//
// Returns EINVALID naming the line of the first entry that is not an
// absolute http(s) URL.
func ReadURLs(r io.Reader) ([]string, error) {
	return readURLs(r, false)
}

// ReadCSVURLs reads a CSV URL list: the first field of each record is the
// URL. Header, blank line and comment handling match ReadURLs.
func ReadCSVURLs(r io.Reader) ([]string, error) {
	return readURLs(r, true)
}

// ReadURLsFile reads a URL list from the file at path. Files with a .csv
// extension are read with ReadCSVURLs, others with ReadURLs.
func ReadURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening URL list: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSVURLs(f)
	}
	return ReadURLs(f)
}

// ParseURLs validates URLs given one per argument and drops repeats,
// keeping the first occurrence. Arguments are never split.
func ParseURLs(args []string) ([]string, error) {
	urls := []string{}
	seen := make(map[string]bool)
	for _, arg := range args {
		raw := strings.TrimSpace(arg)
		if err := validateURL(raw); err != nil {
			return nil, furnitron.Errorf(furnitron.EINVALID, "%v", err)
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		urls = append(urls, raw)
	}
	return urls, nil
}

func readURLs(r io.Reader, csvMode bool) ([]string, error) {
	urls := []string{}
	seen := make(map[string]bool)
	first := true

	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if first {
			first = false
			if header, more := isHeader(text); header {
				csvMode = csvMode || more
				continue
			}
		}

		raw := text
		if csvMode {
			field, err := firstField(text)
			if err != nil {
				return nil, furnitron.Errorf(furnitron.EINVALID, "line %d: %v", line, err)
			}
			if field == "" {
				continue
			}
			raw = field
		}

		if err := validateURL(raw); err != nil {
			return nil, furnitron.Errorf(furnitron.EINVALID, "line %d: %v", line, err)
		}
		if seen[raw] {
			continue
		}
		seen[raw] = true
		urls = append(urls, raw)
	}
	if err := sc.Err(); err != nil {
		return nil, furnitron.Errorf(furnitron.EINVALID, "reading URL list: %v", err)
	}
	return urls, nil
}

// isHeader reports whether line is a "url" header row, and whether it names
// further columns.
func isHeader(line string) (header, more bool) {
	name, rest, found := strings.Cut(line, ",")
	if !strings.EqualFold(strings.TrimSpace(name), "url") {
		return false, false
	}
	return true, found && rest != ""
}

func firstField(line string) (string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	record, err := cr.Read()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(record[0]), nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("not an absolute http(s) URL: %q", raw)
	}
	return nil
}
