// Package yaml loads furnitron settings from a YAML file.
package yaml

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/crawl"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when none is given.
const DefaultFileName = "furnitron.yaml"

// File is the on-disk configuration. Unset fields keep their defaults, so
// every scalar is a pointer.
type File struct {
	Crawl      Crawl      `yaml:"crawl"`
	Filter     Filter     `yaml:"filter"`
	Renderer   Renderer   `yaml:"renderer"`
	Classifier Classifier `yaml:"classifier"`
}

// Crawl holds pipeline tuning overrides.
type Crawl struct {
	MaxRetries      *int           `yaml:"max_retries"`
	PerPageTimeout  *time.Duration `yaml:"per_page_timeout"`
	RetryBackoff    *time.Duration `yaml:"retry_backoff"`
	MaxBackoff      *time.Duration `yaml:"max_backoff"`
	Concurrency     *int           `yaml:"concurrency"`
	RateLimit       *float64       `yaml:"rate_limit"`
	BatchSize       *int           `yaml:"batch_size"`
	ClassifyRetries *int           `yaml:"classify_retries"`
	ClassifyTimeout *time.Duration `yaml:"classify_timeout"`
}

// Filter holds candidate filter overrides. Denylist replaces the default
// phrases; ExtraDenylist is appended to whichever list is in effect.
type Filter struct {
	MinWords      *int     `yaml:"min_words"`
	MaxWords      *int     `yaml:"max_words"`
	Denylist      []string `yaml:"denylist"`
	ExtraDenylist []string `yaml:"extra_denylist"`
}

// Renderer selects and tunes the page renderer.
type Renderer struct {
	Kind      string `yaml:"kind"` // "rod" or "http"
	UserAgent string `yaml:"user_agent"`
	Headless  *bool  `yaml:"headless"`
	Browser   string `yaml:"browser"`
	MaxPages  int64  `yaml:"max_pages"`
}

// Classifier selects and locates the classifier backend.
type Classifier struct {
	Backend  string `yaml:"backend"` // "http" or "gemini"
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// Parse decodes a config file. Unknown keys are rejected so typos surface
// instead of silently keeping a default.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, furnitron.Errorf(furnitron.EINVALID, "invalid config: %v", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads and decodes the config file at path.
// Returns ENOTFOUND if the file does not exist.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, furnitron.Errorf(furnitron.ENOTFOUND, "config file %s not found", path)
	}
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(data))
}

// FindFile returns path if set, otherwise the first furnitron.yaml found in
// the working directory or the XDG config directory. Returns "" when there
// is none.
func FindFile(path string) string {
	if path != "" {
		return path
	}
	candidates := []string{DefaultFileName}
	if p, err := xdg.SearchConfigFile(filepath.Join("furnitron", DefaultFileName)); err == nil {
		candidates = append(candidates, p)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func (f *File) validate() error {
	switch f.Renderer.Kind {
	case "", "rod", "http":
	default:
		return furnitron.Errorf(furnitron.EINVALID, "unknown renderer %q (want rod or http)", f.Renderer.Kind)
	}
	switch f.Classifier.Backend {
	case "", "http", "gemini":
	default:
		return furnitron.Errorf(furnitron.EINVALID, "unknown classifier %q (want http or gemini)", f.Classifier.Backend)
	}
	return nil
}

// Apply overlays the file's settings on cfg.
func (f *File) Apply(cfg *crawl.Config) {
	c := f.Crawl
	setInt(&cfg.MaxRetries, c.MaxRetries)
	setDuration(&cfg.PerPageTimeout, c.PerPageTimeout)
	setDuration(&cfg.RetryBackoff, c.RetryBackoff)
	setDuration(&cfg.MaxBackoff, c.MaxBackoff)
	setInt(&cfg.Concurrency, c.Concurrency)
	if c.RateLimit != nil {
		cfg.RateLimit = *c.RateLimit
	}
	setInt(&cfg.BatchSize, c.BatchSize)
	setInt(&cfg.ClassifyRetries, c.ClassifyRetries)
	setDuration(&cfg.ClassifyTimeout, c.ClassifyTimeout)

	setInt(&cfg.Filter.MinWords, f.Filter.MinWords)
	setInt(&cfg.Filter.MaxWords, f.Filter.MaxWords)
	if f.Filter.Denylist != nil {
		cfg.Filter.Denylist = append([]string(nil), f.Filter.Denylist...)
	}
	cfg.Filter.Denylist = append(cfg.Filter.Denylist, f.Filter.ExtraDenylist...)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
