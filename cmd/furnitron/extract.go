package main

import (
	"context"
	"fmt"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/crawl"
	"github.com/fwojciec/furnitron/fs"
	"github.com/fwojciec/furnitron/markdown"
	"github.com/fwojciec/furnitron/yaml"
)

// Settings are the effective extract options after layering flags over the
// config file over the defaults.
type Settings struct {
	Crawl crawl.Config

	Renderer  string
	UserAgent string
	Headless  bool
	Browser   string
	MaxPages  int64

	Classifier string
	Endpoint   string
	Model      string
}

// Resolve computes the effective settings. file may be nil.
func (c *ExtractCmd) Resolve(file *yaml.File) (Settings, error) {
	s := Settings{
		Crawl:      crawl.DefaultConfig(),
		Renderer:   "rod",
		Headless:   true,
		Classifier: "http",
	}

	if file != nil {
		file.Apply(&s.Crawl)
		setString(&s.Renderer, file.Renderer.Kind)
		setString(&s.UserAgent, file.Renderer.UserAgent)
		if file.Renderer.Headless != nil {
			s.Headless = *file.Renderer.Headless
		}
		setString(&s.Browser, file.Renderer.Browser)
		s.MaxPages = file.Renderer.MaxPages
		setString(&s.Classifier, file.Classifier.Backend)
		setString(&s.Endpoint, file.Classifier.Endpoint)
		setString(&s.Model, file.Classifier.Model)
	}

	setString(&s.Renderer, c.Renderer)
	setString(&s.UserAgent, c.UserAgent)
	if c.Headful {
		s.Headless = false
	}
	setString(&s.Browser, c.Browser)
	setString(&s.Classifier, c.Classifier)
	setString(&s.Endpoint, c.Endpoint)
	setString(&s.Model, c.Model)

	if c.Concurrency > 0 {
		s.Crawl.Concurrency = c.Concurrency
	}
	if c.RateLimit > 0 {
		s.Crawl.RateLimit = c.RateLimit
	}
	if c.BatchSize > 0 {
		s.Crawl.BatchSize = c.BatchSize
	}
	if c.MaxRetries > 0 {
		s.Crawl.MaxRetries = c.MaxRetries
	}
	if c.Timeout > 0 {
		s.Crawl.PerPageTimeout = c.Timeout
	}

	switch s.Renderer {
	case "rod", "http":
	default:
		return Settings{}, furnitron.Errorf(furnitron.EINVALID, "unknown renderer %q (want rod or http)", s.Renderer)
	}
	switch s.Classifier {
	case "http", "gemini":
	default:
		return Settings{}, furnitron.Errorf(furnitron.EINVALID, "unknown classifier %q (want http or gemini)", s.Classifier)
	}
	if err := s.Crawl.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	urls, err := c.collectURLs(deps)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", furnitron.ErrorMessage(err))
		return err
	}
	if len(urls) == 0 {
		fmt.Fprintln(deps.Stderr, "error: no URLs to process. Pass URLs as arguments, --file or --sitemap.")
		return furnitron.Errorf(furnitron.EINVALID, "no URLs to process")
	}

	if c.Preview {
		for _, u := range urls {
			fmt.Fprintln(deps.Stdout, u)
		}
		return nil
	}

	report, err := deps.Crawler.Process(deps.Ctx, urls, c.progress(deps))
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", furnitron.ErrorMessage(err))
		return err
	}

	// The report is stored even when the run was interrupted.
	if deps.Reports != nil {
		if err := deps.Reports.CreateReport(context.WithoutCancel(deps.Ctx), report); err != nil {
			fmt.Fprintf(deps.Stderr, "error: saving report: %s\n", furnitron.ErrorMessage(err))
			return err
		}
	}

	formatter := newFormatter(c.Format)
	if c.Output != "" {
		if err := fs.WriteReportFile(c.Output, formatter, report); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %v\n", err)
			return err
		}
		fmt.Fprintf(deps.Stderr, "Wrote %s\n", c.Output)
	} else if err := formatter.FormatReport(deps.Stdout, report); err != nil {
		return err
	}

	fmt.Fprintf(deps.Stderr, "Run %s: %d succeeded, %d degraded, %d skipped\n",
		report.ID,
		report.Count(furnitron.OutcomeSucceeded),
		report.Count(furnitron.OutcomeDegraded),
		report.Count(furnitron.OutcomeSkipped))
	fmt.Fprintf(deps.Stderr, "Total time: %s\n", crawl.FormatDuration(report.Duration()))
	return nil
}

// collectURLs gathers the input URLs from the file, the arguments and the
// sitemap, in that order.
func (c *ExtractCmd) collectURLs(deps *Dependencies) ([]string, error) {
	var urls []string

	if c.File != "" {
		fromFile, err := fs.ReadURLsFile(c.File)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}

	if len(c.URLs) > 0 {
		fromArgs, err := fs.ParseURLs(c.URLs)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromArgs...)
	}

	if c.Sitemap != "" {
		filter, err := furnitron.CompileURLFilter(c.Include, c.Exclude)
		if err != nil {
			return nil, err
		}
		discovered, err := deps.Sitemaps.DiscoverURLs(deps.Ctx, c.Sitemap, filter)
		if err != nil {
			return nil, err
		}
		if len(discovered) == 0 {
			fmt.Fprintf(deps.Stderr, "warning: no sitemap URLs found for %s\n", c.Sitemap)
		}
		urls = append(urls, discovered...)
	}

	return urls, nil
}

func (c *ExtractCmd) progress(deps *Dependencies) crawl.ProgressFunc {
	return func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(deps.Stderr, "Processing %d URLs\n", event.Total)
		case crawl.ProgressRetry:
			fmt.Fprintf(deps.Stderr, "  retry %s (attempt %d): %v\n", event.URL, event.Attempt, event.Error)
		case crawl.ProgressExtracted:
			fmt.Fprintf(deps.Stderr, "  %s: %d candidates\n", event.URL, event.Candidates)
		case crawl.ProgressSkipped:
			fmt.Fprintf(deps.Stderr, "  skip %s: %v\n", event.URL, event.Error)
		case crawl.ProgressFinished:
			// Summary printed after the report is written
		}
	}
}

func newFormatter(format string) furnitron.ReportFormatter {
	switch format {
	case "json":
		return fs.JSONFormatter{}
	case "markdown":
		return markdown.NewFormatter()
	default:
		return fs.TextFormatter{}
	}
}
