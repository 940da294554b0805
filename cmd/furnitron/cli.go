package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/crawl"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Reports  furnitron.ReportService
	Sitemaps furnitron.SitemapService
	Crawler  *crawl.Crawler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Log debug output to stderr"`

	Extract ExtractCmd `cmd:"" help:"Extract product names from retailer pages"`
	Search  SearchCmd  `cmd:"" help:"Search stored product names"`
	Stats   StatsCmd   `cmd:"" help:"List stored product names by frequency"`
	Runs    RunsCmd    `cmd:"" help:"List stored extraction runs"`
	Show    ShowCmd    `cmd:"" help:"Print the report of a stored run"`
}

// ExtractCmd is the "extract" subcommand. Zero-valued tuning flags keep the
// config file value, or the default when the file does not set one.
type ExtractCmd struct {
	URLs    []string `arg:"" optional:"" help:"Page URLs to extract from"`
	File    string   `short:"f" type:"existingfile" help:"Read URLs from a text or CSV file"`
	Sitemap string   `short:"s" help:"Discover page URLs from this site's sitemaps"`
	Include []string `short:"I" help:"Only use sitemap URLs matching regex (repeatable)"`
	Exclude []string `short:"X" help:"Skip sitemap URLs matching regex (repeatable)"`
	Preview bool     `short:"p" help:"Print the URLs that would be processed and exit"`

	Config string `type:"path" help:"Config file (default: ./furnitron.yaml, then the XDG config dir)"`

	Renderer  string `help:"Page renderer: rod or http (default: rod)"`
	UserAgent string `name:"user-agent" help:"User-Agent sent with every request"`
	Headful   bool   `help:"Show the browser window"`
	Browser   string `help:"Chrome/Chromium binary to launch"`

	Classifier string `help:"Classifier backend: http or gemini (default: http)"`
	Endpoint   string `env:"FURNITRON_CLASSIFIER_URL" help:"Inference server URL for the http classifier"`
	Model      string `help:"Gemini model for the gemini classifier"`

	Concurrency int           `short:"c" help:"Pages rendered in parallel"`
	RateLimit   float64       `name:"rate-limit" help:"Requests per second per host"`
	BatchSize   int           `name:"batch-size" help:"Candidates per classifier call"`
	MaxRetries  int           `name:"max-retries" help:"Render attempts per page"`
	Timeout     time.Duration `help:"Timeout of a single render attempt"`

	Output string `short:"o" type:"path" help:"Write the report to this file instead of stdout"`
	Format string `default:"text" enum:"text,json,markdown" help:"Report format: text, json or markdown"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Keyword string `arg:"" help:"Text to look for in product names"`
	RunID   string `name:"run" help:"Only search this run"`
	Limit   int    `short:"n" help:"Maximum number of matches (0 for all)"`
}

// StatsCmd is the "stats" subcommand.
type StatsCmd struct {
	RunID string `name:"run" help:"Only count names from this run"`
	Limit int    `short:"n" default:"20" help:"Number of names to list (0 for all)"`
}

// RunsCmd is the "runs" subcommand.
type RunsCmd struct {
	Limit int `short:"n" default:"20" help:"Number of runs to list (0 for all)"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID     string `arg:"" help:"Run ID"`
	Format string `default:"text" enum:"text,json,markdown" help:"Report format: text, json or markdown"`
}
