package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/adrg/xdg"
	"github.com/alecthomas/kong"
	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/crawl"
	"github.com/fwojciec/furnitron/gemini"
	fhttp "github.com/fwojciec/furnitron/http"
	"github.com/fwojciec/furnitron/rod"
	fslog "github.com/fwojciec/furnitron/slog"
	"github.com/fwojciec/furnitron/sqlite"
	"github.com/fwojciec/furnitron/yaml"
	"google.golang.org/genai"
)

func main() {
	// Interrupting a run cancels the remaining URLs; the partial report is
	// still written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	ReportService furnitron.ReportService
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Initialize dependencies struct for Kong binding
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	// Create Kong parser with dependency binding
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("furnitron"),
		kong.Description("Extract furniture product names from retailer web pages."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle help flags using Kong
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'furnitron --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	// Parse arguments first to know which command and its flags
	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	command := kongCtx.Selected().Name

	// Preview only discovers URLs, so it needs neither the database nor the
	// pipeline.
	if command == "extract" && cli.Extract.Preview {
		deps.Sitemaps = fslog.NewLoggingSitemapService(fhttp.NewSitemapService(nil), deps.Logger)
		return kongCtx.Run(deps)
	}

	// Open database
	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set FURNITRON_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	// Wire core services into dependencies
	m.ReportService = sqlite.NewReportService(m.DB)
	deps.Reports = m.ReportService

	if command == "extract" {
		closeRenderer, err := m.wireExtract(ctx, &cli.Extract, deps, stderr)
		if err != nil {
			return err
		}
		defer closeRenderer()
	}

	return kongCtx.Run(deps)
}

// wireExtract builds the extraction pipeline for the extract command. The
// returned function releases the renderer.
func (m *Main) wireExtract(ctx context.Context, c *ExtractCmd, deps *Dependencies, stderr io.Writer) (func(), error) {
	var file *yaml.File
	if path := yaml.FindFile(c.Config); path != "" {
		f, err := yaml.LoadFile(path)
		if err != nil {
			return nil, err
		}
		file = f
	}

	settings, err := c.Resolve(file)
	if err != nil {
		return nil, err
	}

	var sitemapOpts []fhttp.SitemapOption
	if settings.UserAgent != "" {
		sitemapOpts = append(sitemapOpts, fhttp.WithSitemapUserAgent(settings.UserAgent))
	}
	deps.Sitemaps = fslog.NewLoggingSitemapService(fhttp.NewSitemapService(nil, sitemapOpts...), deps.Logger)

	classifier, err := newClassifier(ctx, settings, stderr)
	if err != nil {
		return nil, err
	}

	renderer, err := newRenderer(settings)
	if err != nil {
		if settings.Renderer == "rod" {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or use --renderer=http")
		}
		return nil, fmt.Errorf("failed to start renderer: %w", err)
	}

	crawler := &crawl.Crawler{
		Renderer:   fslog.NewLoggingRenderer(renderer, deps.Logger),
		Classifier: fslog.NewLoggingClassifier(classifier, deps.Logger),
		Logger:     deps.Logger,
		Config:     settings.Crawl,
	}
	if settings.Crawl.RateLimit > 0 {
		crawler.RateLimiter = crawl.NewDomainLimiter(settings.Crawl.RateLimit)
	}
	deps.Crawler = crawler

	return func() { _ = renderer.Close() }, nil
}

func newRenderer(s Settings) (furnitron.Renderer, error) {
	if s.Renderer == "http" {
		var opts []fhttp.Option
		if s.UserAgent != "" {
			opts = append(opts, fhttp.WithUserAgent(s.UserAgent))
		}
		return fhttp.NewRenderer(opts...), nil
	}

	managerOpts := []rod.ManagerOption{rod.WithHeadless(s.Headless)}
	if s.Browser != "" {
		managerOpts = append(managerOpts, rod.WithBrowserBin(s.Browser))
	}
	if s.MaxPages > 0 {
		managerOpts = append(managerOpts, rod.WithMaxPages(s.MaxPages))
	}
	return rod.NewRenderer(
		rod.WithUserAgent(s.UserAgent),
		rod.WithManagerOptions(managerOpts...),
	)
}

func newClassifier(ctx context.Context, s Settings, stderr io.Writer) (furnitron.Classifier, error) {
	if s.Classifier == "gemini" {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
			return nil, fmt.Errorf("GEMINI_API_KEY not set. Get a key at https://aistudio.google.com/apikey")
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
			return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
		}

		model := s.Model
		if model == "" {
			model = gemini.DefaultModel
		}
		return gemini.NewClassifier(client, model), nil
	}

	if s.Endpoint == "" {
		fmt.Fprintln(stderr, "Hint: Set --endpoint or FURNITRON_CLASSIFIER_URL, or use --classifier=gemini")
		return nil, furnitron.Errorf(furnitron.EINVALID, "classifier endpoint not set")
	}
	return fhttp.NewClassifier(s.Endpoint), nil
}

func defaultDBPath() string {
	if path := os.Getenv("FURNITRON_DB"); path != "" {
		return path
	}
	path, err := xdg.DataFile(filepath.Join("furnitron", "furnitron.db"))
	if err != nil {
		return "furnitron.db"
	}
	return path
}
