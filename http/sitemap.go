package http

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/furnitron"
)

// DefaultMaxSitemapDepth bounds sitemap index nesting.
const DefaultMaxSitemapDepth = 4

// Ensure SitemapService implements furnitron.SitemapService.
var _ furnitron.SitemapService = (*SitemapService)(nil)

// SitemapService discovers page URLs from a retailer's sitemaps via HTTP.
type SitemapService struct {
	client    *http.Client
	userAgent string
	maxURLs   int
	maxDepth  int
}

// SitemapOption configures a SitemapService.
type SitemapOption func(*SitemapService)

// WithSitemapUserAgent sets the User-Agent header for sitemap requests.
func WithSitemapUserAgent(ua string) SitemapOption {
	return func(s *SitemapService) {
		s.userAgent = ua
	}
}

// WithMaxURLs stops discovery once n URLs have been collected.
// Zero means no limit.
func WithMaxURLs(n int) SitemapOption {
	return func(s *SitemapService) {
		s.maxURLs = n
	}
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, http.DefaultClient is used.
func NewSitemapService(client *http.Client, opts ...SitemapOption) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	s := &SitemapService{
		client:    client,
		userAgent: DefaultUserAgent,
		maxDepth:  DefaultMaxSitemapDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sitemapWalk is the state of one DiscoverURLs call.
type sitemapWalk struct {
	*SitemapService
	prefix   string
	filter   *furnitron.URLFilter
	sitemaps map[string]bool
	seen     map[string]bool
	urls     []string
}

// DiscoverURLs returns the distinct page URLs listed in a site's sitemaps.
// Returns an empty slice (not nil) if no sitemaps are found.
//
// When baseURL has a non-root path (e.g., https://example.com/sofas/),
// only URLs under that path are returned.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *furnitron.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, furnitron.Errorf(furnitron.EINVALID, "invalid base URL %q", baseURL)
	}

	w := &sitemapWalk{
		SitemapService: s,
		prefix:         strings.TrimSuffix(base.Path, "/"),
		filter:         filter,
		sitemaps:       make(map[string]bool),
		seen:           make(map[string]bool),
		urls:           []string{},
	}

	root := &url.URL{Scheme: base.Scheme, Host: base.Host}
	locations, err := s.findSitemaps(ctx, root)
	if err != nil {
		return nil, err
	}
	for _, loc := range locations {
		if w.full() {
			break
		}
		if err := w.visit(ctx, loc, 0); err != nil {
			return nil, err
		}
	}
	return w.urls, nil
}

// findSitemaps reads Sitemap: directives from robots.txt, falling back to
// /sitemap.xml when robots.txt is missing or names none.
func (s *SitemapService) findSitemaps(ctx context.Context, root *url.URL) ([]string, error) {
	robots := root.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	if body, err := s.get(ctx, robots); err == nil {
		locations, err := parseRobots(body)
		body.Close()
		if err == nil && len(locations) > 0 {
			return locations, nil
		}
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fallback := root.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String()
	ok, err := s.exists(ctx, fallback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if ok {
		return []string{fallback}, nil
	}
	return nil, nil
}

func parseRobots(r io.Reader) ([]string, error) {
	const directive = "sitemap:"
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) > len(directive) && strings.EqualFold(line[:len(directive)], directive) {
			if loc := strings.TrimSpace(line[len(directive):]); loc != "" {
				out = append(out, loc)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, furnitron.Errorf(furnitron.ENETWORK, "reading robots.txt: %v", err)
	}
	return out, nil
}

// visit fetches one sitemap and either recurses into an index or collects
// the URLs of a urlset.
func (w *sitemapWalk) visit(ctx context.Context, loc string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.sitemaps[loc] || depth > w.maxDepth {
		return nil
	}
	w.sitemaps[loc] = true

	body, err := w.get(ctx, loc)
	if err != nil {
		return err
	}
	defer body.Close()

	var r io.Reader = body
	if strings.HasSuffix(strings.ToLower(loc), ".gz") {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return furnitron.Errorf(furnitron.EINVALID, "decompressing sitemap %s: %v", loc, err)
		}
		defer gz.Close()
		r = gz
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return furnitron.Errorf(furnitron.EINVALID, "parsing sitemap %s: %v", loc, err)
	}
	root := doc.Root()
	if root == nil {
		return furnitron.Errorf(furnitron.EINVALID, "empty sitemap %s", loc)
	}

	if root.Tag == "sitemapindex" {
		for _, child := range locs(root, "sitemap") {
			if w.full() {
				return nil
			}
			if err := w.visit(ctx, child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, u := range locs(root, "url") {
		if w.full() {
			return nil
		}
		if w.seen[u] || !underPrefix(u, w.prefix) || !w.filter.Match(u) {
			continue
		}
		w.seen[u] = true
		w.urls = append(w.urls, u)
	}
	return nil
}

func (w *sitemapWalk) full() bool {
	return w.maxURLs > 0 && len(w.urls) >= w.maxURLs
}

// locs returns the trimmed <loc> text of each tag child of root.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if u := strings.TrimSpace(loc.Text()); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// underPrefix reports whether rawURL's path is prefix or lies below it,
// respecting path boundaries: /sofas matches /sofas/oslo but not /sofas-sale.
func underPrefix(rawURL, prefix string) bool {
	if prefix == "" {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Path == prefix || strings.HasPrefix(parsed.Path, prefix+"/")
}

func (s *SitemapService) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, furnitron.Errorf(furnitron.EINVALID, "invalid URL %q: %v", target, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, statusError(resp.StatusCode, target, furnitron.ENETWORK)
	}
	return resp.Body, nil
}

func (s *SitemapService) exists(ctx context.Context, target string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, furnitron.Errorf(furnitron.EINVALID, "invalid URL %q: %v", target, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, transportError(ctx, target, err)
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
