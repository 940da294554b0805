package http

import (
	"context"
	"io"
	"net/http"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/goquery"
)

// DefaultMaxBodySize caps how much of a page is read, 10 MiB.
const DefaultMaxBodySize = 10 << 20

// Ensure Renderer implements furnitron.Renderer at compile time.
var _ furnitron.Renderer = (*Renderer)(nil)

// Renderer fetches pages with plain HTTP GET requests and parses the served
// markup. Unlike rod.Renderer it does not execute JavaScript and is suitable
// for server-rendered catalogs only.
type Renderer struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClient sets the HTTP client. Defaults to http.DefaultClient.
func WithClient(c *http.Client) Option {
	return func(r *Renderer) {
		r.client = c
	}
}

// WithUserAgent sets the User-Agent header. Defaults to DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(r *Renderer) {
		r.userAgent = ua
	}
}

// WithMaxBodySize limits how many bytes of each response are parsed.
func WithMaxBodySize(n int64) Option {
	return func(r *Renderer) {
		r.maxBodySize = n
	}
}

// NewRenderer creates a new HTTP-based Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		client:      http.DefaultClient,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render retrieves the page at url and parses it into a document tree.
// The context bounds the whole request including reading the body.
func (r *Renderer) Render(ctx context.Context, url string) (*furnitron.RenderedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, furnitron.Errorf(furnitron.EINVALID, "invalid URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, transportError(ctx, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, url, furnitron.ENETWORK)
	}

	root, err := goquery.ParseReader(io.LimitReader(resp.Body, r.maxBodySize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, transportError(ctx, url, ctx.Err())
		}
		return nil, err
	}
	return furnitron.NewRenderedPage(url, root, nil), nil
}

// Close releases resources. It is a no-op since http.Client needs no
// explicit cleanup.
func (r *Renderer) Close() error {
	return nil
}
