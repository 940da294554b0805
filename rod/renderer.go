// Package rod renders pages in a headless Chrome browser driven by go-rod.
package rod

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/fwojciec/furnitron"
	"github.com/fwojciec/furnitron/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Renderer implements furnitron.Renderer at compile time.
var _ furnitron.Renderer = (*Renderer)(nil)

// Renderer executes each page's scripts in Chrome and returns the resulting
// document tree. Renderer is safe for concurrent use by multiple goroutines.
type Renderer struct {
	manager   *BrowserManager
	userAgent string
	closed    atomic.Bool
}

// Option configures a Renderer.
type Option func(*rendererOptions)

type rendererOptions struct {
	userAgent string
	manager   []ManagerOption
}

// WithUserAgent overrides the browser's User-Agent header on every page.
func WithUserAgent(ua string) Option {
	return func(o *rendererOptions) {
		o.userAgent = ua
	}
}

// WithManagerOptions passes options through to the underlying BrowserManager.
func WithManagerOptions(opts ...ManagerOption) Option {
	return func(o *rendererOptions) {
		o.manager = append(o.manager, opts...)
	}
}

// NewRenderer launches a browser and returns a Renderer backed by it.
// Close must be called when the Renderer is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewRenderer(opts ...Option) (*Renderer, error) {
	var o rendererOptions
	for _, opt := range opts {
		opt(&o)
	}

	manager, err := NewBrowserManager(o.manager...)
	if err != nil {
		return nil, err
	}
	return &Renderer{manager: manager, userAgent: o.userAgent}, nil
}

// Render navigates to the URL, waits for the load event and snapshots the
// rendered DOM.
func (r *Renderer) Render(ctx context.Context, url string) (*furnitron.RenderedPage, error) {
	if r.closed.Load() {
		return nil, furnitron.Errorf(furnitron.EINVALID, "renderer is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browser, release, err := r.manager.Acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, renderError(ctx, url, err)
		}
		return nil, err
	}
	defer release()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, furnitron.Errorf(furnitron.ERENDER, "opening page for %s: %v", url, err)
	}
	defer page.Close()

	if r.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.userAgent}); err != nil {
			return nil, furnitron.Errorf(furnitron.ERENDER, "setting user agent: %v", err)
		}
	}

	p := page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return nil, renderError(ctx, url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, renderError(ctx, url, err)
	}
	src, err := p.HTML()
	if err != nil {
		return nil, renderError(ctx, url, err)
	}

	root, err := goquery.Parse(src)
	if err != nil {
		return nil, err
	}
	return furnitron.NewRenderedPage(url, root, nil), nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (r *Renderer) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	return r.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
// This method exists for testing purposes to verify proper cleanup.
func (r *Renderer) LauncherPID() int {
	return r.manager.LauncherPID()
}

// renderError classifies a browser failure. Cancellation passes through
// untouched so callers can tell it apart from a timeout.
func renderError(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return furnitron.Errorf(furnitron.ETIMEOUT, "render %s: %v", url, err)
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return furnitron.Errorf(furnitron.ENETWORK, "navigate %s: %s", url, navErr.Reason)
	}
	return furnitron.Errorf(furnitron.ERENDER, "render %s: %v", url, err)
}
