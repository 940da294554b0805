package furnitron

import (
	"context"
	"sync"
)

// Node is the minimal view of a rendered document node needed to find leaf text.
// It is independent of any concrete rendering engine's object model.
type Node interface {
	// Children returns the element children in document order.
	Children() []Node

	// Text returns the node's own text, excluding text owned by child elements.
	Text() string

	// IsVisible reports whether the node would be shown to a visitor.
	// Invisible nodes and their subtrees carry no text.
	IsVisible() bool
}

// RenderedPage is a fetched and rendered document tree for a single URL.
// It is owned by one goroutine for the duration of that URL's processing
// and must be released as soon as its text has been collected.
type RenderedPage struct {
	URL  string
	Root Node

	once    sync.Once
	release func()
}

// NewRenderedPage returns a page for url rooted at root. The release func,
// if non-nil, is invoked exactly once when the page is released.
func NewRenderedPage(url string, root Node, release func()) *RenderedPage {
	return &RenderedPage{URL: url, Root: root, release: release}
}

// Release drops the document tree and frees any renderer resources.
// Release is safe to call multiple times.
func (p *RenderedPage) Release() {
	p.once.Do(func() {
		p.Root = nil
		if p.release != nil {
			p.release()
		}
	})
}

// Renderer fetches URLs and returns their rendered document trees.
type Renderer interface {
	// Render navigates to the URL and returns the rendered page.
	// The context controls timeout and cancellation. Failures carry one
	// of ETIMEOUT, ENETWORK or ERENDER when they are worth retrying.
	Render(ctx context.Context, url string) (*RenderedPage, error)

	// Close releases renderer resources.
	// Must be called when the Renderer is no longer needed.
	Close() error
}
