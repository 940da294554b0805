package mock

import (
	"context"

	"github.com/fwojciec/furnitron"
)

var _ furnitron.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of furnitron.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, url string) (*furnitron.RenderedPage, error)
	CloseFn  func() error
}

func (r *Renderer) Render(ctx context.Context, url string) (*furnitron.RenderedPage, error) {
	return r.RenderFn(ctx, url)
}

func (r *Renderer) Close() error {
	return r.CloseFn()
}
