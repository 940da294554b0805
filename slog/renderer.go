package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/furnitron"
)

// Ensure LoggingRenderer implements furnitron.Renderer.
var _ furnitron.Renderer = (*LoggingRenderer)(nil)

// LoggingRenderer wraps a Renderer with debug logging of every attempt.
type LoggingRenderer struct {
	next   furnitron.Renderer
	logger *slog.Logger
}

// NewLoggingRenderer creates a new LoggingRenderer.
func NewLoggingRenderer(next furnitron.Renderer, logger *slog.Logger) *LoggingRenderer {
	return &LoggingRenderer{next: next, logger: logger}
}

// Render logs the URL being rendered and delegates to the wrapped renderer.
func (r *LoggingRenderer) Render(ctx context.Context, url string) (page *furnitron.RenderedPage, err error) {
	defer func(begin time.Time) {
		if err != nil {
			r.logger.Debug("render",
				"url", url,
				"duration", time.Since(begin),
				"code", furnitron.ErrorCode(err),
				"err", err,
			)
			return
		}
		r.logger.Debug("render",
			"url", url,
			"duration", time.Since(begin),
		)
	}(time.Now())
	return r.next.Render(ctx, url)
}

// Close delegates to the wrapped renderer.
func (r *LoggingRenderer) Close() error {
	return r.next.Close()
}
