package mock

import (
	"context"

	"github.com/fwojciec/furnitron"
)

var _ furnitron.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of furnitron.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *furnitron.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *furnitron.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}
