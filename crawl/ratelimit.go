package crawl

import (
	"context"
	"net"
	"strings"
	"sync"

	"github.com/fwojciec/furnitron"
	"golang.org/x/time/rate"
)

var _ furnitron.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter spaces out renders per retailer host with a token bucket for
// each host. Hosts are keyed case-insensitively with any port and leading
// "www." removed, so shop.example.com and WWW.shop.example.com:443 share one
// bucket.
type DomainLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
}

// NewDomainLimiter returns a DomainLimiter allowing rps renders per second to
// each host, with a burst of 1. A non-positive rps disables limiting.
func NewDomainLimiter(rps float64) *DomainLimiter {
	return &DomainLimiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(rps),
	}
}

// Wait blocks until host may be rendered again, or ctx ends.
func (d *DomainLimiter) Wait(ctx context.Context, host string) error {
	if d.limit <= 0 {
		return ctx.Err()
	}
	return d.bucket(HostKey(host)).Wait(ctx)
}

func (d *DomainLimiter) bucket(key string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.buckets[key]
	if !ok {
		b = rate.NewLimiter(d.limit, 1)
		d.buckets[key] = b
	}
	return b
}

// HostKey normalizes a host for per-retailer bookkeeping.
func HostKey(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	return strings.TrimPrefix(host, "www.")
}
