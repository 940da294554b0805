package crawl

import (
	"time"

	"github.com/fwojciec/furnitron"
)

// Default pipeline settings.
const (
	DefaultMaxRetries      = 3
	DefaultPerPageTimeout  = 10 * time.Second
	DefaultRetryBackoff    = 1 * time.Second
	DefaultMaxBackoff      = 30 * time.Second
	DefaultConcurrency     = 4
	DefaultBatchSize       = 64
	DefaultClassifyRetries = 3
	DefaultClassifyTimeout = 60 * time.Second
)

// Config holds the tuning parameters of an extraction run.
type Config struct {
	// MaxRetries is the number of render attempts per URL before it is skipped.
	MaxRetries int

	// PerPageTimeout bounds a single render attempt.
	PerPageTimeout time.Duration

	// RetryBackoff is the delay before the second attempt. It doubles for
	// every further attempt, up to MaxBackoff.
	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	// Concurrency is the number of URLs rendered in parallel.
	Concurrency int

	// RateLimit is the request rate allowed per host, in requests per second.
	// Zero disables rate limiting.
	RateLimit float64

	// BatchSize is the number of candidates sent per classifier call.
	BatchSize int

	// ClassifyRetries is the number of classifier attempts per batch before
	// the batch is labeled degraded. Backoff follows RetryBackoff and MaxBackoff.
	ClassifyRetries int

	// ClassifyTimeout bounds a single classifier call. Zero means no limit.
	ClassifyTimeout time.Duration

	Filter furnitron.FilterConfig
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		PerPageTimeout:  DefaultPerPageTimeout,
		RetryBackoff:    DefaultRetryBackoff,
		MaxBackoff:      DefaultMaxBackoff,
		Concurrency:     DefaultConcurrency,
		BatchSize:       DefaultBatchSize,
		ClassifyRetries: DefaultClassifyRetries,
		ClassifyTimeout: DefaultClassifyTimeout,
		Filter:          furnitron.DefaultFilterConfig(),
	}
}

// Validate returns EINVALID if the configuration cannot be used.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 1:
		return furnitron.Errorf(furnitron.EINVALID, "max retries must be at least 1, got %d", c.MaxRetries)
	case c.PerPageTimeout <= 0:
		return furnitron.Errorf(furnitron.EINVALID, "per-page timeout must be positive")
	case c.RetryBackoff < 0:
		return furnitron.Errorf(furnitron.EINVALID, "retry backoff must not be negative")
	case c.MaxBackoff < c.RetryBackoff:
		return furnitron.Errorf(furnitron.EINVALID, "max backoff (%s) is less than retry backoff (%s)", c.MaxBackoff, c.RetryBackoff)
	case c.Concurrency < 1:
		return furnitron.Errorf(furnitron.EINVALID, "concurrency must be at least 1, got %d", c.Concurrency)
	case c.RateLimit < 0:
		return furnitron.Errorf(furnitron.EINVALID, "rate limit must not be negative")
	case c.BatchSize < 1:
		return furnitron.Errorf(furnitron.EINVALID, "batch size must be at least 1, got %d", c.BatchSize)
	case c.ClassifyRetries < 1:
		return furnitron.Errorf(furnitron.EINVALID, "classify retries must be at least 1, got %d", c.ClassifyRetries)
	case c.ClassifyTimeout < 0:
		return furnitron.Errorf(furnitron.EINVALID, "classify timeout must not be negative")
	}
	return c.Filter.Validate()
}

// Backoff returns the retry backoff shared by rendering and classification.
func (c Config) Backoff() Backoff {
	return Backoff{Base: c.RetryBackoff, Max: c.MaxBackoff}
}
