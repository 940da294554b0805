package crawl_test

import (
	"testing"
	"time"

	"github.com/fwojciec/furnitron/crawl"
	"github.com/stretchr/testify/assert"
)

func TestTruncateURL(t *testing.T) {
	t.Parallel()

	t.Run("returns URL unchanged when shorter than max", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "https://x.com", crawl.TruncateURL("https://x.com", 50))
	})

	t.Run("truncates with ellipsis when longer than max", func(t *testing.T) {
		t.Parallel()
		url := "https://shop.example.com/collections/dining/tables"
		result := crawl.TruncateURL(url, 20)
		assert.Equal(t, "...ons/dining/tables", result)
		assert.Len(t, result, 20)
	})

	t.Run("returns URL unchanged when exactly max length", func(t *testing.T) {
		t.Parallel()
		url := "https://example.com"
		assert.Equal(t, url, crawl.TruncateURL(url, len(url)))
	})

	t.Run("returns empty string when maxLen is zero", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, crawl.TruncateURL("https://example.com", 0))
	})

	t.Run("returns empty string when maxLen is negative", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, crawl.TruncateURL("https://example.com", -1))
	})

	t.Run("returns prefix of URL when maxLen is very small", func(t *testing.T) {
		t.Parallel()
		// When maxLen < 4, we can't fit "..." prefix, so return URL prefix
		assert.Equal(t, "htt", crawl.TruncateURL("https://example.com", 3))
		assert.Equal(t, "ht", crawl.TruncateURL("https://example.com", 2))
		assert.Equal(t, "h", crawl.TruncateURL("https://example.com", 1))
	})

	t.Run("handles short URL with small maxLen", func(t *testing.T) {
		t.Parallel()
		// URL shorter than maxLen should return unchanged
		assert.Equal(t, "ab", crawl.TruncateURL("ab", 3))
		assert.Equal(t, "a", crawl.TruncateURL("a", 2))
	})
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	t.Run("formats seconds only under a minute", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "42 seconds", crawl.FormatDuration(42*time.Second))
	})

	t.Run("formats minutes and seconds", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "3 minutes and 5 seconds", crawl.FormatDuration(3*time.Minute+5*time.Second))
	})

	t.Run("rounds to the nearest second", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "1 minutes and 0 seconds", crawl.FormatDuration(59*time.Second+600*time.Millisecond))
		assert.Equal(t, "0 seconds", crawl.FormatDuration(400*time.Millisecond))
	})
}
